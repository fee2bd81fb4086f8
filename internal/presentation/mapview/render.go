package mapview

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	backgroundColor = color.RGBA{245, 243, 238, 255}
	gridColor       = color.RGBA{215, 212, 205, 255}
	textColor       = color.RGBA{60, 60, 60, 255}

	// one color per year, cycled
	yearPalette = []color.RGBA{
		{214, 39, 40, 220},
		{31, 119, 180, 220},
		{44, 160, 44, 220},
		{255, 127, 14, 220},
		{148, 103, 189, 220},
		{140, 86, 75, 220},
	}
)

const (
	margin    = 24
	dotRadius = 3
)

// RenderOptions sizes the plot
type RenderOptions struct {
	Width  int
	Height int
	Title  string
}

// RenderPNG plots the points on an equirectangular projection fitted to their bounding box.
func RenderPNG(w io.Writer, points []Point, opts RenderOptions) error {
	if opts.Width <= 2*margin || opts.Height <= 2*margin {
		return fmt.Errorf("image size %dx%d is too small", opts.Width, opts.Height)
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	proj := newProjection(points, opts.Width, opts.Height)
	drawGrid(img, proj)

	years := make(map[int]int)
	for _, p := range points {
		if _, ok := years[p.Year]; !ok {
			years[p.Year] = len(years)
		}
		x, y := proj.xy(p.Lat, p.Lon)
		drawDot(img, x, y, yearPalette[years[p.Year]%len(yearPalette)])
	}

	title := opts.Title
	if title == "" {
		title = strconv.Itoa(len(points)) + " visits"
	}
	drawString(img, margin, margin-8, title, textColor)

	return png.Encode(w, img)
}

type projection struct {
	minLat, maxLat, minLon, maxLon float64
	width, height                  int
	scale                          float64
}

func newProjection(points []Point, width, height int) projection {
	p := projection{minLat: -60, maxLat: 75, minLon: -180, maxLon: 180, width: width, height: height}
	if len(points) > 0 {
		p.minLat, p.maxLat = points[0].Lat, points[0].Lat
		p.minLon, p.maxLon = points[0].Lon, points[0].Lon
		for _, pt := range points[1:] {
			p.minLat = math.Min(p.minLat, pt.Lat)
			p.maxLat = math.Max(p.maxLat, pt.Lat)
			p.minLon = math.Min(p.minLon, pt.Lon)
			p.maxLon = math.Max(p.maxLon, pt.Lon)
		}
		// pad so single points and straight lines still get an area
		padLat := math.Max((p.maxLat-p.minLat)*0.05, 0.01)
		padLon := math.Max((p.maxLon-p.minLon)*0.05, 0.01)
		p.minLat, p.maxLat = p.minLat-padLat, p.maxLat+padLat
		p.minLon, p.maxLon = p.minLon-padLon, p.maxLon+padLon
	}

	sx := float64(width-2*margin) / (p.maxLon - p.minLon)
	sy := float64(height-2*margin) / (p.maxLat - p.minLat)
	p.scale = math.Min(sx, sy)
	return p
}

// xy maps a coordinate to pixel space, centered in the drawable area
func (p projection) xy(lat, lon float64) (int, int) {
	usedW := (p.maxLon - p.minLon) * p.scale
	usedH := (p.maxLat - p.minLat) * p.scale
	offX := float64(margin) + (float64(p.width-2*margin)-usedW)/2
	offY := float64(margin) + (float64(p.height-2*margin)-usedH)/2

	x := offX + (lon-p.minLon)*p.scale
	y := offY + (p.maxLat-lat)*p.scale
	return int(math.Round(x)), int(math.Round(y))
}

func drawGrid(img *image.RGBA, p projection) {
	step := gridStep(p.maxLon - p.minLon)
	for lon := math.Ceil(p.minLon/step) * step; lon <= p.maxLon; lon += step {
		x, _ := p.xy(p.minLat, lon)
		_, y0 := p.xy(p.maxLat, lon)
		_, y1 := p.xy(p.minLat, lon)
		for y := y0; y <= y1; y++ {
			img.Set(x, y, gridColor)
		}
	}
	for lat := math.Ceil(p.minLat/step) * step; lat <= p.maxLat; lat += step {
		_, y := p.xy(lat, p.minLon)
		x0, _ := p.xy(lat, p.minLon)
		x1, _ := p.xy(lat, p.maxLon)
		for x := x0; x <= x1; x++ {
			img.Set(x, y, gridColor)
		}
	}
}

// gridStep picks a round graticule spacing for a span in degrees
func gridStep(span float64) float64 {
	for _, s := range []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30} {
		if span/s <= 12 {
			return s
		}
	}
	return 60
}

func drawDot(img *image.RGBA, cx, cy int, c color.RGBA) {
	r := image.Rect(cx-dotRadius, cy-dotRadius, cx+dotRadius+1, cy+dotRadius+1)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= dotRadius*dotRadius {
				draw.Draw(img, image.Rect(x, y, x+1, y+1), image.NewUniform(c), image.Point{}, draw.Over)
			}
		}
	}
}

func drawString(img *image.RGBA, x, y int, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
