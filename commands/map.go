package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/penwyp/go-timeline-chat/internal/presentation/mapview"
	"github.com/penwyp/go-timeline-chat/internal/util"
	"github.com/spf13/cobra"
)

var (
	mapFormat string
	mapOut    string
	mapWidth  int
	mapHeight int
	mapTitle  string

	mapCmd = &cobra.Command{
		Use:   "map",
		Short: "Print or plot visit locations",
		Long: `Print the LAT/LON of place visits for the selected years, or plot them.

Visits without coordinates are left out. Without --year every year in the data is included.

Examples:
  go-timeline-chat map --year 2019 > 2019.csv
  go-timeline-chat map --year 2019,2020 --format geojson --out visits.geojson
  go-timeline-chat map --format png --out map.png --width 1600 --height 1000`,
		RunE: runMap,
	}
)

func init() {
	mapCmd.Flags().StringVarP(&mapFormat, "format", "f", "csv",
		"Output format (csv, geojson, png)")
	mapCmd.Flags().StringVar(&mapOut, "out", "",
		"Write to this file instead of stdout (required for png)")
	mapCmd.Flags().IntVar(&mapWidth, "width", 1200,
		"PNG width in pixels")
	mapCmd.Flags().IntVar(&mapHeight, "height", 800,
		"PNG height in pixels")
	mapCmd.Flags().StringVar(&mapTitle, "title", "",
		"PNG title (defaults to the number of visits)")

	rootCmd.AddCommand(mapCmd)
}

func runMap(cmd *cobra.Command, args []string) error {
	switch mapFormat {
	case "csv", "geojson":
	case "png":
		if mapOut == "" {
			return fmt.Errorf("--out is required for png output")
		}
	default:
		return fmt.Errorf("unsupported map format: %s", mapFormat)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	_, ds, err := loadDataset(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	selected := years
	if len(selected) == 0 {
		selected = ds.Visits.Years()
	}
	points := mapview.Points(ds.Visits, selected)
	util.LogDebug(fmt.Sprintf("Map: %d points for years %v", len(points), selected))

	var w io.Writer = cmd.OutOrStdout()
	if mapOut != "" {
		path := filepath.Clean(mapOut)
		if err := ensureDir(filepath.Dir(path)); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}

	switch mapFormat {
	case "geojson":
		err = mapview.WriteGeoJSON(w, points)
	case "png":
		err = mapview.RenderPNG(w, points, mapview.RenderOptions{
			Width:  mapWidth,
			Height: mapHeight,
			Title:  mapTitle,
		})
	default:
		err = mapview.WriteCSV(w, points)
	}
	if err != nil {
		return err
	}

	if mapOut != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d points to %s\n", len(points), mapOut)
	}
	return nil
}
