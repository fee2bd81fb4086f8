// Package loader turns an export directory or archive into one ordered sequence of timeline segments.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mholt/archives"
	"github.com/penwyp/go-timeline-chat/internal/core/cache"
	"github.com/penwyp/go-timeline-chat/internal/core/model"
	"github.com/penwyp/go-timeline-chat/internal/data/parser"
	"github.com/penwyp/go-timeline-chat/internal/data/scanner"
	"github.com/penwyp/go-timeline-chat/internal/util"
)

// ErrNoFiles is returned when the input root holds no .json files.
var ErrNoFiles = errors.New("no timeline files found")

// Policy decides what happens to a file without a timelineObjects array.
type Policy string

const (
	PolicyFail Policy = "fail"
	PolicySkip Policy = "skip"
)

// Options configures a Loader
type Options struct {
	Root            string // directory, single .json file, or archive
	FS              fs.FS  // when set, used instead of Root
	Concurrency     int
	MissingTimeline Policy
	Cache           *cache.MemoryCache // optional, keeps parsed files between loads
}

// Result is one complete load.
type Result struct {
	Files       []string // files that contributed segments, in load order
	Skipped     []string // files skipped for a missing timelineObjects array
	Segments    []model.Segment
	Fingerprint string
}

// Loader reads every export file under a root.
type Loader struct {
	opts   Options
	parser *parser.Parser
}

// New creates a Loader
func New(opts Options) *Loader {
	if opts.MissingTimeline == "" {
		opts.MissingTimeline = PolicyFail
	}
	p := parser.NewParser(opts.Concurrency)
	if opts.Cache != nil {
		p.WithCache(opts.Cache)
	}
	return &Loader{
		opts:   opts,
		parser: p,
	}
}

// Load discovers and parses all files and concatenates their segments in discovery
// order, then in-file order. Segment.Index is the position in the whole sequence.
// On error no partial result is returned.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	c := l.opts.Cache
	if c == nil {
		return l.load(ctx)
	}

	c.Clear()
	result, err := l.load(ctx)
	if err != nil {
		c.CancelClear()
		return nil, err
	}
	hits, misses := c.Stats()
	c.CommitClear()
	util.LogDebug(fmt.Sprintf("Parse cache: %d files reused, %d parsed", hits, misses))
	return result, nil
}

func (l *Loader) load(ctx context.Context) (*Result, error) {
	start := time.Now()

	fsys, files, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	perFile := make([][]model.Segment, len(files))
	missing := make([]bool, len(files))
	var firstErr error
	for r := range l.parser.ParseFiles(ctx, fsys, files) {
		if r.Error == nil {
			perFile[r.Index] = r.Segments
			continue
		}
		if errors.Is(r.Error, parser.ErrMissingTimeline) && l.opts.MissingTimeline == PolicySkip {
			missing[r.Index] = true
			continue
		}
		if firstErr == nil {
			firstErr = r.Error
		}
	}
	if firstErr != nil {
		return nil, fmt.Errorf("loading timeline: %w", firstErr)
	}

	result := &Result{}
	for i, file := range files {
		if missing[i] {
			util.LogWarn("Skipping file without timelineObjects", util.String("file", file))
			result.Skipped = append(result.Skipped, file)
			continue
		}
		for _, seg := range perFile[i] {
			seg.Index = len(result.Segments)
			result.Segments = append(result.Segments, seg)
		}
		result.Files = append(result.Files, file)
		util.LogInfo("Loaded file", util.String("file", file), util.Int("objects", len(perFile[i])))
	}

	result.Fingerprint, err = util.CalculateFingerprint(fsys, files)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting input: %w", err)
	}

	util.LogInfo("Load complete",
		util.Int("files", len(result.Files)),
		util.Int("skipped", len(result.Skipped)),
		util.Int("objects", len(result.Segments)),
		util.Duration("duration", time.Since(start)))
	return result, nil
}

func (l *Loader) open(ctx context.Context) (fs.FS, []string, error) {
	if l.opts.FS != nil {
		files, err := scanner.NewFileScanner(l.opts.FS).Scan()
		return l.opts.FS, files, err
	}

	fsys, single, err := OpenRoot(ctx, l.opts.Root)
	if err != nil {
		return nil, nil, err
	}
	if single != "" {
		return fsys, []string{single}, nil
	}
	files, err := scanner.NewFileScanner(fsys).Scan()
	return fsys, files, err
}

// OpenRoot opens a directory or archive as a file system. A plain .json file is
// opened through its parent directory and returned as the only file name.
func OpenRoot(ctx context.Context, root string) (fs.FS, string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, "", fmt.Errorf("opening input %s: %w", root, err)
	}
	if !info.IsDir() && strings.EqualFold(filepath.Ext(root), ".json") {
		dir, name := filepath.Split(root)
		if dir == "" {
			dir = "."
		}
		return os.DirFS(dir), name, nil
	}

	fsys, err := archives.FileSystem(ctx, root, nil)
	if err != nil {
		return nil, "", fmt.Errorf("opening input %s: %w", root, err)
	}
	return fsys, "", nil
}
