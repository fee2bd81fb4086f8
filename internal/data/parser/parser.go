package parser

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-timeline-chat/internal/core/cache"
	"github.com/penwyp/go-timeline-chat/internal/core/model"
	"github.com/penwyp/go-timeline-chat/internal/util"
	"github.com/zeebo/blake3"
)

// TimelineKey is the top-level key holding the timeline objects of an export file.
const TimelineKey = "timelineObjects"

// ErrMissingTimeline is returned when a file has no timelineObjects array.
var ErrMissingTimeline = errors.New("missing timelineObjects array")

// FileError ties a parse failure to the file it came from.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Parser decodes timeline export files.
type Parser struct {
	concurrency int
	cache       *cache.MemoryCache
}

// ParseResult represents the result of parsing a single file.
type ParseResult struct {
	Index    int // position of the file in the input list
	File     string
	Segments []model.Segment
	Error    error
}

// NewParser creates a new Parser instance.
func NewParser(concurrency int) *Parser {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Parser{concurrency: concurrency}
}

// WithCache reuses the segments of files whose content has not changed since they
// were last parsed into c.
func (p *Parser) WithCache(c *cache.MemoryCache) *Parser {
	p.cache = c
	return p
}

// ParseFile decodes one export file and returns its timeline objects in array order.
// Segment indexes are positions within the file. Errors are *FileError.
func (p *Parser) ParseFile(fsys fs.FS, path string) ([]model.Segment, error) {
	util.LogDebug(fmt.Sprintf("Start parsing file: %s", path))

	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, &FileError{File: path, Err: err}
	}

	var digest string
	if p.cache != nil {
		sum := blake3.Sum256(data)
		digest = hex.EncodeToString(sum[:16])
		if segments, ok := p.cache.Get(path, digest); ok {
			util.LogDebug(fmt.Sprintf("Reusing parsed file: %s, %d timeline objects", path, len(segments)))
			return segments, nil
		}
	}

	var doc any
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, &FileError{File: path, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, &FileError{File: path, Err: ErrMissingTimeline}
	}
	items, ok := obj[TimelineKey].([]any)
	if !ok {
		return nil, &FileError{File: path, Err: ErrMissingTimeline}
	}

	segments := make([]model.Segment, len(items))
	for i, item := range items {
		raw, _ := item.(map[string]any)
		segments[i] = model.Segment{Index: i, Source: path, Raw: raw}
	}

	if p.cache != nil {
		p.cache.Set(path, digest, segments)
	}

	util.LogDebug(fmt.Sprintf("Parsed file: %s, %d timeline objects", path, len(segments)))
	return segments, nil
}

// ParseFiles parses multiple files concurrently and returns a channel of ParseResult.
// Results arrive in completion order; Index restores the input order.
func (p *Parser) ParseFiles(ctx context.Context, fsys fs.FS, files []string) <-chan ParseResult {
	start := time.Now()
	results := make(chan ParseResult, len(files))
	var wg sync.WaitGroup

	util.LogDebug(fmt.Sprintf("Start concurrent parsing of %d files, concurrency: %d", len(files), p.concurrency))

	semaphore := make(chan struct{}, p.concurrency)

	for i, file := range files {
		wg.Add(1)
		go func(idx int, f string) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				results <- ParseResult{Index: idx, File: f, Error: ctx.Err()}
				return
			}
			defer func() { <-semaphore }()

			fileStart := time.Now()
			segments, err := p.ParseFile(fsys, f)
			fileDuration := time.Since(fileStart)

			if err != nil {
				util.LogDebug(fmt.Sprintf("File parsing failed: %s, duration %v - %v", f, fileDuration, err))
			}

			results <- ParseResult{
				Index:    idx,
				File:     f,
				Segments: segments,
				Error:    err,
			}
		}(i, file)
	}

	go func() {
		wg.Wait()
		close(results)

		util.LogDebug(fmt.Sprintf("Concurrent parsing finished, total duration: %v", time.Since(start)))
	}()

	return results
}
