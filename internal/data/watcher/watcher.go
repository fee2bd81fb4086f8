package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/penwyp/go-timeline-chat/internal/core/model"
	"github.com/penwyp/go-timeline-chat/internal/util"
)

// DefaultDebounce is how long the tree must stay quiet before a change batch is emitted.
const DefaultDebounce = 2 * time.Second

type FileWatcher struct {
	watcher  *fsnotify.Watcher
	paths    []string
	events   chan model.FileEvent
	debounce time.Duration
}

func NewFileWatcher(paths []string, debounce time.Duration) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw := &FileWatcher{
		watcher:  watcher,
		paths:    paths,
		events:   make(chan model.FileEvent, 100),
		debounce: debounce,
	}

	// Add monitoring paths
	for _, path := range paths {
		if err := fw.addPath(path); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	go fw.processEvents()

	return fw, nil
}

func (fw *FileWatcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fw.watcher.Add(filepath.Dir(path))
	}

	// Recursively add directories
	return filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return fw.watcher.Add(p)
		}
		return nil
	})
}

func (fw *FileWatcher) processEvents() {
	defer close(fw.events)
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// New year folders appear while Takeout is being unpacked
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addPath(event.Name); err != nil {
						util.LogWarnf("Failed to watch %s: %v", event.Name, err)
					}
					continue
				}
			}

			if event.Op == fsnotify.Chmod || !strings.EqualFold(filepath.Ext(event.Name), ".json") {
				continue
			}
			fw.events <- model.FileEvent{
				Path:      event.Name,
				Operation: event.Op.String(),
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			// Log error but continue running
			util.LogError("File monitoring error: " + err.Error())
		}
	}
}

// Events returns every change to a .json file as it happens
func (fw *FileWatcher) Events() <-chan model.FileEvent {
	return fw.events
}

// Changes groups events into batches separated by at least the debounce interval
// of quiet. The channel closes when ctx ends or the watcher is closed.
// Use either Events or Changes, not both.
func (fw *FileWatcher) Changes(ctx context.Context) <-chan []model.FileEvent {
	out := make(chan []model.FileEvent)
	go func() {
		defer close(out)

		var pending []model.FileEvent
		timer := time.NewTimer(fw.debounce)
		timer.Stop()
		defer timer.Stop()

		emit := func() bool {
			batch := pending
			pending = nil
			select {
			case out <- batch:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.events:
				if !ok {
					if len(pending) > 0 {
						emit()
					}
					return
				}
				pending = append(pending, ev)
				timer.Reset(fw.debounce)
			case <-timer.C:
				if len(pending) > 0 && !emit() {
					return
				}
			}
		}
	}()
	return out
}

func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}
