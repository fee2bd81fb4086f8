package scanner

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	"github.com/penwyp/go-timeline-chat/internal/util"
)

// FileScanner finds timeline export files inside a file system
type FileScanner struct {
	fsys      fs.FS
	extension string
}

// NewFileScanner creates a new FileScanner instance
func NewFileScanner(fsys fs.FS) *FileScanner {
	return &FileScanner{
		fsys:      fsys,
		extension: ".json",
	}
}

// Scan walks the whole tree and returns every .json file path in natural order,
// so "file2" sorts before "file10".
func (s *FileScanner) Scan() ([]string, error) {
	start := time.Now()
	var files []string
	dirCount := 0
	totalCount := 0

	util.LogDebug("Start scanning export tree")

	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			dirCount++
			return nil
		}

		totalCount++
		if strings.EqualFold(path.Ext(p), s.extension) {
			files = append(files, p)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning export tree: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return natural.Less(files[i], files[j])
	})

	util.LogDebug(fmt.Sprintf("File scan completed: duration %v, scanned %d directories, %d files, found %d JSON files",
		time.Since(start), dirCount, totalCount, len(files)))

	return files, nil
}
