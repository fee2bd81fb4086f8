package scanner

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileScannerScanEmptyDirectory(t *testing.T) {
	scanner := NewFileScanner(os.DirFS(t.TempDir()))

	files, err := scanner.Scan()

	require.NoError(t, err)
	assert.Empty(t, files, "Empty directory should return no files")
}

func TestFileScannerScanNonExistentDirectory(t *testing.T) {
	scanner := NewFileScanner(os.DirFS(filepath.Join(t.TempDir(), "missing")))

	_, err := scanner.Scan()

	assert.Error(t, err)
}

func TestFileScannerScanMixedFileTypes(t *testing.T) {
	fsys := fstest.MapFS{
		"2019/2019_APRIL.json":    {Data: []byte("{}")},
		"2019/2019_MARCH.JSON":    {Data: []byte("{}")},
		"2019/notes.txt":          {Data: []byte("x")},
		"2019/backup.json.bak":    {Data: []byte("x")},
		"Records.jsonl":           {Data: []byte("x")},
		"2020/nested/extra.json":  {Data: []byte("{}")},
		"2020/nested/readme.html": {Data: []byte("x")},
	}

	files, err := NewFileScanner(fsys).Scan()

	require.NoError(t, err)
	assert.Equal(t, []string{
		"2019/2019_APRIL.json",
		"2019/2019_MARCH.JSON",
		"2020/nested/extra.json",
	}, files)
}

func TestFileScannerNaturalOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"file10.json": {Data: []byte("{}")},
		"file2.json":  {Data: []byte("{}")},
		"file1.json":  {Data: []byte("{}")},
	}

	files, err := NewFileScanner(fsys).Scan()

	require.NoError(t, err)
	assert.Equal(t, []string{"file1.json", "file2.json", "file10.json"}, files)
}

func TestFileScannerScanDirectory(t *testing.T) {
	tempDir := t.TempDir()
	for _, p := range []string{"a/one.json", "a/b/two.json", "c/three.txt"} {
		full := filepath.Join(tempDir, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte("{}"), 0644))
	}

	files, err := NewFileScanner(os.DirFS(tempDir)).Scan()

	require.NoError(t, err)
	assert.Equal(t, []string{"a/b/two.json", "a/one.json"}, files)
}
