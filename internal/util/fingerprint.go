package util

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"

	"github.com/zeebo/blake3"
)

// CalculateFingerprint hashes the names and contents of the given files, in order.
// The result identifies one exact input set.
func CalculateFingerprint(fsys fs.FS, paths []string) (string, error) {
	h := blake3.New()
	for _, p := range paths {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0})

		f, err := fsys.Open(p)
		if err != nil {
			return "", err
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", p, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)[:16]), nil
}
