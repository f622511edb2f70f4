// Package checksum computes content digests for scan entries.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// chunkSize is the fixed read size; memory use stays flat regardless of how
// large the file is.
const chunkSize = 64 * 1024

// Computer produces SHA-256 digests of file content, reading through the
// given filesystem (the mounted provider storage in production, an in-memory
// fs in tests).
type Computer struct {
	fs afero.Fs
}

// New returns a Computer reading from fs.
func New(fs afero.Fs) *Computer {
	return &Computer{fs: fs}
}

// Sum returns the lowercase-hex SHA-256 digest of the file at path.
// An unreadable path yields an I/O error; the caller decides whether that is
// fatal to the whole scan or recorded per entry.
func (c *Computer) Sum(path string) (string, error) {
	f, err := c.fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("read %q: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
