// Package report persists scan target snapshots as JSON documents in a
// provider-side system directory not visible to end users.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/spf13/afero"

	"github.com/filemgr/spacescan/internal/metadata"
)

// ErrNotFound is returned when no report exists for a scan identifier.
var ErrNotFound = errors.New("report not found")

// Store writes one document per scan. The document location is deterministic
// from the scan identifier alone, so status polling and deletion need no
// extra bookkeeping to find it.
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore returns a Store rooted at dir on fs.
func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// Location returns the report path for a scan identifier.
func (s *Store) Location(scanID string) string {
	return path.Join(s.dir, fmt.Sprintf("report-%s.json", scanID))
}

// Write persists the full snapshot, overwriting any previous report for the
// same scan_id. The write goes to a temp file first and is renamed into
// place, so a crash mid-write leaves the previous snapshot intact.
func (s *Store) Write(t *metadata.Target) (string, error) {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir %q: %w", s.dir, err)
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report %s: %w", t.ScanID, err)
	}

	loc := s.Location(t.ScanID)
	tmp := loc + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", t.ScanID, err)
	}
	if err := s.fs.Rename(tmp, loc); err != nil {
		return "", fmt.Errorf("publish report %s: %w", t.ScanID, err)
	}
	return loc, nil
}

// Read loads the persisted snapshot for scanID.
func (s *Store) Read(scanID string) (*metadata.Target, error) {
	data, err := afero.ReadFile(s.fs, s.Location(scanID))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, scanID)
	}
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", scanID, err)
	}
	var t metadata.Target
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", scanID, err)
	}
	return &t, nil
}

// Delete removes the report for scanID.
func (s *Store) Delete(scanID string) error {
	err := s.fs.Remove(s.Location(scanID))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, scanID)
	}
	if err != nil {
		return fmt.Errorf("delete report %s: %w", scanID, err)
	}
	return nil
}
