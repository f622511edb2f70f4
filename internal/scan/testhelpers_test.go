package scan

import (
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/filemgr/spacescan/internal/checksum"
	"github.com/filemgr/spacescan/internal/metadata"
	"github.com/filemgr/spacescan/internal/report"
)

// newMemStore returns a report store over a fresh in-memory filesystem.
func newMemStore(tb testing.TB) *report.Store {
	tb.Helper()
	return report.NewStore(afero.NewMemMapFs(), "/.spacescan")
}

// seedFile writes content at path on fs, creating parent directories.
func seedFile(tb testing.TB, fs afero.Fs, path, content string) {
	tb.Helper()
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		tb.Fatalf("seed %q: %v", path, err)
	}
}

// fileEntry builds a file entry with the given modification time.
func fileEntry(path string, mtime time.Time, size int64) *metadata.Entry {
	return &metadata.Entry{
		ID:           fmt.Sprintf("id-%s", path),
		Path:         path,
		Type:         metadata.TypeFile,
		LastModified: mtime,
		Size:         size,
	}
}

// folderEntry builds a folder entry.
func folderEntry(path string, mtime time.Time) *metadata.Entry {
	return &metadata.Entry{
		ID:           fmt.Sprintf("id-%s", path),
		Path:         path,
		Type:         metadata.TypeFolder,
		LastModified: mtime,
	}
}

// newTarget wraps entries into a complete target for space rec-001.
func newTarget(entries ...*metadata.Entry) *metadata.Target {
	return metadata.NewTarget("rec-001", "/rec-001", entries, true)
}

// newEngine builds an engine whose content reads and report writes both go
// through fs.
func newEngine(tb testing.TB, fs afero.Fs) (*Engine, *report.Store) {
	tb.Helper()
	store := report.NewStore(fs, "/.spacescan")
	return NewEngine(store, checksum.New(fs)), store
}

// readerOver returns a content reader backed by fs.
func readerOver(tb testing.TB, fs afero.Fs) ContentReader {
	tb.Helper()
	return checksum.New(fs)
}

// flakyStore fails every Write after the first failAfter successes.
type flakyStore struct {
	inner     ReportStore
	failAfter int
	writes    int
}

func (s *flakyStore) Write(t *metadata.Target) (string, error) {
	if s.writes >= s.failAfter {
		return "", fmt.Errorf("disk full")
	}
	s.writes++
	return s.inner.Write(t)
}

// panicReader panics on every Sum call.
type panicReader struct{}

func (panicReader) Sum(path string) (string, error) {
	panic("reader exploded")
}

// stubRecorder captures history callbacks.
type stubRecorder struct {
	started  []string
	finished []string
	statuses []string
}

func (r *stubRecorder) ScanStarted(t *metadata.Target) error {
	r.started = append(r.started, t.ScanID)
	return nil
}

func (r *stubRecorder) ScanFinished(scanID, status string, checksummed, failed int) error {
	r.finished = append(r.finished, scanID)
	r.statuses = append(r.statuses, status)
	return nil
}
