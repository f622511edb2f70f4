package scan

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/filemgr/spacescan/internal/metadata"
)

// ReportStore is the durable side of a scan. Write persists the full
// snapshot and returns its location.
type ReportStore interface {
	Write(t *metadata.Target) (location string, err error)
}

// ContentReader produces a content digest for a provider path. This and the
// listing call are the only two provider operations the engine needs.
type ContentReader interface {
	Sum(path string) (string, error)
}

// Engine runs the two scan phases against a single space snapshot.
type Engine struct {
	store  ReportStore
	reader ContentReader
}

// NewEngine creates an Engine.
func NewEngine(store ReportStore, reader ContentReader) *Engine {
	return &Engine{store: store, reader: reader}
}

// FastScan validates the snapshot and persists it without computing any
// checksums, so the caller immediately has a named report to poll.
// Re-running with the same scan_id overwrites the same report.
func (e *Engine) FastScan(t *metadata.Target) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	loc, err := e.store.Write(t)
	if err != nil {
		return "", fmt.Errorf("persist report %s: %w", t.ScanID, err)
	}
	slog.Info("fast scan persisted",
		"scan_id", t.ScanID,
		"space_id", t.SpaceID,
		"entries", len(t.Contents),
		"complete", t.IsComplete)
	return loc, nil
}

// SlowScan reconciles checksums for the snapshot, in listing order:
//
//   - folders and files checksummed since their last modification are
//     skipped, so a re-run after a partial failure only touches entries that
//     are still stale or still failed;
//   - a checksum failure is recorded in the entry's scan_errors and the scan
//     moves on, leaving checksum and last_checksum_date untouched;
//   - the full snapshot is persisted after every entry, success or failure,
//     so an interruption loses at most one entry's worth of work.
//
// A failure to persist aborts the phase; silent data loss must not happen.
// A started slow scan has no cancellation: it runs to completion or failure.
// Returns the report location.
func (e *Engine) SlowScan(t *metadata.Target) (string, error) {
	var loc string

	for _, entry := range t.Contents {
		if !entry.NeedsChecksum() {
			continue
		}

		digest, err := e.reader.Sum(entry.Path)
		if err != nil {
			slog.Warn("checksum failed", "scan_id", t.ScanID, "path", entry.Path, "error", err)
			entry.RecordError(err.Error())
		} else {
			entry.SetChecksum(digest, time.Now().UTC())
		}

		l, werr := e.store.Write(t)
		if werr != nil {
			return "", fmt.Errorf("persist report %s after %q: %w", t.ScanID, entry.Path, werr)
		}
		loc = l
	}

	// Nothing was stale: rewrite the snapshot once to obtain the location.
	// The document content is unchanged, so the rewrite is byte-identical.
	if loc == "" {
		l, err := e.store.Write(t)
		if err != nil {
			return "", fmt.Errorf("persist report %s: %w", t.ScanID, err)
		}
		loc = l
	}

	return loc, nil
}
