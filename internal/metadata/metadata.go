// Package metadata defines the scan target snapshot: the typed description
// of a space's contents at scan start, mutated in place as checksums are
// computed and serialised verbatim into the durable report.
package metadata

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalid wraps all validation failures on a scan target. These are fatal
// to the fast phase and surface synchronously to the caller starting a scan.
var ErrInvalid = errors.New("invalid scan metadata")

// EntryType distinguishes files from folders in a listing.
type EntryType string

const (
	TypeFile   EntryType = "file"
	TypeFolder EntryType = "folder"
)

// Entry is one file or folder from the provider listing. Checksum and
// LastChecksumDate only ever change together; ScanErrors accumulates across
// scan attempts and is never cleared automatically.
type Entry struct {
	ID               string     `json:"id"`
	Path             string     `json:"path"`
	Type             EntryType  `json:"resource_type"`
	LastModified     time.Time  `json:"last_modified"`
	Size             int64      `json:"size,omitempty"`
	Checksum         string     `json:"checksum,omitempty"`
	LastChecksumDate *time.Time `json:"last_checksum_date,omitempty"`
	ScanErrors       []string   `json:"scan_errors,omitempty"`
}

// NeedsChecksum reports whether the slow phase must (re)compute this entry's
// digest. Folders never need one. A file with no LastChecksumDate has never
// been checksummed and is always selected.
func (e *Entry) NeedsChecksum() bool {
	if e.Type != TypeFile {
		return false
	}
	if e.LastChecksumDate == nil {
		return true
	}
	return e.LastModified.After(*e.LastChecksumDate)
}

// SetChecksum records a freshly computed digest. The digest and its
// timestamp always move as a pair.
func (e *Entry) SetChecksum(digest string, at time.Time) {
	e.Checksum = digest
	t := at
	e.LastChecksumDate = &t
}

// RecordError appends a scan error message to the entry's log.
func (e *Entry) RecordError(msg string) {
	e.ScanErrors = append(e.ScanErrors, msg)
}

// Target identifies one scan operation: a point-in-time listing of a space
// plus bookkeeping stamped at scan start. ScanID is unique per invocation
// and never reused.
type Target struct {
	SpaceID      string    `json:"space_id"`
	ScanID       string    `json:"scan_id"`
	ScanTime     float64   `json:"scan_time"`
	ScanDateTime string    `json:"scan_datetime"`
	SourcePath   string    `json:"source_path"`
	Contents     []*Entry  `json:"contents"`
	LastModified time.Time `json:"last_modified"`
	IsComplete   bool      `json:"is_complete"`
}

// NewTarget stamps a fresh scan identifier and start time over a listing
// page. complete marks whether entries is the full listing or just the
// first page; further pages are added with Merge.
func NewTarget(spaceID, sourcePath string, entries []*Entry, complete bool) *Target {
	now := time.Now().UTC()
	t := &Target{
		SpaceID:      spaceID,
		ScanID:       uuid.NewString(),
		ScanTime:     float64(now.UnixNano()) / 1e9,
		ScanDateTime: now.Format(time.RFC3339),
		SourcePath:   sourcePath,
		Contents:     entries,
		IsComplete:   complete,
	}
	if t.Contents == nil {
		t.Contents = []*Entry{}
	}
	t.refreshLastModified()
	return t
}

// Merge appends a further listing page. Entries are keyed uniquely by path;
// a path already present wins over its duplicate in the new page, keeping
// listing order stable. complete marks whether this was the final page.
func (t *Target) Merge(page []*Entry, complete bool) {
	seen := make(map[string]struct{}, len(t.Contents))
	for _, e := range t.Contents {
		seen[e.Path] = struct{}{}
	}
	for _, e := range page {
		if _, dup := seen[e.Path]; dup {
			continue
		}
		seen[e.Path] = struct{}{}
		t.Contents = append(t.Contents, e)
	}
	t.IsComplete = complete
	t.refreshLastModified()
}

// refreshLastModified raises LastModified to the most recent entry timestamp.
func (t *Target) refreshLastModified() {
	for _, e := range t.Contents {
		if e.LastModified.After(t.LastModified) {
			t.LastModified = e.LastModified
		}
	}
}

// Validate checks the fields the scan engine depends on. Any failure is an
// input error: fatal to the fast phase, reported synchronously.
func (t *Target) Validate() error {
	if t.SpaceID == "" {
		return fmt.Errorf("%w: missing space_id", ErrInvalid)
	}
	if t.ScanID == "" {
		return fmt.Errorf("%w: missing scan_id", ErrInvalid)
	}
	if t.SourcePath == "" {
		return fmt.Errorf("%w: missing source_path", ErrInvalid)
	}
	if t.Contents == nil {
		return fmt.Errorf("%w: missing contents", ErrInvalid)
	}
	seen := make(map[string]struct{}, len(t.Contents))
	for i, e := range t.Contents {
		if e.Path == "" {
			return fmt.Errorf("%w: entry %d has no path", ErrInvalid, i)
		}
		if _, dup := seen[e.Path]; dup {
			return fmt.Errorf("%w: duplicate entry path %q", ErrInvalid, e.Path)
		}
		seen[e.Path] = struct{}{}
		switch e.Type {
		case TypeFile:
			if e.LastModified.IsZero() {
				return fmt.Errorf("%w: file entry %q has no last_modified", ErrInvalid, e.Path)
			}
		case TypeFolder:
			if e.Checksum != "" || e.Size != 0 {
				return fmt.Errorf("%w: folder entry %q carries file attributes", ErrInvalid, e.Path)
			}
		default:
			return fmt.Errorf("%w: entry %q has unknown resource_type %q", ErrInvalid, e.Path, e.Type)
		}
	}
	return nil
}
