package scan

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrScanExists is returned when a scan_id is registered twice. Identifiers
// are generated fresh per scan, so this is a programming error rather than a
// user-facing condition.
var ErrScanExists = errors.New("scan already registered")

// ErrScanNotFound is returned for unknown scan identifiers. It is a normal,
// reportable outcome on status and delete, not a fault.
var ErrScanNotFound = errors.New("scan not found")

// Status of a scan in the registry. Transitions are monotone: in_progress
// moves to completed or failed and never reverts.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Entry is the registry's view of one scan.
type Entry struct {
	ScanID         string
	SpaceID        string
	Status         Status
	ReportLocation string
	Error          string
	StartedAt      time.Time
}

// Registry tracks scans for the lifetime of the process. It is intentionally
// volatile: a restart forgets every entry while persisted reports remain on
// disk as the best-effort record of progress. Safe for concurrent use by the
// request path and every in-flight background task.
type Registry struct {
	mu    sync.RWMutex
	scans map[string]Entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{scans: make(map[string]Entry)}
}

// Create inserts a new in_progress entry for scanID.
func (r *Registry) Create(scanID, spaceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.scans[scanID]; ok {
		return fmt.Errorf("%w: %s", ErrScanExists, scanID)
	}
	r.scans[scanID] = Entry{
		ScanID:    scanID,
		SpaceID:   spaceID,
		Status:    StatusInProgress,
		StartedAt: time.Now().UTC(),
	}
	return nil
}

// Get returns a snapshot of the entry for scanID.
func (r *Registry) Get(scanID string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.scans[scanID]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrScanNotFound, scanID)
	}
	return e, nil
}

// Complete transitions scanID to completed and records the final report
// location. Callers must only invoke this after the final persisted write
// has succeeded: the registry must never report completed early.
func (r *Registry) Complete(scanID, reportLocation string) error {
	return r.transition(scanID, func(e *Entry) {
		e.Status = StatusCompleted
		e.ReportLocation = reportLocation
	})
}

// Fail transitions scanID to failed with a human-readable description.
func (r *Registry) Fail(scanID, errMsg string) error {
	return r.transition(scanID, func(e *Entry) {
		e.Status = StatusFailed
		e.Error = errMsg
	})
}

// transition applies mutate to an in_progress entry. An absent entry or one
// that already reached a terminal status reports an inconsistency.
func (r *Registry) transition(scanID string, mutate func(*Entry)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.scans[scanID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrScanNotFound, scanID)
	}
	if e.Status != StatusInProgress {
		return fmt.Errorf("scan %s already %s", scanID, e.Status)
	}
	mutate(&e)
	r.scans[scanID] = e
	return nil
}

// Delete removes the entry for scanID. The caller is responsible for also
// removing the durable report.
func (r *Registry) Delete(scanID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.scans[scanID]; !ok {
		return fmt.Errorf("%w: %s", ErrScanNotFound, scanID)
	}
	delete(r.scans, scanID)
	return nil
}

// Active returns the number of in_progress scans.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.scans {
		if e.Status == StatusInProgress {
			n++
		}
	}
	return n
}
