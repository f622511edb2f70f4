package scan

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/filemgr/spacescan/internal/metadata"
)

// HistoryRecorder receives best-effort lifecycle events for the durable
// audit trail. Recording failures are logged, never propagated: the
// registry, not the history table, is the source of truth for scan status.
type HistoryRecorder interface {
	ScanStarted(t *metadata.Target) error
	ScanFinished(scanID string, status string, checksummed, failed int) error
}

// Runner executes the slow phase off the request path. Each launched scan
// owns its snapshot outright; completion and failure are communicated solely
// through the registry, never through state captured from the request.
type Runner struct {
	engine   *Engine
	registry *Registry
	history  HistoryRecorder // may be nil
	wg       sync.WaitGroup
}

// NewRunner creates a Runner. history may be nil to disable audit records.
func NewRunner(engine *Engine, registry *Registry, history HistoryRecorder) *Runner {
	return &Runner{engine: engine, registry: registry, history: history}
}

// Launch starts the slow phase for t in its own goroutine. Exactly one
// execution is launched per scan_id; the registry entry for t.ScanID must
// already exist in in_progress state.
func (r *Runner) Launch(t *metadata.Target) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(t)
	}()
}

// Wait blocks until every launched scan has finished. Called on shutdown so
// in-flight reports are fully persisted before the process exits.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(t *metadata.Target) {
	defer func() {
		if v := recover(); v != nil {
			msg := fmt.Sprintf("slow scan panic: %v", v)
			slog.Error("slow scan panicked", "scan_id", t.ScanID, "panic", v)
			r.fail(t, msg)
		}
	}()

	loc, err := r.engine.SlowScan(t)
	if err != nil {
		slog.Error("slow scan failed", "scan_id", t.ScanID, "space_id", t.SpaceID, "error", err)
		r.fail(t, err.Error())
		return
	}

	if err := r.registry.Complete(t.ScanID, loc); err != nil {
		slog.Error("registry transition to completed", "scan_id", t.ScanID, "error", err)
	}
	r.record(t, string(StatusCompleted))
	slog.Info("slow scan completed",
		"scan_id", t.ScanID,
		"space_id", t.SpaceID,
		"entries", len(t.Contents))
}

func (r *Runner) fail(t *metadata.Target, msg string) {
	if err := r.registry.Fail(t.ScanID, msg); err != nil {
		slog.Error("registry transition to failed", "scan_id", t.ScanID, "error", err)
	}
	r.record(t, string(StatusFailed))
}

func (r *Runner) record(t *metadata.Target, status string) {
	if r.history == nil {
		return
	}
	checksummed, failed := 0, 0
	for _, e := range t.Contents {
		if e.Checksum != "" {
			checksummed++
		}
		if len(e.ScanErrors) > 0 {
			failed++
		}
	}
	if err := r.history.ScanFinished(t.ScanID, status, checksummed, failed); err != nil {
		slog.Warn("record scan history", "scan_id", t.ScanID, "error", err)
	}
}
