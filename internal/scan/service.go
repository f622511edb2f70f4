package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/filemgr/spacescan/internal/metadata"
	"github.com/filemgr/spacescan/internal/report"
)

// Lister is the provider listing call: one page of already-structured
// resource entries for a space path. complete reports whether the page ends
// the listing; when false the service asks for the next page before the
// space is considered scanned.
type Lister interface {
	ListSpace(ctx context.Context, sourcePath string, page int) (entries []*metadata.Entry, complete bool, err error)
}

// Service ties the provider listing, the two scan phases, the registry, and
// the durable store into the scan lifecycle the HTTP layer exposes.
type Service struct {
	lister   Lister
	engine   *Engine
	registry *Registry
	runner   *Runner
	reports  *report.Store
	history  HistoryRecorder // may be nil
}

// NewService creates a Service. history may be nil.
func NewService(lister Lister, engine *Engine, registry *Registry, runner *Runner, reports *report.Store, history HistoryRecorder) *Service {
	return &Service{
		lister:   lister,
		engine:   engine,
		registry: registry,
		runner:   runner,
		reports:  reports,
		history:  history,
	}
}

// Start lists the space, runs the fast phase synchronously, registers the
// scan, and launches the slow phase in the background. It returns the new
// scan_id as soon as the initial report is persisted; the fast phase never
// blocks on the slow one.
func (s *Service) Start(ctx context.Context, spaceID string) (string, error) {
	sourcePath := SpacePath(spaceID)

	entries, complete, err := s.lister.ListSpace(ctx, sourcePath, 0)
	if err != nil {
		return "", fmt.Errorf("list space %q: %w", spaceID, err)
	}
	t := metadata.NewTarget(spaceID, sourcePath, entries, complete)

	// A partial page means the listing is paginated; keep merging pages
	// until the provider reports the listing complete.
	for page := 1; !t.IsComplete; page++ {
		more, complete, err := s.lister.ListSpace(ctx, sourcePath, page)
		if err != nil {
			return "", fmt.Errorf("list space %q page %d: %w", spaceID, page, err)
		}
		t.Merge(more, complete)
	}

	if _, err := s.engine.FastScan(t); err != nil {
		return "", err
	}
	if err := s.registry.Create(t.ScanID, spaceID); err != nil {
		return "", err
	}
	if s.history != nil {
		if err := s.history.ScanStarted(t); err != nil {
			slog.Warn("record scan start", "scan_id", t.ScanID, "error", err)
		}
	}

	s.runner.Launch(t)
	return t.ScanID, nil
}

// StatusResult is a registry snapshot plus, when available, the persisted
// report contents.
type StatusResult struct {
	Entry  Entry
	Report *metadata.Target
}

// Status returns the current registry state for scanID along with the
// persisted report when one exists.
func (s *Service) Status(scanID string) (StatusResult, error) {
	e, err := s.registry.Get(scanID)
	if err != nil {
		return StatusResult{}, err
	}
	res := StatusResult{Entry: e}

	t, err := s.reports.Read(scanID)
	if err != nil {
		if !errors.Is(err, report.ErrNotFound) {
			slog.Warn("read report", "scan_id", scanID, "error", err)
		}
		return res, nil
	}
	res.Report = t
	return res, nil
}

// Delete removes the registry entry and the durable report for scanID.
// An unknown scan_id is a not-found outcome, distinct from success. Deletion
// does not stop an in-flight slow scan; its remaining writes are orphaned.
func (s *Service) Delete(scanID string) error {
	if err := s.registry.Delete(scanID); err != nil {
		return err
	}
	if err := s.reports.Delete(scanID); err != nil && !errors.Is(err, report.ErrNotFound) {
		return fmt.Errorf("delete report %s: %w", scanID, err)
	}
	return nil
}

// SpacePath returns the canonical provider path of a space as the storage
// provider sees it.
func SpacePath(spaceID string) string {
	return "/" + strings.Trim(spaceID, "/")
}
