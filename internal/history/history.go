// Package history records scans in SQLite so past activity survives process
// restarts. Rows here are best-effort audit data: the in-memory registry is
// the sole source of truth for whether a scan has finished.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/filemgr/spacescan/internal/metadata"
)

// Recorder writes and reads scan_history rows.
type Recorder struct {
	db *sql.DB
}

// New creates a Recorder over an opened, migrated database.
func New(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// ScanStarted inserts an in_progress row for the scan.
func (r *Recorder) ScanStarted(t *metadata.Target) error {
	now := time.Now().Unix()
	_, err := r.db.Exec(`
		INSERT INTO scan_history
			(scan_id, space_id, source_path, entries, status, started_at, created_at)
		VALUES (?, ?, ?, ?, 'in_progress', ?, ?)`,
		t.ScanID, t.SpaceID, t.SourcePath, len(t.Contents), now, now)
	if err != nil {
		return fmt.Errorf("insert scan history %s: %w", t.ScanID, err)
	}
	return nil
}

// ScanFinished marks the scan's row with its terminal status and counters.
func (r *Recorder) ScanFinished(scanID string, status string, checksummed, failed int) error {
	_, err := r.db.Exec(`
		UPDATE scan_history
		SET status = ?, files_checksummed = ?, entry_errors = ?, finished_at = ?
		WHERE scan_id = ?`,
		status, checksummed, failed, time.Now().Unix(), scanID)
	if err != nil {
		return fmt.Errorf("finish scan history %s: %w", scanID, err)
	}
	return nil
}

// Row is one scan_history record.
type Row struct {
	ScanID           string
	SpaceID          string
	SourcePath       string
	Entries          int64
	FilesChecksummed int64
	EntryErrors      int64
	Status           string
	StartedAt        time.Time
	FinishedAt       *time.Time
}

// List returns rows newest first, plus the total row count.
func (r *Recorder) List(ctx context.Context, limit, offset int) ([]Row, int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT scan_id, space_id, source_path, entries,
		       files_checksummed, entry_errors, status, started_at, finished_at
		FROM scan_history
		ORDER BY started_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list scan history: %w", err)
	}
	defer rows.Close()

	var items []Row
	for rows.Next() {
		var it Row
		var startedAt int64
		var finishedAt sql.NullInt64
		if err := rows.Scan(
			&it.ScanID, &it.SpaceID, &it.SourcePath, &it.Entries,
			&it.FilesChecksummed, &it.EntryErrors, &it.Status, &startedAt, &finishedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan history row: %w", err)
		}
		it.StartedAt = time.Unix(startedAt, 0).UTC()
		if finishedAt.Valid {
			t := time.Unix(finishedAt.Int64, 0).UTC()
			it.FinishedAt = &t
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan history rows: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_history`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scan history: %w", err)
	}
	return items, total, nil
}

// MarkStaleFailed flags rows still in_progress as failed. Called once at
// startup: a previous process that crashed mid-scan can never finish them,
// since registry state does not survive restarts.
func MarkStaleFailed(d *sql.DB) error {
	res, err := d.Exec(`
		UPDATE scan_history
		SET status = 'failed', finished_at = ?
		WHERE status = 'in_progress'`,
		time.Now().Unix())
	if err != nil {
		return fmt.Errorf("mark stale scans failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Warn("marked stale scans as failed", "count", n)
	}
	return nil
}
