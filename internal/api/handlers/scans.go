package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/filemgr/spacescan/internal/history"
	"github.com/filemgr/spacescan/internal/metadata"
	"github.com/filemgr/spacescan/internal/scan"
)

// ScansHandler exposes the scan lifecycle: start, poll, delete, history.
type ScansHandler struct {
	Service *scan.Service
	History *history.Recorder
}

// Start handles PUT /api/spaces/{space}/scans. It runs the fast phase and
// returns the scan_id; checksums follow in the background.
func (h *ScansHandler) Start(w http.ResponseWriter, r *http.Request) {
	space := chi.URLParam(r, "space")
	if space == "" {
		writeError(w, http.StatusBadRequest, "INVALID_SPACE", "Missing space name")
		return
	}

	scanID, err := h.Service.Start(r.Context(), space)
	if err != nil {
		if errors.Is(err, metadata.ErrInvalid) {
			writeError(w, http.StatusBadRequest, "INVALID_METADATA", err.Error())
			return
		}
		slog.Error("scans: start", "space", space, "error", err)
		writeError(w, http.StatusBadGateway, "SCAN_START_FAILED", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"scan_id": scanID,
		"status":  scan.StatusInProgress,
		"message": "Scanning successfully started!",
	})
}

// Status handles GET /api/scans/{scanID}. It returns registry state plus the
// persisted report when one exists.
func (h *ScansHandler) Status(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")

	res, err := h.Service.Status(scanID)
	if err != nil {
		if errors.Is(err, scan.ErrScanNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Scan ID not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	body := map[string]interface{}{
		"scan_id":    res.Entry.ScanID,
		"space_id":   res.Entry.SpaceID,
		"status":     res.Entry.Status,
		"started_at": res.Entry.StartedAt.UTC().Format(time.RFC3339),
	}
	if res.Entry.ReportLocation != "" {
		body["report_location"] = res.Entry.ReportLocation
	}
	if res.Entry.Error != "" {
		body["error"] = res.Entry.Error
	}
	if res.Report != nil {
		body["report"] = res.Report
	}
	writeJSON(w, http.StatusOK, body)
}

// Delete handles DELETE /api/scans/{scanID}. It removes the registry entry
// and the durable report.
func (h *ScansHandler) Delete(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")

	if err := h.Service.Delete(scanID); err != nil {
		if errors.Is(err, scan.ErrScanNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Scan ID not found")
			return
		}
		slog.Error("scans: delete", "scan_id", scanID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": scanID})
}

// List handles GET /api/scans, returning audit history newest first.
func (h *ScansHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	rows, total, err := h.History.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("scans list", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	type scanItem struct {
		ScanID           string  `json:"scan_id"`
		SpaceID          string  `json:"space_id"`
		SourcePath       string  `json:"source_path"`
		Entries          int64   `json:"entries"`
		FilesChecksummed int64   `json:"files_checksummed"`
		EntryErrors      int64   `json:"entry_errors"`
		Status           string  `json:"status"`
		StartedAt        string  `json:"started_at"`
		FinishedAt       *string `json:"finished_at"`
	}

	items := make([]scanItem, 0, len(rows))
	for _, row := range rows {
		it := scanItem{
			ScanID:           row.ScanID,
			SpaceID:          row.SpaceID,
			SourcePath:       row.SourcePath,
			Entries:          row.Entries,
			FilesChecksummed: row.FilesChecksummed,
			EntryErrors:      row.EntryErrors,
			Status:           row.Status,
			StartedAt:        row.StartedAt.Format(time.RFC3339),
		}
		if row.FinishedAt != nil {
			s := row.FinishedAt.Format(time.RFC3339)
			it.FinishedAt = &s
		}
		items = append(items, it)
	}

	writeJSON(w, http.StatusOK, ListResponse[scanItem]{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}
