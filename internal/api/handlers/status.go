package handlers

import (
	"net/http"
	"time"

	"github.com/filemgr/spacescan/internal/scan"
	"github.com/filemgr/spacescan/internal/scheduler"
)

// StatusHandler reports service health and live scan activity.
type StatusHandler struct {
	Registry *scan.Registry
	Sched    *scheduler.Scheduler
	Version  string
}

// ServeHTTP handles GET /api/status.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":       "ok",
		"version":      h.Version,
		"active_scans": h.Registry.Active(),
	}
	if h.Sched != nil {
		if next := h.Sched.NextRunAt(); next != nil {
			body["next_scheduled_scan"] = next.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, body)
}
