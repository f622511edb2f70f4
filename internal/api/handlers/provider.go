package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/filemgr/spacescan/internal/provider/nextcloud"
)

// ProviderHandler passes provider-side maintenance operations through to the
// Nextcloud REST layer: filesystem rescans and user administration.
type ProviderHandler struct {
	Nextcloud *nextcloud.Client
}

// ScanAll handles PUT /api/provider/scans.
func (h *ProviderHandler) ScanAll(w http.ResponseWriter, r *http.Request) {
	if err := h.Nextcloud.ScanAllFiles(r.Context()); err != nil {
		slog.Error("provider: scan all", "error", err)
		writeError(w, http.StatusBadGateway, "PROVIDER_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"triggered": "all"})
}

// ScanUser handles PUT /api/provider/scans/{user}.
func (h *ProviderHandler) ScanUser(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	if err := h.Nextcloud.ScanUserFiles(r.Context(), user); err != nil {
		slog.Error("provider: scan user", "user", user, "error", err)
		writeError(w, http.StatusBadGateway, "PROVIDER_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"triggered": user})
}

// ScanDirectory handles PUT /api/provider/scans/directory/{dir...}.
func (h *ProviderHandler) ScanDirectory(w http.ResponseWriter, r *http.Request) {
	dir := chi.URLParam(r, "*")
	if err := h.Nextcloud.ScanDirectoryFiles(r.Context(), dir); err != nil {
		slog.Error("provider: scan directory", "dir", dir, "error", err)
		writeError(w, http.StatusBadGateway, "PROVIDER_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"triggered": dir})
}

// Users handles GET /api/provider/users.
func (h *ProviderHandler) Users(w http.ResponseWriter, r *http.Request) {
	body, err := h.Nextcloud.Users(r.Context())
	if err != nil {
		slog.Error("provider: users", "error", err)
		writeError(w, http.StatusBadGateway, "PROVIDER_ERROR", err.Error())
		return
	}
	// The provider response is already JSON; pass it through untouched.
	var raw json.RawMessage = body
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": raw})
}
