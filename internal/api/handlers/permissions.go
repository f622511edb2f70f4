package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/filemgr/spacescan/internal/provider/nextcloud"
)

// PermissionsHandler exposes per-user permission management on directories,
// backed by the provider REST layer.
type PermissionsHandler struct {
	Nextcloud *nextcloud.Client
}

// Get handles GET /api/permissions/{dir}: the permission number and its
// named level for a directory.
func (h *PermissionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	dir := chi.URLParam(r, "dir")

	body, err := h.Nextcloud.UserPermissions(r.Context(), dir)
	if err != nil {
		slog.Error("permissions: get", "dir", dir, "error", err)
		writeError(w, http.StatusBadGateway, "PROVIDER_ERROR", err.Error())
		return
	}

	n, ok := nextcloud.ExtractPermissions(body)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"directory":   dir,
			"permissions": nextcloud.PermissionNone,
		})
		return
	}
	level, err := nextcloud.PermissionString(n)
	if err != nil {
		writeError(w, http.StatusBadGateway, "INVALID_PERMISSIONS", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"directory":   dir,
		"number":      n,
		"permissions": level,
	})
}

// Set handles POST /api/permissions/{user}/{level}/{dir}.
func (h *PermissionsHandler) Set(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	level := chi.URLParam(r, "level")
	dir := chi.URLParam(r, "dir")

	if _, err := nextcloud.PermissionNumber(level); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_LEVEL", err.Error())
		return
	}

	body, err := h.Nextcloud.SetUserPermissions(r.Context(), user, level, dir)
	if err != nil {
		slog.Error("permissions: set", "user", user, "dir", dir, "error", err)
		writeError(w, http.StatusBadGateway, "PROVIDER_ERROR", err.Error())
		return
	}
	if msgs := nextcloud.ExtractFailureMessages(body); msgs != "" {
		writeError(w, http.StatusBadGateway, "PROVIDER_REJECTED", msgs)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":        user,
		"directory":   dir,
		"permissions": level,
	})
}

// Delete handles DELETE /api/permissions/{user}/{dir}.
func (h *PermissionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	dir := chi.URLParam(r, "dir")

	body, err := h.Nextcloud.DeleteUserPermissions(r.Context(), user, dir)
	if err != nil {
		slog.Error("permissions: delete", "user", user, "dir", dir, "error", err)
		writeError(w, http.StatusBadGateway, "PROVIDER_ERROR", err.Error())
		return
	}
	if msgs := nextcloud.ExtractFailureMessages(body); msgs != "" {
		writeError(w, http.StatusBadGateway, "PROVIDER_REJECTED", msgs)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":      user,
		"directory": dir,
		"deleted":   true,
	})
}
