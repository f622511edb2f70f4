package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/filemgr/spacescan/internal/provider/webdav"
)

// maxUploadBytes bounds multipart memory use; larger files spill to disk.
const maxUploadBytes = 32 << 20

// FilesHandler manages files in a user's space through the WebDAV client.
type FilesHandler struct {
	WebDAV *webdav.Client
}

// Upload handles POST /api/files/{destination...}: a multipart upload into
// an existing directory.
func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	destination := chi.URLParam(r, "*")

	if destination != "" {
		isDir, err := h.WebDAV.IsDir(r.Context(), destination)
		if err != nil {
			slog.Error("files: stat destination", "path", destination, "error", err)
			writeError(w, http.StatusBadGateway, "PROVIDER_ERROR", err.Error())
			return
		}
		if !isDir {
			writeError(w, http.StatusBadRequest, "NO_SUCH_DIRECTORY",
				fmt.Sprintf("Directory %q does not exist!", destination))
			return
		}
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", "Malformed multipart request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", "Missing 'file' form field")
		return
	}
	defer file.Close()

	target := path.Join("/", destination, header.Filename)
	if err := h.WebDAV.Upload(r.Context(), target, file); err != nil {
		slog.Error("files: upload", "path", target, "error", err)
		writeError(w, http.StatusBadGateway, "UPLOAD_FAILED", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": fmt.Sprintf("Created file %q in %q successfully!", header.Filename, destination),
		"path":    target,
	})
}

// Content handles GET /api/files/{target...}, returning the file bytes.
func (h *FilesHandler) Content(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "*")

	data, err := h.WebDAV.Download(r.Context(), target)
	if err != nil {
		if errors.Is(err, webdav.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "File not found")
			return
		}
		writeError(w, http.StatusBadGateway, "PROVIDER_ERROR", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Info handles GET /api/info/{target...}: provider metadata for one file or
// folder.
func (h *FilesHandler) Info(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "*")

	entry, err := h.WebDAV.Stat(r.Context(), target)
	if err != nil {
		if errors.Is(err, webdav.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Path not found")
			return
		}
		writeError(w, http.StatusBadGateway, "PROVIDER_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Delete handles DELETE /api/files/{target...}.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "*")

	if err := h.WebDAV.Delete(r.Context(), target); err != nil {
		if errors.Is(err, webdav.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Path not found")
			return
		}
		writeError(w, http.StatusBadGateway, "PROVIDER_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": target})
}

// Mkdir handles POST /api/directories/{target...}.
func (h *FilesHandler) Mkdir(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "*")
	if target == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PATH", "Missing directory path")
		return
	}

	if err := h.WebDAV.Mkdir(r.Context(), target); err != nil {
		writeError(w, http.StatusBadGateway, "PROVIDER_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"created": target})
}
