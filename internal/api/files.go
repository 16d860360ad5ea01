package api

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/inkwell/internal/storage"
)

const maxUploadBytes = 50 << 20 // 50 MB

// FileHandler serves workspace files to the preview (images, linked
// documents) and accepts uploads next to the documents that embed them.
type FileHandler struct {
	store storage.Provider
}

// NewFileHandler creates a handler reading and writing through store.
func NewFileHandler(store storage.Provider) *FileHandler {
	return &FileHandler{store: store}
}

// filePath extracts the workspace-relative path after /files/.
// Supports encoded slashes (e.g. notes%2Fimg.png).
func filePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ServeFile handles GET /api/files/*.
func (h *FileHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	rel := filePath(r)
	if rel == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	f, err := h.store.ReadFile(r.Context(), rel)
	if err != nil {
		writeError(w, "serve file", err)
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, filepath.Base(f.Path), time.Time{}, bytes.NewReader(f.Content))
}

// Upload handles POST /api/files (multipart/form-data, field "file", optional
// field "dir" relative to the projects root).
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name := filepath.Base(filepath.Clean(header.Filename))
	if name == "." || name == string(filepath.Separator) || strings.HasPrefix(name, "..") {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid filename: "+header.Filename))
		return
	}
	rel := filepath.Join(r.FormValue("dir"), name)

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}
	written, err := h.store.WriteFile(r.Context(), rel, data)
	if err != nil {
		writeError(w, "upload", err)
		return
	}

	relWritten, _ := filepath.Rel(h.store.Root(), written)
	writeJSON(w, http.StatusCreated, UploadResponse{
		Path: written,
		Size: int64(len(data)),
		URL:  "/api/files/" + filepath.ToSlash(relWritten),
	})
}
