package api

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/inkwell/internal/dialog"
	"github.com/starford/inkwell/internal/scroll"
	"github.com/starford/inkwell/internal/workbench"
)

// previewWait bounds how long GET /document/preview waits for a pending render.
const previewWait = 5 * time.Second

// Handler holds API route handlers.
type Handler struct {
	wb *workbench.Workbench
}

// NewHandler creates a new Handler.
func NewHandler(wb *workbench.Workbench) *Handler {
	return &Handler{wb: wb}
}

// abs resolves a request path against the projects root and cleans it, so
// it matches the paths the tree and the session hold.
func (h *Handler) abs(p string) string {
	switch {
	case p == "":
		return ""
	case filepath.IsAbs(p):
		return filepath.Clean(p)
	}
	return filepath.Join(h.wb.Tree.Root(), p)
}

// GetDocument handles GET /api/document.
//
//	@Summary		Current document session
//	@Tags			document
//	@Produce		json
//	@Success		200	{object}	DocumentResponse
//	@Security		BearerAuth
//	@Router			/document [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.wb.Session.Snapshot())
}

// NewDocument handles POST /api/document/new.
func (h *Handler) NewDocument(w http.ResponseWriter, r *http.Request) {
	h.wb.NewDocument()
	writeJSON(w, http.StatusOK, h.wb.Session.Snapshot())
}

// OpenDocument handles POST /api/document/open.
//
//	@Summary		Open a file, replacing the session
//	@Tags			document
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PathRequest	true	"File to open"
//	@Success		200		{object}	DocumentResponse
//	@Success		204		"Cancelled"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/document/open [post]
func (h *Handler) OpenDocument(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decode(w, r, &req) {
		return
	}
	// The path doubles as the picker answer; empty means cancelled.
	if err := h.wb.OpenDocument(r.Context(), "", dialog.Preset{Path: h.abs(req.Path)}); err != nil {
		writeError(w, "open document", err)
		return
	}
	writeJSON(w, http.StatusOK, h.wb.Session.Snapshot())
}

// EditText handles PUT /api/document/text.
//
//	@Summary		Replace the editor text and schedule a render
//	@Tags			document
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TextRequest	true	"New text"
//	@Success		200		{object}	RevResponse
//	@Security		BearerAuth
//	@Router			/document/text [put]
func (h *Handler) EditText(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, RevResponse{Rev: h.wb.Session.EditText(req.Text)})
}

// SaveDocument handles POST /api/document/save. Path is only consulted for
// a never-saved document.
//
//	@Summary		Save the document
//	@Tags			document
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PathRequest	false	"Destination for a new document"
//	@Success		200		{object}	PathResponse
//	@Success		204		"Cancelled"
//	@Security		BearerAuth
//	@Router			/document/save [post]
func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	path, err := h.wb.Session.Save(r.Context(), dialog.Preset{Path: h.abs(req.Path)})
	if err != nil {
		writeError(w, "save document", err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: path})
}

// ExportDocument handles POST /api/document/export.
func (h *Handler) ExportDocument(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	path, err := h.wb.Session.ExportPDF(r.Context(), "", dialog.Preset{Path: h.abs(req.Path)})
	if err != nil {
		writeError(w, "export document", err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: path})
}

// Preview handles GET /api/document/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), previewWait)
	defer cancel()
	res, err := h.wb.Session.Preview(ctx)
	if err != nil {
		writeError(w, "preview", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Render handles POST /api/render. It never touches the session.
//
//	@Summary		Render markdown to HTML
//	@Tags			render
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TextRequest	true	"Markdown"
//	@Success		200		{object}	RenderResponse
//	@Security		BearerAuth
//	@Router			/render [post]
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, RenderResponse{HTML: h.wb.Render(req.Text)})
}

// Scroll handles POST /api/scroll/{pane}.
//
//	@Summary		Report a pane scroll or measurement
//	@Tags			scroll
//	@Accept			json
//	@Produce		json
//	@Param			pane	path		string			true	"Pane"	Enums(editor, preview)
//	@Param			body	body		ScrollRequest	true	"Pane geometry"
//	@Success		200		{object}	ScrollResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scroll/{pane} [post]
func (h *Handler) Scroll(w http.ResponseWriter, r *http.Request) {
	pane, err := scroll.ParsePane(chi.URLParam(r, "pane"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	var req ScrollRequest
	if !decode(w, r, &req) {
		return
	}
	m := scroll.Metrics{ScrollTop: req.ScrollTop, ScrollHeight: req.ScrollHeight, ClientHeight: req.ClientHeight}
	if req.MeasureOnly {
		h.wb.Scroll.Measure(pane, m)
		writeJSON(w, http.StatusOK, ScrollResponse{})
		return
	}
	wr, ok := h.wb.OnUserScroll(pane, m)
	if !ok {
		writeJSON(w, http.StatusOK, ScrollResponse{})
		return
	}
	writeJSON(w, http.StatusOK, ScrollResponse{Pane: string(wr.Pane), ScrollTop: wr.ScrollTop, Apply: true})
}

// ScrollSync handles PUT /api/scroll.
func (h *Handler) ScrollSync(w http.ResponseWriter, r *http.Request) {
	var req ScrollSyncRequest
	if !decode(w, r, &req) {
		return
	}
	h.wb.SetScrollSync(req.Enabled)
	writeJSON(w, http.StatusOK, req)
}

// Recent handles GET /api/recent.
//
//	@Summary		Recently opened documents
//	@Tags			document
//	@Produce		json
//	@Param			limit	query	int	false	"Max results"
//	@Security		BearerAuth
//	@Router			/recent [get]
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	docs, err := h.wb.Recent(limit)
	if err != nil {
		writeError(w, "recent", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}
