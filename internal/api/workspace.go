package api

import (
	"net/http"
	"strconv"

	"github.com/starford/inkwell/internal/dialog"
	"github.com/starford/inkwell/internal/tree"
)

const defaultFindLimit = 20

// ListProjects handles GET /api/projects. The project list is re-fetched.
//
//	@Summary		List projects
//	@Tags			tree
//	@Produce		json
//	@Success		200	{object}	TreeResponse
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.wb.Tree.ListProjects(r.Context())
	if err != nil {
		writeError(w, "list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, TreeResponse{Nodes: nodes})
}

// CreateProject handles POST /api/projects.
//
//	@Summary		Create a project
//	@Tags			tree
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NameRequest	true	"Project name"
//	@Success		201		{object}	PathResponse
//	@Success		204		"Cancelled"
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decode(w, r, &req) {
		return
	}
	path, err := h.wb.NewProject(r.Context(), dialog.Preset{Text: req.Name})
	if err != nil {
		writeError(w, "create project", err)
		return
	}
	writeJSON(w, http.StatusCreated, PathResponse{Path: path})
}

// DeleteProject handles DELETE /api/projects.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if !decode(w, r, &req) {
		return
	}
	err := h.wb.Tree.DeleteProject(r.Context(), h.abs(req.Path), dialog.Preset{Confirmed: req.Confirm})
	if err != nil {
		writeError(w, "delete project", err)
		return
	}
	writeJSON(w, http.StatusOK, TreeResponse{Nodes: h.wb.Tree.Snapshot()})
}

// Tree handles GET /api/tree.
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TreeResponse{Nodes: h.wb.Tree.Snapshot()})
}

// writeNode answers with the current copy of the node at path.
func (h *Handler) writeNode(w http.ResponseWriter, path string) {
	n, ok := h.wb.Tree.Node(path)
	if !ok {
		// Purged while the request ran (reconciled stale reference).
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Expand handles POST /api/tree/expand.
//
//	@Summary		Expand a project or folder
//	@Tags			tree
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PathRequest	true	"Node"
//	@Success		200		{object}	tree.Node
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tree/expand [post]
func (h *Handler) Expand(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decode(w, r, &req) {
		return
	}
	path := h.abs(req.Path)
	if err := h.wb.Tree.Expand(r.Context(), path); err != nil {
		writeError(w, "expand", err)
		return
	}
	h.writeNode(w, path)
}

// Refresh handles POST /api/tree/refresh: marks a folder stale and re-fetches
// it, picking up changes made outside the workbench.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decode(w, r, &req) {
		return
	}
	path := h.abs(req.Path)
	h.wb.Tree.Invalidate(path)
	if err := h.wb.Tree.Expand(r.Context(), path); err != nil {
		writeError(w, "refresh", err)
		return
	}
	h.writeNode(w, path)
}

// Collapse handles POST /api/tree/collapse.
func (h *Handler) Collapse(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decode(w, r, &req) {
		return
	}
	path := h.abs(req.Path)
	if err := h.wb.Tree.Collapse(path); err != nil {
		writeError(w, "collapse", err)
		return
	}
	h.writeNode(w, path)
}

// Select handles POST /api/tree/select: opens a file node.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.wb.Tree.Select(r.Context(), h.abs(req.Path)); err != nil {
		writeError(w, "select", err)
		return
	}
	writeJSON(w, http.StatusOK, h.wb.Session.Snapshot())
}

// Click handles POST /api/tree/click: selects files, toggles folders.
func (h *Handler) Click(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decode(w, r, &req) {
		return
	}
	path := h.abs(req.Path)
	if err := h.wb.OnTreeNodeClicked(r.Context(), path); err != nil {
		writeError(w, "click", err)
		return
	}
	h.writeNode(w, path)
}

// CreateFile handles POST /api/tree/files.
//
//	@Summary		Create an empty file
//	@Tags			tree
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateRequest	true	"Parent and name"
//	@Success		201		{object}	PathResponse
//	@Success		204		"Cancelled"
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tree/files [post]
func (h *Handler) CreateFile(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !decode(w, r, &req) {
		return
	}
	path, err := h.wb.NewFile(r.Context(), h.abs(req.Parent), dialog.Preset{Text: req.Name})
	if err != nil {
		writeError(w, "create file", err)
		return
	}
	writeJSON(w, http.StatusCreated, PathResponse{Path: path})
}

// CreateFolder handles POST /api/tree/folders.
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !decode(w, r, &req) {
		return
	}
	path, err := h.wb.NewFolder(r.Context(), h.abs(req.Parent), dialog.Preset{Text: req.Name})
	if err != nil {
		writeError(w, "create folder", err)
		return
	}
	writeJSON(w, http.StatusCreated, PathResponse{Path: path})
}

// Rename handles POST /api/tree/rename.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decode(w, r, &req) {
		return
	}
	path, err := h.wb.RenameNode(r.Context(), h.abs(req.Path), dialog.Preset{Text: req.Name})
	if err != nil {
		writeError(w, "rename", err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: path})
}

// DeleteNode handles DELETE /api/tree/nodes.
//
//	@Summary		Delete a file or folder
//	@Tags			tree
//	@Accept			json
//	@Param			body	body	DeleteRequest	true	"Node and confirmation"
//	@Success		204		"Deleted or cancelled"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tree/nodes [delete]
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if !decode(w, r, &req) {
		return
	}
	err := h.wb.Tree.DeleteNode(r.Context(), h.abs(req.Path), req.IsDir, dialog.Preset{Confirmed: req.Confirm})
	if err != nil {
		writeError(w, "delete node", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Find handles GET /api/tree/find.
//
//	@Summary		Fuzzy quick-open over loaded files
//	@Tags			tree
//	@Produce		json
//	@Param			q		query		string	true	"Query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	TreeResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tree/find [get]
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultFindLimit
	}
	nodes := h.wb.Tree.Find(q, limit)
	if nodes == nil {
		nodes = []*tree.Node{}
	}
	writeJSON(w, http.StatusOK, TreeResponse{Nodes: nodes})
}
