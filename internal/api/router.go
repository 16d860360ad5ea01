package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/inkwell/internal/storage"
	"github.com/starford/inkwell/internal/workbench"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(wb *workbench.Workbench, store storage.Provider, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(wb)
	fh := NewFileHandler(store)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Document session.
	r.Get("/document", h.GetDocument)
	r.Post("/document/new", h.NewDocument)
	r.Post("/document/open", h.OpenDocument)
	r.Put("/document/text", h.EditText)
	r.Post("/document/save", h.SaveDocument)
	r.Post("/document/export", h.ExportDocument)
	r.Get("/document/preview", h.Preview)
	r.Get("/recent", h.Recent)

	// Stateless rendering.
	r.Post("/render", h.Render)

	// Scroll synchronization.
	r.Put("/scroll", h.ScrollSync)
	r.Post("/scroll/{pane}", h.Scroll)

	// Project tree.
	r.Get("/projects", h.ListProjects)
	r.Post("/projects", h.CreateProject)
	r.Delete("/projects", h.DeleteProject)
	r.Get("/tree", h.Tree)
	r.Post("/tree/expand", h.Expand)
	r.Post("/tree/collapse", h.Collapse)
	r.Post("/tree/refresh", h.Refresh)
	r.Post("/tree/select", h.Select)
	r.Post("/tree/click", h.Click)
	r.Post("/tree/files", h.CreateFile)
	r.Post("/tree/folders", h.CreateFolder)
	r.Post("/tree/rename", h.Rename)
	r.Delete("/tree/nodes", h.DeleteNode)
	r.Get("/tree/find", h.Find)

	// Themes.
	r.Get("/themes", h.Themes)
	r.Put("/themes", h.PersistThemes)
	r.Post("/themes/apply", h.ApplyTheme)
	r.Get("/themes/active.css", h.ThemeCSS)

	// Workspace files for the preview.
	r.Get("/files/*", fh.ServeFile)
	r.Post("/files", fh.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
