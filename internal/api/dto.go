package api

import (
	"github.com/starford/inkwell/internal/render"
	"github.com/starford/inkwell/internal/session"
	"github.com/starford/inkwell/internal/tree"
)

// PathRequest carries a single workspace path. Relative paths resolve
// against the projects root.
type PathRequest struct {
	Path string `json:"path" example:"/home/me/Projects/notes/todo.md"`
}

// TextRequest carries editor content.
type TextRequest struct {
	Text string `json:"text" example:"# Hello"`
}

// CreateRequest creates a file or folder named Name under Parent.
type CreateRequest struct {
	Parent string `json:"parent" validate:"required"`
	Name   string `json:"name" example:"note.md"`
}

// RenameRequest renames Path to Name within its folder.
type RenameRequest struct {
	Path string `json:"path" validate:"required"`
	Name string `json:"name" example:"renamed.md"`
}

// DeleteRequest deletes Path. Confirm must be true or nothing happens.
type DeleteRequest struct {
	Path    string `json:"path" validate:"required"`
	IsDir   bool   `json:"isDir"`
	Confirm bool   `json:"confirm"`
}

// NameRequest names a new project.
type NameRequest struct {
	Name string `json:"name" example:"notes"`
}

// ApplyThemeRequest selects the active theme.
type ApplyThemeRequest struct {
	ID string `json:"id" example:"dark" validate:"required"`
}

// ScrollRequest reports a pane's geometry. MeasureOnly records it without
// propagating (layout or resize).
type ScrollRequest struct {
	ScrollTop    float64 `json:"scrollTop"`
	ScrollHeight float64 `json:"scrollHeight"`
	ClientHeight float64 `json:"clientHeight"`
	MeasureOnly  bool    `json:"measureOnly"`
}

// ScrollSyncRequest toggles scroll synchronization.
type ScrollSyncRequest struct {
	Enabled bool `json:"enabled"`
}

// DocumentResponse is the session snapshot.
type DocumentResponse = session.State

// PreviewResponse is the rendered HTML of one revision.
type PreviewResponse = render.Result

// RevResponse returns the revision produced by an edit.
type RevResponse struct {
	Rev uint64 `json:"rev" example:"42"`
}

// PathResponse returns the path written or created.
type PathResponse struct {
	Path string `json:"path"`
}

// RenderResponse is the stateless render result.
type RenderResponse struct {
	HTML string `json:"html"`
}

// ScrollResponse carries the write the UI must apply, if any.
type ScrollResponse struct {
	Pane      string  `json:"pane,omitempty"`
	ScrollTop float64 `json:"scrollTop,omitempty"`
	Apply     bool    `json:"apply"`
}

// TreeResponse wraps a list of nodes.
type TreeResponse struct {
	Nodes []*tree.Node `json:"nodes"`
}

// ApplyThemeResponse reports whether the theme was applied.
type ApplyThemeResponse struct {
	Applied bool   `json:"applied"`
	Active  string `json:"active"`
}

// UploadResponse is returned after a successful file upload.
type UploadResponse struct {
	Path string `json:"path"`
	Size int64  `json:"size" example:"12345"`
	URL  string `json:"url" example:"/api/files/notes/img/diagram.png"`
}
