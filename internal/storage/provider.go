// Package storage defines the workspace file-system collaborator.
//
// Paths are absolute. Implementations reject any path outside their root.
package storage

import (
	"context"

	"github.com/starford/inkwell/internal/models"
)

// Provider is the narrow file-system boundary used by the tree and the
// document session. It is the sole authority on name collisions.
type Provider interface {
	// Root returns the absolute projects root.
	Root() string
	// List returns the direct children of dir in collaborator order.
	List(ctx context.Context, dir string) ([]models.Entry, error)
	// ReadFile returns the content of the file at path.
	ReadFile(ctx context.Context, path string) (models.File, error)
	// WriteFile atomically writes content, creating missing parent folders,
	// and returns the path written.
	WriteFile(ctx context.Context, path string, content []byte) (string, error)
	// CreateFile creates an empty file named name under parent.
	CreateFile(ctx context.Context, parent, name string) (string, error)
	// CreateFolder creates a folder named name under parent.
	CreateFolder(ctx context.Context, parent, name string) (string, error)
	// Rename renames the entry at path within its folder.
	Rename(ctx context.Context, path, newName string) (string, error)
	// Delete removes a file, or a folder and everything below it.
	Delete(ctx context.Context, path string, isDir bool) error
}
