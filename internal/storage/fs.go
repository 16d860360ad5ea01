package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the projects root
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute projects root.
func (f *FS) Root() string {
	return f.root
}

// safePath cleans p and rejects any result that escapes the root
// (directory traversal). Relative paths are resolved against the root.
func (f *FS) safePath(p string) (string, error) {
	if p == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(p)
	if !filepath.IsAbs(cleaned) {
		cleaned = filepath.Join(f.root, cleaned)
	}
	if !strings.HasPrefix(cleaned, f.root+string(os.PathSeparator)) && cleaned != f.root {
		return "", fmt.Errorf("storage: %s escapes projects root: %w", p, apperr.ErrInvalidPath)
	}
	return cleaned, nil
}

// validName rejects names the tree could not address as a single child.
func validName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "." || trimmed == ".." ||
		strings.ContainsAny(name, `/\`+"\x00") {
		return fmt.Errorf("storage: %q: %w", name, apperr.ErrInvalidName)
	}
	return nil
}

// notFound maps os.ErrNotExist onto the shared sentinel, keeping the cause.
func notFound(op, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: %s %s: %w: %w", op, path, apperr.ErrNotFound, err)
	}
	return fmt.Errorf("storage: %s %s: %w", op, path, err)
}

// List returns the direct children of dir.
func (f *FS) List(ctx context.Context, dir string) ([]models.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(base)
	if err != nil {
		return nil, notFound("list", dir, err)
	}
	out := make([]models.Entry, 0, len(dirents))
	for _, d := range dirents {
		info, err := d.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		out = append(out, models.Entry{
			Name:        d.Name(),
			Path:        filepath.Join(base, d.Name()),
			IsDirectory: d.IsDir(),
			UpdatedAt:   info.ModTime(),
		})
	}
	return out, nil
}

// ReadFile returns the raw bytes of a workspace file.
func (f *FS) ReadFile(ctx context.Context, path string) (models.File, error) {
	if err := ctx.Err(); err != nil {
		return models.File{}, err
	}
	abs, err := f.safePath(path)
	if err != nil {
		return models.File{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.File{}, notFound("read", path, err)
	}
	return models.File{Path: abs, Content: data}, nil
}

// WriteFile atomically writes content: tmp file → fsync → rename.
func (f *FS) WriteFile(ctx context.Context, path string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	abs, err := f.safePath(path)
	if err != nil {
		return "", err
	}
	if abs == f.root {
		return "", fmt.Errorf("storage: cannot write to projects root: %w", apperr.ErrInvalidPath)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".inkwell-tmp-*")
	if err != nil {
		return "", fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return "", fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return "", fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return abs, nil
}

// parentDir resolves parent and checks that it is an existing folder.
func (f *FS) parentDir(parent string) (string, error) {
	abs, err := f.safePath(parent)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", notFound("stat", parent, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("storage: parent %s is not a folder: %w", parent, apperr.ErrInvalidPath)
	}
	return abs, nil
}

// CreateFile creates an empty file. Existing entries are never overwritten.
func (f *FS) CreateFile(ctx context.Context, parent, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validName(name); err != nil {
		return "", err
	}
	dir, err := f.parentDir(parent)
	if err != nil {
		return "", err
	}
	abs := filepath.Join(dir, name)
	fh, err := os.OpenFile(abs, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("storage: create %s: %w", abs, apperr.ErrAlreadyExists)
		}
		return "", fmt.Errorf("storage: create %s: %w", abs, err)
	}
	if err := fh.Close(); err != nil {
		return "", fmt.Errorf("storage: close %s: %w", abs, err)
	}
	return abs, nil
}

// CreateFolder creates a single folder under parent.
func (f *FS) CreateFolder(ctx context.Context, parent, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validName(name); err != nil {
		return "", err
	}
	dir, err := f.parentDir(parent)
	if err != nil {
		return "", err
	}
	abs := filepath.Join(dir, name)
	if err := os.Mkdir(abs, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("storage: mkdir %s: %w", abs, apperr.ErrAlreadyExists)
		}
		return "", fmt.Errorf("storage: mkdir %s: %w", abs, err)
	}
	return abs, nil
}

// Rename renames path to newName inside the same folder.
func (f *FS) Rename(ctx context.Context, path, newName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validName(newName); err != nil {
		return "", err
	}
	absOld, err := f.safePath(path)
	if err != nil {
		return "", err
	}
	if absOld == f.root {
		return "", fmt.Errorf("storage: cannot rename projects root: %w", apperr.ErrInvalidPath)
	}
	if _, err := os.Lstat(absOld); err != nil {
		return "", notFound("rename", path, err)
	}
	absNew := filepath.Join(filepath.Dir(absOld), newName)
	if absNew == absOld {
		return absOld, nil
	}
	if _, err := os.Lstat(absNew); err == nil {
		return "", fmt.Errorf("storage: rename to %s: %w", absNew, apperr.ErrAlreadyExists)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return "", fmt.Errorf("storage: rename: %w", err)
	}
	return absNew, nil
}

// Delete removes a file, or a folder recursively when isDir is set.
func (f *FS) Delete(ctx context.Context, path string, isDir bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("storage: cannot delete projects root: %w", apperr.ErrInvalidPath)
	}
	info, err := os.Lstat(abs)
	if err != nil {
		return notFound("delete", path, err)
	}
	if info.IsDir() != isDir {
		return fmt.Errorf("storage: delete %s: kind mismatch (isDir=%t): %w", path, isDir, apperr.ErrInvalidPath)
	}
	if isDir {
		err = os.RemoveAll(abs)
	} else {
		err = os.Remove(abs)
	}
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}
