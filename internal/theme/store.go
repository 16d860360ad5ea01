package theme

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/starford/inkwell/internal/apperr"
)

// Store loads and persists the whole theme set as one document.
type Store interface {
	// Load returns apperr.ErrNotFound when nothing was persisted yet.
	Load(ctx context.Context) (Set, error)
	Save(ctx context.Context, set Set) error
}

// FileStore keeps the set in a JSON file indented with two spaces.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path. The file and its
// folder are created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads and decodes the set.
func (f *FileStore) Load(ctx context.Context) (Set, error) {
	if err := ctx.Err(); err != nil {
		return Set{}, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Set{}, fmt.Errorf("theme: load %s: %w", f.path, apperr.ErrNotFound)
		}
		return Set{}, fmt.Errorf("theme: load %s: %w", f.path, err)
	}
	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return Set{}, fmt.Errorf("theme: decode %s: %w", f.path, err)
	}
	return set, nil
}

// Save encodes the set and replaces the file atomically.
func (f *FileStore) Save(ctx context.Context, set Set) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("theme: encode: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("theme: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".themes-tmp-*")
	if err != nil {
		return fmt.Errorf("theme: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("theme: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("theme: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("theme: rename: %w", err)
	}
	return nil
}
