// Package testutil provides shared test helpers for setting up workspaces,
// databases and misbehaving collaborators.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/starford/inkwell/internal/history"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/storage"
)

// TestHistory creates a temporary SQLite database that is automatically cleaned up.
func TestHistory(t *testing.T) *history.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "inkwell-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := history.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates a temporary projects root with a storage.FS.
func TestWorkspace(t *testing.T) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store
}

// WriteFiles creates files (and their folders) below root.
func WriteFiles(t *testing.T, store storage.Provider, files map[string]string) {
	t.Helper()
	for p, content := range files {
		if _, err := store.WriteFile(context.Background(), p, []byte(content)); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
}

// Operation names understood by Store.Fail and Store.Calls.
const (
	OpList         = "list"
	OpRead         = "read"
	OpWrite        = "write"
	OpCreateFile   = "create_file"
	OpCreateFolder = "create_folder"
	OpRename       = "rename"
	OpDelete       = "delete"
)

// Store wraps a real provider and lets tests inject failures and hold List
// calls open.
type Store struct {
	storage.Provider

	mu    sync.Mutex
	errs  map[string]error
	calls map[string]int
	gate  chan struct{}
}

// NewStore wraps p.
func NewStore(p storage.Provider) *Store {
	return &Store{Provider: p, errs: map[string]error{}, calls: map[string]int{}}
}

// Fail makes every call of op return err until Heal is called.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[op] = err
}

// Heal clears an injected failure.
func (s *Store) Heal(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.errs, op)
}

// Calls reports how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Block makes List wait until the returned release func is called or the
// caller's context ends.
func (s *Store) Block() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gate == gate {
				s.gate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

func (s *Store) enter(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.errs[op]
}

func (s *Store) List(ctx context.Context, dir string) ([]models.Entry, error) {
	err := s.enter(OpList)
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return s.Provider.List(ctx, dir)
}

func (s *Store) ReadFile(ctx context.Context, path string) (models.File, error) {
	if err := s.enter(OpRead); err != nil {
		return models.File{}, err
	}
	return s.Provider.ReadFile(ctx, path)
}

func (s *Store) WriteFile(ctx context.Context, path string, content []byte) (string, error) {
	if err := s.enter(OpWrite); err != nil {
		return "", err
	}
	return s.Provider.WriteFile(ctx, path, content)
}

func (s *Store) CreateFile(ctx context.Context, parent, name string) (string, error) {
	if err := s.enter(OpCreateFile); err != nil {
		return "", err
	}
	return s.Provider.CreateFile(ctx, parent, name)
}

func (s *Store) CreateFolder(ctx context.Context, parent, name string) (string, error) {
	if err := s.enter(OpCreateFolder); err != nil {
		return "", err
	}
	return s.Provider.CreateFolder(ctx, parent, name)
}

func (s *Store) Rename(ctx context.Context, path, newName string) (string, error) {
	if err := s.enter(OpRename); err != nil {
		return "", err
	}
	return s.Provider.Rename(ctx, path, newName)
}

func (s *Store) Delete(ctx context.Context, path string, isDir bool) error {
	if err := s.enter(OpDelete); err != nil {
		return err
	}
	return s.Provider.Delete(ctx, path, isDir)
}
