package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/inkwell/internal/apperr"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	ctx := context.Background()
	content := []byte("# Hello\nWorld\n")
	path, err := s.WriteFile(ctx, "note.md", content)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if path != filepath.Join(s.Root(), "note.md") {
		t.Errorf("path = %q", path)
	}
	got, err := s.ReadFile(ctx, path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got.Content) != string(content) {
		t.Errorf("content mismatch: got %q", got.Content)
	}
}

func TestWriteRecreatesMissingFolders(t *testing.T) {
	s := tempRoot(t)
	ctx := context.Background()
	target := filepath.Join(s.Root(), "proj", "gone", "c.md")
	if _, err := s.WriteFile(ctx, target, []byte("deep")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := s.ReadFile(ctx, target)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got.Content) != "deep" {
		t.Errorf("content = %q", got.Content)
	}
}

func TestReadMissingIsNotFound(t *testing.T) {
	s := tempRoot(t)
	_, err := s.ReadFile(context.Background(), "nope.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateFileAndFolder(t *testing.T) {
	s := tempRoot(t)
	ctx := context.Background()

	proj, err := s.CreateFolder(ctx, s.Root(), "proj")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	note, err := s.CreateFile(ctx, proj, "note.md")
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if note != filepath.Join(proj, "note.md") {
		t.Errorf("note path = %q", note)
	}
	if _, err := s.CreateFile(ctx, proj, "note.md"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate file err = %v, want ErrAlreadyExists", err)
	}
	if _, err := s.CreateFolder(ctx, s.Root(), "proj"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate folder err = %v, want ErrAlreadyExists", err)
	}
}

func TestCreateRejectsInvalidNames(t *testing.T) {
	s := tempRoot(t)
	ctx := context.Background()
	for _, name := range []string{"", "  ", ".", "..", "a/b", `a\b`} {
		if _, err := s.CreateFile(ctx, s.Root(), name); !errors.Is(err, apperr.ErrInvalidName) {
			t.Errorf("CreateFile(%q) err = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestCreateInMissingParent(t *testing.T) {
	s := tempRoot(t)
	_, err := s.CreateFile(context.Background(), filepath.Join(s.Root(), "ghost"), "a.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRename(t *testing.T) {
	s := tempRoot(t)
	ctx := context.Background()
	old, _ := s.WriteFile(ctx, "old.md", []byte("data"))
	_, _ = s.WriteFile(ctx, "taken.md", []byte("x"))

	if _, err := s.Rename(ctx, old, "taken.md"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("rename onto existing err = %v", err)
	}
	renamed, err := s.Rename(ctx, old, "new.md")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	got, err := s.ReadFile(ctx, renamed)
	if err != nil {
		t.Fatalf("ReadFile after rename: %v", err)
	}
	if string(got.Content) != "data" {
		t.Errorf("content = %q", got.Content)
	}
	if _, err := s.ReadFile(ctx, old); err == nil {
		t.Error("old path should not exist")
	}
}

func TestDeleteFileAndFolder(t *testing.T) {
	s := tempRoot(t)
	ctx := context.Background()
	file, _ := s.WriteFile(ctx, "proj/sub/a.md", []byte("a"))
	dir := filepath.Dir(file)

	if err := s.Delete(ctx, dir, false); err == nil {
		t.Error("deleting a folder as a file should fail")
	}
	if err := s.Delete(ctx, dir, true); err != nil {
		t.Fatalf("Delete folder: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("folder still present: %v", err)
	}
	if err := s.Delete(ctx, file, false); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("delete missing err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, s.Root(), true); err == nil {
		t.Error("deleting the root should fail")
	}
}

func TestList(t *testing.T) {
	s := tempRoot(t)
	ctx := context.Background()
	_, _ = s.WriteFile(ctx, "a.md", []byte("a"))
	_, _ = s.WriteFile(ctx, "sub/b.md", []byte("b"))
	_, _ = s.WriteFile(ctx, "readme.txt", []byte("not md"))

	items, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	dirs := 0
	for _, it := range items {
		if it.IsDirectory {
			dirs++
			if it.Name != "sub" {
				t.Errorf("unexpected dir %q", it.Name)
			}
		}
		if filepath.Dir(it.Path) != s.Root() {
			t.Errorf("entry %q not directly under root", it.Path)
		}
	}
	if dirs != 1 {
		t.Errorf("dirs = %d, want 1", dirs)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)
	ctx := context.Background()

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.ReadFile(ctx, p); !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("read %q: err = %v, want ErrInvalidPath", p, err)
		}
		if _, err := s.WriteFile(ctx, p, []byte("x")); !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("write %q: err = %v, want ErrInvalidPath", p, err)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempRoot(t)
	ctx := context.Background()
	_, _ = s.WriteFile(ctx, "atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if _, err := s.WriteFile(ctx, "atomic.md", updated); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, _ := s.ReadFile(ctx, "atomic.md")
	if string(got.Content) != string(updated) {
		t.Errorf("expected updated content, got %q", got.Content)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".inkwell-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestCancelledContext(t *testing.T) {
	s := tempRoot(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.List(ctx, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/inkwell-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "inkwell-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestInvalidPathErrors(t *testing.T) {
	s := tempRoot(t)
	ctx := context.Background()
	file, err := s.WriteFile(ctx, "p/a.md", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}

	checks := map[string]error{
		"delete root":   s.Delete(ctx, s.Root(), true),
		"kind mismatch": s.Delete(ctx, file, true),
	}
	_, checks["rename root"] = s.Rename(ctx, s.Root(), "other")
	_, checks["write root"] = s.WriteFile(ctx, s.Root(), nil)
	_, checks["create under file"] = s.CreateFile(ctx, file, "b.md")
	_, checks["folder under file"] = s.CreateFolder(ctx, file, "sub")

	for name, err := range checks {
		if !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("%s: err = %v, want ErrInvalidPath", name, err)
		}
	}
	if _, err := os.Stat(file); err != nil {
		t.Errorf("file touched by rejected calls: %v", err)
	}
}
