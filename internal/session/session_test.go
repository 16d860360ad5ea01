package session

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/dialog"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/render"
	"github.com/starford/inkwell/internal/testutil"
)

type recorder struct {
	mu   sync.Mutex
	docs []models.RecentDocument
}

func (r *recorder) Touch(doc models.RecentDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, doc)
	return nil
}

func (r *recorder) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.docs))
	for i, d := range r.docs {
		out[i] = d.Path
	}
	return out
}

type exporter struct {
	text, dest string
}

func (e *exporter) Export(_ context.Context, text, dest string) (string, error) {
	e.text, e.dest = text, dest
	return dest + ".pdf", nil
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *testutil.Store, string) {
	t.Helper()
	root, fs := testutil.TestWorkspace(t)
	store := testutil.NewStore(fs)
	sched := render.NewScheduler(render.New(render.Options{}, nil), nil)
	t.Cleanup(sched.Close)
	return New(store, sched, opts...), store, root
}

func preview(t *testing.T, s *Session) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := s.Preview(ctx)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	return res.HTML
}

func TestNew_IsEmptyAndClean(t *testing.T) {
	s, _, _ := newTestSession(t)
	st := s.Snapshot()
	if st.ID == "" || st.Path != "" || st.Text != "" || st.Dirty || st.Orphaned {
		t.Fatalf("unexpected initial state: %+v", st)
	}
	if html := preview(t, s); html != "" {
		t.Errorf("empty document preview = %q", html)
	}
}

func TestEditText_UpdatesPreviewAndDirty(t *testing.T) {
	s, _, _ := newTestSession(t)
	s.EditText("# Hi")

	if !s.Snapshot().Dirty {
		t.Error("expected dirty after edit")
	}
	html := preview(t, s)
	if !strings.Contains(html, "<h1") || !strings.Contains(html, "Hi") {
		t.Errorf("preview = %q, want an h1 with Hi", html)
	}

	s.EditText("")
	if s.Snapshot().Dirty {
		t.Error("editing back to the saved snapshot should clear dirty")
	}
}

func TestEditText_BurstRendersLatest(t *testing.T) {
	s, _, _ := newTestSession(t)
	var rev uint64
	for i := 0; i < 50; i++ {
		rev = s.EditText(strings.Repeat("x", i) + "\n\n# final")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := s.Preview(ctx)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if res.Rev != rev {
		t.Errorf("preview rev = %d, want %d", res.Rev, rev)
	}
}

func TestOpenDocument_ReplacesWholesale(t *testing.T) {
	rec := &recorder{}
	s, store, root := newTestSession(t, WithRecorder(rec))
	a := filepath.Join(root, "p", "a.md")
	b := filepath.Join(root, "p", "b.md")
	testutil.WriteFiles(t, store, map[string]string{a: "# A", b: "# B"})

	ctx := context.Background()
	if err := s.OpenDocument(ctx, a, nil); err != nil {
		t.Fatalf("open a: %v", err)
	}
	s.EditText("# A edited")
	if err := s.OpenDocument(ctx, b, nil); err != nil {
		t.Fatalf("open b: %v", err)
	}

	st := s.Snapshot()
	if st.Path != b || st.Text != "# B" || st.Dirty || st.Orphaned {
		t.Fatalf("state after open b = %+v", st)
	}
	if st.Title != "B" {
		t.Errorf("title = %q, want B", st.Title)
	}
	if html := preview(t, s); !strings.Contains(html, "B") || strings.Contains(html, "edited") {
		t.Errorf("preview not replaced: %q", html)
	}
	if got := rec.paths(); len(got) != 2 || got[1] != b {
		t.Errorf("recorded = %v", got)
	}
}

func TestOpenDocument_Picker(t *testing.T) {
	s, store, root := newTestSession(t)
	p := filepath.Join(root, "doc.md")
	testutil.WriteFiles(t, store, map[string]string{p: "hello"})

	if err := s.OpenDocument(context.Background(), "", dialog.Preset{Path: p}); err != nil {
		t.Fatalf("open via picker: %v", err)
	}
	if s.Path() != p {
		t.Errorf("path = %q, want %q", s.Path(), p)
	}
}

func TestOpenDocument_CancelAndFailureLeaveSessionUnchanged(t *testing.T) {
	s, _, root := newTestSession(t)
	s.EditText("keep me")
	before := s.Snapshot()

	err := s.OpenDocument(context.Background(), "", dialog.Cancel)
	if !errors.Is(err, apperr.ErrCancelled) {
		t.Fatalf("cancel err = %v, want ErrCancelled", err)
	}
	err = s.OpenDocument(context.Background(), filepath.Join(root, "missing.md"), nil)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing err = %v, want ErrNotFound", err)
	}
	if after := s.Snapshot(); after != before {
		t.Errorf("state changed: before %+v after %+v", before, after)
	}
}

func TestSave_NeverSavedUsesPickerAndAppendsExtension(t *testing.T) {
	var saved []string
	s, store, root := newTestSession(t, WithOnSaved(func(_ context.Context, p string) { saved = append(saved, p) }))
	s.EditText("# Draft")

	written, err := s.Save(context.Background(), dialog.Preset{Path: filepath.Join(root, "notes", "draft")})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	want := filepath.Join(root, "notes", "draft.md")
	if written != want {
		t.Errorf("written = %q, want %q", written, want)
	}
	st := s.Snapshot()
	if st.Path != want || st.Dirty {
		t.Errorf("state after save = %+v", st)
	}
	f, err := store.ReadFile(context.Background(), want)
	if err != nil || string(f.Content) != "# Draft" {
		t.Errorf("file content = %q, %v", f.Content, err)
	}
	if len(saved) != 1 || saved[0] != want {
		t.Errorf("onSaved calls = %v", saved)
	}
}

func TestSave_CancelledPicker(t *testing.T) {
	s, store, _ := newTestSession(t)
	s.EditText("x")
	if _, err := s.Save(context.Background(), dialog.Cancel); !errors.Is(err, apperr.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if store.Calls(testutil.OpWrite) != 0 {
		t.Error("cancelled save must not write")
	}
	if !s.Snapshot().Dirty {
		t.Error("cancelled save must keep dirty")
	}
}

func TestSave_FailureKeepsDirty(t *testing.T) {
	s, store, root := newTestSession(t)
	p := filepath.Join(root, "a.md")
	testutil.WriteFiles(t, store, map[string]string{p: "old"})
	if err := s.OpenDocument(context.Background(), p, nil); err != nil {
		t.Fatal(err)
	}
	s.EditText("new")

	boom := errors.New("disk full")
	store.Fail(testutil.OpWrite, boom)
	if _, err := s.Save(context.Background(), nil); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	st := s.Snapshot()
	if !st.Dirty || st.Text != "new" || st.Path != p {
		t.Errorf("state after failed save = %+v", st)
	}
}

func TestPathDeleted_OrphansAndSaveRecreates(t *testing.T) {
	s, store, root := newTestSession(t)
	p := filepath.Join(root, "proj", "sub", "a.md")
	testutil.WriteFiles(t, store, map[string]string{p: "body"})
	ctx := context.Background()
	if err := s.OpenDocument(ctx, p, nil); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(ctx, filepath.Join(root, "proj"), true); err != nil {
		t.Fatal(err)
	}
	s.PathDeleted(filepath.Join(root, "proj"), true)

	st := s.Snapshot()
	if !st.Orphaned || st.Text != "body" || st.Path != p {
		t.Fatalf("state after delete = %+v", st)
	}

	if _, err := s.Save(ctx, nil); err != nil {
		t.Fatalf("Save orphan: %v", err)
	}
	if s.Snapshot().Orphaned {
		t.Error("save should clear orphaned")
	}
	if f, err := store.ReadFile(ctx, p); err != nil || string(f.Content) != "body" {
		t.Errorf("re-created file = %q, %v", f.Content, err)
	}
}

func TestPathDeleted_IgnoresUnrelated(t *testing.T) {
	s, store, root := newTestSession(t)
	p := filepath.Join(root, "proj", "a.md")
	testutil.WriteFiles(t, store, map[string]string{p: "x"})
	_ = s.OpenDocument(context.Background(), p, nil)

	s.PathDeleted(filepath.Join(root, "proj", "a.md.bak"), false)
	s.PathDeleted(filepath.Join(root, "pro"), true)
	s.PathDeleted(filepath.Join(root, "proj"), false)
	if s.Snapshot().Orphaned {
		t.Fatal("unrelated deletions orphaned the session")
	}

	s.PathDeleted(p, false)
	if !s.Snapshot().Orphaned {
		t.Error("expected orphaned on exact path match")
	}
}

func TestPathRenamed_FollowsFileAndFolder(t *testing.T) {
	var changes []State
	s, store, root := newTestSession(t, WithOnChange(func(st State) { changes = append(changes, st) }))
	p := filepath.Join(root, "proj", "a.md")
	testutil.WriteFiles(t, store, map[string]string{p: "x"})
	_ = s.OpenDocument(context.Background(), p, nil)

	s.PathRenamed(filepath.Join(root, "proj"), filepath.Join(root, "renamed"))
	if want := filepath.Join(root, "renamed", "a.md"); s.Path() != want {
		t.Errorf("path = %q, want %q", s.Path(), want)
	}
	s.PathRenamed(filepath.Join(root, "renamed", "a.md"), filepath.Join(root, "renamed", "b.md"))
	if want := filepath.Join(root, "renamed", "b.md"); s.Path() != want {
		t.Errorf("path = %q, want %q", s.Path(), want)
	}
	n := len(changes)
	s.PathRenamed(filepath.Join(root, "other"), filepath.Join(root, "else"))
	if len(changes) != n {
		t.Error("unrelated rename should not notify")
	}
}

func TestExportPDF(t *testing.T) {
	exp := &exporter{}
	s, _, root := newTestSession(t, WithExporter(exp))
	s.EditText("# Report")

	dest := filepath.Join(root, "out")
	written, err := s.ExportPDF(context.Background(), "", dialog.Preset{Path: dest})
	if err != nil {
		t.Fatalf("ExportPDF: %v", err)
	}
	if written != dest+".pdf" || exp.text != "# Report" {
		t.Errorf("written = %q, exported text = %q", written, exp.text)
	}
	if !s.Snapshot().Dirty {
		t.Error("export must not touch dirty")
	}
	if _, err := s.ExportPDF(context.Background(), "", dialog.Cancel); !errors.Is(err, apperr.ErrCancelled) {
		t.Errorf("cancel err = %v", err)
	}
}

func TestNewDocument_Resets(t *testing.T) {
	s, store, root := newTestSession(t)
	p := filepath.Join(root, "a.md")
	testutil.WriteFiles(t, store, map[string]string{p: "x"})
	_ = s.OpenDocument(context.Background(), p, nil)
	id := s.Snapshot().ID

	s.NewDocument()
	st := s.Snapshot()
	if st.Path != "" || st.Text != "" || st.Dirty || st.Orphaned {
		t.Errorf("state after new = %+v", st)
	}
	if st.ID != id {
		t.Error("session id should survive NewDocument")
	}
}

func TestPathNotifications_UncleanPaths(t *testing.T) {
	s, store, root := newTestSession(t)
	p := filepath.Join(root, "proj", "a.md")
	testutil.WriteFiles(t, store, map[string]string{p: "x"})
	_ = s.OpenDocument(context.Background(), p, nil)

	s.PathRenamed(root+"/proj/", root+"/./renamed")
	want := filepath.Join(root, "renamed", "a.md")
	if s.Path() != want {
		t.Fatalf("path = %q, want %q", s.Path(), want)
	}

	s.PathDeleted(root+"/renamed/./a.md", false)
	if !s.Snapshot().Orphaned {
		t.Error("delete through an unclean path did not orphan the document")
	}
}
