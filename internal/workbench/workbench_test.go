package workbench

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/dialog"
	"github.com/starford/inkwell/internal/render"
	"github.com/starford/inkwell/internal/scroll"
	"github.com/starford/inkwell/internal/testutil"
	"github.com/starford/inkwell/internal/theme"
	"github.com/starford/inkwell/internal/tree"
)

type recorded struct {
	mu     sync.Mutex
	events []string
}

func (r *recorded) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorded) has(prefix string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}

func (r *recorded) PublishPreview(_ uint64, html string) { r.add("preview:" + html) }
func (r *recorded) PublishScroll(pane string, _ float64)  { r.add("scroll:" + pane) }
func (r *recorded) PublishDocument(path string, dirty, orphaned bool) {
	flags := ""
	if dirty {
		flags += "d"
	}
	if orphaned {
		flags += "o"
	}
	r.add("document:" + path + ":" + flags)
}
func (r *recorded) PublishTheme(id string) { r.add("theme:" + id) }
func (r *recorded) PublishTreeEvent(kind, path, _ string) {
	r.add("tree:" + kind + ":" + path)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func newTestWorkbench(t *testing.T, files map[string]string) (*Workbench, *recorded, string) {
	t.Helper()
	root, store := testutil.TestWorkspace(t)
	abs := map[string]string{}
	for p, c := range files {
		abs[filepath.Join(root, p)] = c
	}
	testutil.WriteFiles(t, store, abs)

	ev := &recorded{}
	w := New(Deps{
		Store:   store,
		Engine:  render.New(render.Options{}, nil),
		History: testutil.TestHistory(t),
		Events:  ev,
		Themes:  theme.NewFileStore(filepath.Join(t.TempDir(), "themes.json")),
		Logger:  slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	})
	t.Cleanup(w.Close)
	w.Start(context.Background())
	return w, ev, root
}

func TestStart_LoadsProjectsAndThemes(t *testing.T) {
	w, ev, _ := newTestWorkbench(t, map[string]string{"p/a.md": ""})
	if !w.Tree.Loaded() || len(w.Tree.Snapshot()) != 1 {
		t.Errorf("projects = %+v", w.Tree.Snapshot())
	}
	if !w.Themes.Loaded() {
		t.Error("themes not loaded")
	}
	if !ev.has("theme:light") {
		t.Error("theme.applied not published on load")
	}
}

func TestEditText_PublishesPreview(t *testing.T) {
	w, ev, _ := newTestWorkbench(t, nil)
	w.Session.EditText("# Hi")
	eventually(t, 5*time.Second, 10*time.Millisecond, func() bool {
		return ev.has("preview:<h1")
	}, "preview.updated with heading never published")
	if !ev.has("document::d") {
		t.Error("document.changed with dirty flag not published")
	}
}

func TestDeleteOpenDocument_OrphansSession(t *testing.T) {
	w, ev, root := newTestWorkbench(t, map[string]string{"proj/x/note.md": "# Note"})
	ctx := context.Background()
	x := filepath.Join(root, "proj", "x")
	note := filepath.Join(x, "note.md")

	if err := w.OnTreeNodeClicked(ctx, filepath.Join(root, "proj")); err != nil {
		t.Fatal(err)
	}
	if err := w.OnTreeNodeClicked(ctx, x); err != nil {
		t.Fatal(err)
	}
	if err := w.OnTreeNodeClicked(ctx, note); err != nil {
		t.Fatalf("click file: %v", err)
	}
	w.Session.EditText("# Note edited")

	if err := w.Tree.DeleteNode(ctx, note, false, dialog.Preset{Confirmed: true}); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	st := w.Session.Snapshot()
	if !st.Orphaned || st.Text != "# Note edited" {
		t.Errorf("session = %+v", st)
	}
	if !ev.has("tree:deleted:" + note) {
		t.Error("tree.node.deleted not published")
	}
	recent, _ := w.Recent(10)
	for _, r := range recent {
		if r.Path == note {
			t.Error("deleted file still in recent documents")
		}
	}
}

func TestSave_InvalidatesParentAndMarksActive(t *testing.T) {
	w, _, root := newTestWorkbench(t, map[string]string{"p/a.md": ""})
	ctx := context.Background()
	p := filepath.Join(root, "p")
	_ = w.Tree.Expand(ctx, p)

	w.Session.EditText("# New")
	written, err := w.Session.Save(ctx, dialog.Preset{Path: filepath.Join(p, "b")})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n, _ := w.Tree.Node(p); n.State != tree.Stale {
		t.Errorf("parent state = %s, want stale", n.State)
	}
	if err := w.Tree.Expand(ctx, p); err != nil {
		t.Fatal(err)
	}
	n, _ := w.Tree.Node(written)
	if n == nil || !n.Active {
		t.Errorf("saved file node = %+v, want active", n)
	}
}

func TestRename_FollowsOpenDocument(t *testing.T) {
	w, _, root := newTestWorkbench(t, map[string]string{"p/old/a.md": "x"})
	ctx := context.Background()
	a := filepath.Join(root, "p", "old", "a.md")
	if err := w.OpenDocument(ctx, a, nil); err != nil {
		t.Fatal(err)
	}
	_ = w.Tree.Expand(ctx, filepath.Join(root, "p"))

	newPath, err := w.RenameNode(ctx, filepath.Join(root, "p", "old"), dialog.Preset{Text: "new"})
	if err != nil {
		t.Fatalf("RenameNode: %v", err)
	}
	if want := filepath.Join(newPath, "a.md"); w.Session.Path() != want {
		t.Errorf("session path = %q, want %q", w.Session.Path(), want)
	}
	recent, _ := w.Recent(10)
	if len(recent) != 1 || recent[0].Path != filepath.Join(newPath, "a.md") {
		t.Errorf("recent = %+v", recent)
	}
}

func TestPromptCancelled(t *testing.T) {
	w, _, root := newTestWorkbench(t, map[string]string{"p/a.md": ""})
	ctx := context.Background()
	if _, err := w.NewProject(ctx, dialog.Cancel); !errors.Is(err, apperr.ErrCancelled) {
		t.Errorf("NewProject err = %v", err)
	}
	if _, err := w.NewFile(ctx, filepath.Join(root, "p"), nil); !errors.Is(err, apperr.ErrCancelled) {
		t.Errorf("NewFile err = %v", err)
	}
	if len(w.Tree.Snapshot()) != 1 {
		t.Error("cancelled prompt changed the tree")
	}
}

func TestOnUserScroll_NoFeedbackLoop(t *testing.T) {
	w, ev, _ := newTestWorkbench(t, nil)
	editor := scroll.Metrics{ScrollTop: 0, ScrollHeight: 2000, ClientHeight: 500}
	preview := scroll.Metrics{ScrollTop: 0, ScrollHeight: 4000, ClientHeight: 500}
	w.Scroll.Measure(scroll.Preview, preview)

	editor.ScrollTop = 750
	wr, ok := w.OnUserScroll(scroll.Editor, editor)
	if !ok || wr.Pane != scroll.Preview || wr.ScrollTop != 1750 {
		t.Fatalf("write = %+v, %t", wr, ok)
	}
	if !ev.has("scroll:preview") {
		t.Error("scroll.apply not published")
	}

	preview.ScrollTop = wr.ScrollTop
	if wr, ok := w.OnUserScroll(scroll.Preview, preview); ok {
		t.Errorf("echo propagated back: %+v", wr)
	}
}

func TestOnTreeNodeClicked_TogglesFolder(t *testing.T) {
	w, _, root := newTestWorkbench(t, map[string]string{"p/a.md": ""})
	ctx := context.Background()
	p := filepath.Join(root, "p")

	_ = w.OnTreeNodeClicked(ctx, p)
	if n, _ := w.Tree.Node(p); !n.Expanded {
		t.Error("first click should expand")
	}
	_ = w.OnTreeNodeClicked(ctx, p)
	if n, _ := w.Tree.Node(p); n.Expanded {
		t.Error("second click should collapse")
	}
	if err := w.OnTreeNodeClicked(ctx, filepath.Join(root, "missing")); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing node err = %v", err)
	}
}

func TestDeleteThroughUncleanPath_OrphansSession(t *testing.T) {
	w, _, root := newTestWorkbench(t, map[string]string{"proj/a.md": "# A"})
	ctx := context.Background()
	proj := filepath.Join(root, "proj")
	a := filepath.Join(proj, "a.md")
	_ = w.Tree.Expand(ctx, proj)
	if err := w.OpenDocument(ctx, a, nil); err != nil {
		t.Fatal(err)
	}

	if err := w.Tree.DeleteNode(ctx, proj+"/./a.md", false, dialog.Preset{Confirmed: true}); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if _, ok := w.Tree.Node(a); ok {
		t.Error("deleted node still in the tree")
	}
	if !w.Session.Snapshot().Orphaned {
		t.Error("open document not orphaned")
	}
}

func TestSave_IntoNewSubfolderShowsFolder(t *testing.T) {
	w, _, root := newTestWorkbench(t, map[string]string{"p/a.md": ""})
	ctx := context.Background()
	p := filepath.Join(root, "p")
	if err := w.Tree.Expand(ctx, p); err != nil {
		t.Fatal(err)
	}

	w.Session.EditText("# Draft")
	written, err := w.Session.Save(ctx, dialog.Preset{Path: filepath.Join(p, "drafts", "n.md")})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	drafts := filepath.Join(p, "drafts")
	if n, ok := w.Tree.Node(drafts); !ok || n.Kind != tree.KindFolder {
		t.Fatalf("new folder not listed under its project: %+v", n)
	}
	if err := w.Tree.Expand(ctx, drafts); err != nil {
		t.Fatal(err)
	}
	if n, _ := w.Tree.Node(written); n == nil || !n.Active {
		t.Errorf("saved file node = %+v, want active", n)
	}
}

func TestSave_IntoNewProjectReloadsProjects(t *testing.T) {
	w, _, root := newTestWorkbench(t, map[string]string{"p/a.md": ""})
	ctx := context.Background()

	w.Session.EditText("x")
	if _, err := w.Session.Save(ctx, dialog.Preset{Path: filepath.Join(root, "fresh", "n.md")}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok := w.Tree.Node(filepath.Join(root, "fresh")); !ok {
		t.Error("project created by a save is not listed")
	}
}
