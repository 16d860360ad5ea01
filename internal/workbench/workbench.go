// Package workbench is the application-state object. It builds the document
// session, the project tree, the theme registry and the scroll synchronizer
// in a fixed order, connects them, and exposes the UI event entry points a
// thin binding layer (HTTP, MCP) calls.
package workbench

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/dialog"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/render"
	"github.com/starford/inkwell/internal/scroll"
	"github.com/starford/inkwell/internal/session"
	"github.com/starford/inkwell/internal/sse"
	"github.com/starford/inkwell/internal/storage"
	"github.com/starford/inkwell/internal/theme"
	"github.com/starford/inkwell/internal/tree"
)

// Publisher pushes state changes to the UI. *sse.Broker implements it.
type Publisher interface {
	PublishPreview(rev uint64, html string)
	PublishScroll(pane string, scrollTop float64)
	PublishDocument(path string, dirty, orphaned bool)
	PublishTheme(id string)
	PublishTreeEvent(kind, path, newPath string)
}

// History is the recent-documents store. *history.DB implements it.
type History interface {
	Touch(doc models.RecentDocument) error
	Recent(limit int) ([]models.RecentDocument, error)
	Forget(path string, isDir bool) error
	Move(oldPath, newPath string) error
}

// Deps are the collaborators of a Workbench. Store, Engine and Themes are
// required.
type Deps struct {
	Store    storage.Provider
	Engine   render.Engine
	Exporter session.Exporter
	History  History
	Events   Publisher
	Themes   theme.Store
	Logger   *slog.Logger

	IOTimeout         time.Duration
	Extensions        []string
	DisableScrollSync bool
	ScrollTolerance   float64
}

// Workbench owns every core component.
type Workbench struct {
	Session *session.Session
	Tree    *tree.Model
	Themes  *theme.Registry
	Scroll  *scroll.Synchronizer

	engine  render.Engine
	sched   *render.Scheduler
	history History
	events  Publisher
	logger  *slog.Logger
}

// New wires the components: scheduler, then session, then the tree (which
// reaches the session only through the Opener and Observer capabilities),
// then the independent theme registry.
func New(d Deps) *Workbench {
	w := &Workbench{
		engine:  d.Engine,
		history: d.History,
		events:  d.Events,
		logger:  d.Logger,
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.events == nil {
		w.events = nopPublisher{}
	}

	w.sched = render.NewScheduler(d.Engine, func(r render.Result) {
		w.events.PublishPreview(r.Rev, r.HTML)
	})

	opts := []session.Option{
		session.WithLogger(w.logger),
		session.WithOnSaved(w.saved),
		session.WithOnChange(func(st session.State) {
			w.events.PublishDocument(st.Path, st.Dirty, st.Orphaned)
		}),
	}
	if d.Exporter != nil {
		opts = append(opts, session.WithExporter(d.Exporter))
	}
	if d.History != nil {
		opts = append(opts, session.WithRecorder(d.History))
	}
	w.Session = session.New(d.Store, w.sched, opts...)

	w.Tree = tree.New(d.Store,
		tree.WithOpener(w.Session),
		tree.WithObserver(tree.ObserverFunc(w.treeChanged)),
		tree.WithLogger(w.logger),
		tree.WithTimeout(d.IOTimeout),
		tree.WithExtensions(d.Extensions...),
	)

	w.Themes = theme.NewRegistry(d.Themes,
		theme.WithLogger(w.logger),
		theme.WithOnApply(func(t theme.Theme) { w.events.PublishTheme(t.ID) }),
	)

	w.Scroll = scroll.New(d.ScrollTolerance)
	w.Scroll.SetEnabled(!d.DisableScrollSync)
	return w
}

// Start performs the startup fetches: the project list and the theme set.
// Failures are logged and leave the component in its initial state.
func (w *Workbench) Start(ctx context.Context) {
	if _, err := w.Tree.ListProjects(ctx); err != nil {
		w.logger.Error("workbench: list projects failed", slog.String("error", err.Error()))
	}
	if err := w.Themes.Load(ctx); err != nil {
		w.logger.Error("workbench: load themes failed", slog.String("error", err.Error()))
	}
}

// Close stops the render worker.
func (w *Workbench) Close() {
	w.sched.Close()
}

// Render converts text without touching the session.
func (w *Workbench) Render(text string) string {
	return w.engine.Render(text)
}

// Recent lists recently opened documents. Without a history store the list
// is empty.
func (w *Workbench) Recent(limit int) ([]models.RecentDocument, error) {
	if w.history == nil {
		return []models.RecentDocument{}, nil
	}
	return w.history.Recent(limit)
}

// OpenDocument opens path (or asks pick) and marks it active in the tree.
func (w *Workbench) OpenDocument(ctx context.Context, path string, pick dialog.Picker) error {
	if err := w.Session.OpenDocument(ctx, path, pick); err != nil {
		return err
	}
	w.Tree.SetActive(w.Session.Path())
	return nil
}

// NewDocument clears the session and the active tree marker.
func (w *Workbench) NewDocument() {
	w.Session.NewDocument()
	w.Tree.SetActive("")
}

// OnUserScroll feeds a user scroll of pane into the synchronizer and pushes
// the resulting write, if any, to the UI.
func (w *Workbench) OnUserScroll(pane scroll.Pane, m scroll.Metrics) (scroll.Write, bool) {
	wr, ok := w.Scroll.OnUserScroll(pane, m)
	if ok {
		w.events.PublishScroll(string(wr.Pane), wr.ScrollTop)
	}
	return wr, ok
}

// OnTreeNodeClicked selects a file, or toggles a project or folder.
func (w *Workbench) OnTreeNodeClicked(ctx context.Context, path string) error {
	n, ok := w.Tree.Node(path)
	if !ok {
		return fmt.Errorf("workbench: %s: %w", path, apperr.ErrNotFound)
	}
	if !n.IsDir() {
		return w.Tree.Select(ctx, path)
	}
	if n.Expanded && n.State == tree.Loaded {
		return w.Tree.Collapse(path)
	}
	return w.Tree.Expand(ctx, path)
}

// NewProject asks for a name and creates a project.
func (w *Workbench) NewProject(ctx context.Context, p dialog.Prompter) (string, error) {
	name, ok := prompt(ctx, p, "Project name")
	if !ok {
		return "", apperr.ErrCancelled
	}
	return w.Tree.CreateProject(ctx, name)
}

// NewFile asks for a name and creates a file under parent.
func (w *Workbench) NewFile(ctx context.Context, parent string, p dialog.Prompter) (string, error) {
	name, ok := prompt(ctx, p, "File name")
	if !ok {
		return "", apperr.ErrCancelled
	}
	return w.Tree.CreateFile(ctx, parent, name)
}

// NewFolder asks for a name and creates a folder under parent.
func (w *Workbench) NewFolder(ctx context.Context, parent string, p dialog.Prompter) (string, error) {
	name, ok := prompt(ctx, p, "Folder name")
	if !ok {
		return "", apperr.ErrCancelled
	}
	return w.Tree.CreateFolder(ctx, parent, name)
}

// RenameNode asks for a new name and renames path.
func (w *Workbench) RenameNode(ctx context.Context, path string, p dialog.Prompter) (string, error) {
	name, ok := prompt(ctx, p, "New name")
	if !ok {
		return "", apperr.ErrCancelled
	}
	return w.Tree.Rename(ctx, path, name)
}

// SetScrollSync turns scroll synchronization on or off.
func (w *Workbench) SetScrollSync(on bool) {
	w.Scroll.SetEnabled(on)
}

// treeChanged fans tree events out to the session, the history and the UI.
func (w *Workbench) treeChanged(ev tree.Event) {
	switch ev.Kind {
	case tree.EventDeleted:
		w.Session.PathDeleted(ev.Path, ev.IsDir)
		w.forget(ev.Path, ev.IsDir)
		w.events.PublishTreeEvent(sse.TreeDeleted, ev.Path, "")
	case tree.EventRenamed:
		w.Session.PathRenamed(ev.Path, ev.NewPath)
		if w.history != nil {
			if err := w.history.Move(ev.Path, ev.NewPath); err != nil {
				w.logger.Warn("workbench: history move failed", slog.String("path", ev.Path), slog.String("error", err.Error()))
			}
		}
		w.events.PublishTreeEvent(sse.TreeRenamed, ev.Path, ev.NewPath)
	case tree.EventCreated:
		w.events.PublishTreeEvent(sse.TreeCreated, ev.Path, "")
	case tree.EventLoaded:
		w.events.PublishTreeEvent(sse.TreeLoaded, ev.Path, "")
	}
}

func (w *Workbench) forget(path string, isDir bool) {
	if w.history == nil {
		return
	}
	if err := w.history.Forget(path, isDir); err != nil {
		w.logger.Warn("workbench: history forget failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// saved runs after every successful save: the listing above the file may
// have gained it, or folders created on the way (first save, re-creation of
// an orphan).
func (w *Workbench) saved(ctx context.Context, path string) {
	w.Tree.Reveal(ctx, path)
	w.Tree.SetActive(path)
}

func prompt(ctx context.Context, p dialog.Prompter, label string) (string, bool) {
	if p == nil {
		return "", false
	}
	return p.Prompt(ctx, label)
}

type nopPublisher struct{}

func (nopPublisher) PublishPreview(uint64, string)           {}
func (nopPublisher) PublishScroll(string, float64)           {}
func (nopPublisher) PublishDocument(string, bool, bool)      {}
func (nopPublisher) PublishTheme(string)                     {}
func (nopPublisher) PublishTreeEvent(string, string, string) {}
