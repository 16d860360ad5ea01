// Package tree is the lazily loaded in-memory model of the projects root.
//
// Listings reflect the storage layer as of the last load. There is no file
// system watch: staleness is resolved by re-fetching on the next expand or
// after a mutation performed through the model. Mutations apply only after
// the storage call has returned, and the model lock is never held across a
// storage call, so concurrent operations cannot leave a node half-updated.
package tree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/dialog"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/storage"
)

// DefaultTimeout bounds every storage call made by the model.
const DefaultTimeout = 10 * time.Second

// DefaultExtensions lists the file extensions shown in the tree.
var DefaultExtensions = []string{".md", ".markdown"}

// ErrNotAFolder is returned when expanding or creating inside a file.
var ErrNotAFolder = errors.New("tree: not a folder")

// Opener loads a file into the document session.
type Opener interface {
	OpenDocument(ctx context.Context, path string, pick dialog.Picker) error
}

// EventKind identifies a tree notification.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventDeleted EventKind = "deleted"
	EventRenamed EventKind = "renamed"
	EventLoaded  EventKind = "loaded"
)

// Event describes a change made through the model.
type Event struct {
	Kind    EventKind `json:"kind"`
	Path    string    `json:"path"`
	NewPath string    `json:"newPath,omitempty"`
	IsDir   bool      `json:"isDir,omitempty"`
}

// Observer is notified after the model changed. Calls happen outside the
// model lock, on the goroutine that performed the operation.
type Observer interface {
	TreeChanged(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// TreeChanged calls f(ev).
func (f ObserverFunc) TreeChanged(ev Event) { f(ev) }

// Model owns every tree node.
type Model struct {
	store     storage.Provider
	opener    Opener
	logger    *slog.Logger
	timeout   time.Duration
	exts      map[string]bool
	observers []Observer

	mu          sync.Mutex
	projects    []*Node
	loaded      bool
	projectsGen uint64
	gen         uint64
	active      string
}

// Option configures a Model.
type Option func(*Model)

// WithOpener sets the collaborator used by Select.
func WithOpener(o Opener) Option {
	return func(m *Model) { m.opener = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithTimeout bounds each storage call. Zero keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithExtensions replaces the list of visible file extensions.
func WithExtensions(exts ...string) Option {
	return func(m *Model) {
		if len(exts) == 0 {
			return
		}
		m.exts = map[string]bool{}
		for _, e := range exts {
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			m.exts[strings.ToLower(e)] = true
		}
	}
}

// WithObserver registers an observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(m *Model) { m.observers = append(m.observers, o) }
}

// New creates an empty model. Call ListProjects to populate it.
func New(store storage.Provider, opts ...Option) *Model {
	m := &Model{
		store:   store,
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
	WithExtensions(DefaultExtensions...)(m)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the projects root.
func (m *Model) Root() string {
	return m.store.Root()
}

// clean normalizes a caller-supplied path. Nodes are keyed by clean paths.
func clean(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}

// call runs a storage operation under the model's timeout. It returns when
// fn does or when the deadline passes, so a collaborator that ignores its
// context cannot hold a node in Loading. A result arriving after the
// deadline is dropped.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ioCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ioCtx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ioCtx.Done():
		var zero T
		return zero, ioCtx.Err()
	}
}

func (m *Model) list(ctx context.Context, dir string) ([]models.Entry, error) {
	return call(ctx, m.timeout, func(ctx context.Context) ([]models.Entry, error) {
		return m.store.List(ctx, dir)
	})
}

func (m *Model) notify(ev Event) {
	for _, o := range m.observers {
		o.TreeChanged(ev)
	}
}

// visible filters hidden entries and non-markdown files.
func (m *Model) visible(e models.Entry) bool {
	if strings.HasPrefix(e.Name, ".") {
		return false
	}
	return e.IsDirectory || m.exts[strings.ToLower(filepath.Ext(e.Name))]
}

// ListProjects fetches the top-level folders of the projects root and
// replaces the whole project list.
func (m *Model) ListProjects(ctx context.Context) ([]*Node, error) {
	m.mu.Lock()
	m.gen++
	g := m.gen
	m.mu.Unlock()

	entries, err := m.list(ctx, m.store.Root())
	if err != nil {
		return nil, fmt.Errorf("tree: list projects: %w", err)
	}

	projects := make([]*Node, 0, len(entries))
	for _, e := range entries {
		if e.IsDirectory && !strings.HasPrefix(e.Name, ".") {
			projects = append(projects, newNode(e, KindProject))
		}
	}
	sortNodes(projects)

	m.mu.Lock()
	if g < m.projectsGen {
		// A newer listing already landed.
		out := m.cloneList(m.projects)
		m.mu.Unlock()
		return out, nil
	}
	m.projectsGen = g
	m.projects = projects
	m.loaded = true
	out := m.cloneList(projects)
	m.mu.Unlock()

	m.notify(Event{Kind: EventLoaded, Path: m.store.Root(), IsDir: true})
	return out, nil
}

// Expand loads the children of a project or folder when they are unloaded,
// stale or failed, and marks the node expanded. Results of a load that was
// superseded by a newer one are discarded.
func (m *Model) Expand(ctx context.Context, path string) error {
	path = clean(path)
	m.mu.Lock()
	n, _ := m.findLocked(path)
	if n == nil {
		m.mu.Unlock()
		return fmt.Errorf("tree: expand %s: %w", path, apperr.ErrNotFound)
	}
	if !n.IsDir() {
		m.mu.Unlock()
		return fmt.Errorf("tree: expand %s: %w", path, ErrNotAFolder)
	}
	n.Expanded = true
	if n.State == Loaded {
		m.mu.Unlock()
		return nil
	}
	m.gen++
	g := m.gen
	n.gen = g
	n.State = Loading
	m.mu.Unlock()

	entries, err := m.list(ctx, path)

	m.mu.Lock()
	n, _ = m.findLocked(path)
	if n == nil || n.gen != g {
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		n.State = Failed
		n.Err = err.Error()
		m.mu.Unlock()
		m.logger.Warn("tree: expand failed", slog.String("path", path), slog.String("error", err.Error()))
		if errors.Is(err, apperr.ErrNotFound) {
			m.reconcile(ctx, path)
		}
		return fmt.Errorf("tree: expand %s: %w", path, err)
	}

	children := make([]*Node, 0, len(entries))
	for _, e := range entries {
		if m.visible(e) {
			children = append(children, newNode(e, KindFolder))
		}
	}
	sortNodes(children)
	n.Children = children
	n.State = Loaded
	n.Err = ""
	m.mu.Unlock()

	m.notify(Event{Kind: EventLoaded, Path: path, IsDir: true})
	return nil
}

// Collapse hides the children of a node without discarding them.
func (m *Model) Collapse(path string) error {
	path = clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := m.findLocked(path)
	if n == nil {
		return fmt.Errorf("tree: collapse %s: %w", path, apperr.ErrNotFound)
	}
	n.Expanded = false
	return nil
}

// Invalidate marks a loaded listing stale so the next Expand re-fetches it.
// Invalidating the projects root reloads nothing until ListProjects runs.
func (m *Model) Invalidate(path string) {
	path = clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, _ := m.findLocked(path); n != nil && n.IsDir() && n.State != Unloaded && n.State != Loading {
		n.State = Stale
	}
}

// Reveal updates the listing that should show path after it was written
// behind the model's back. A known parent is marked stale. When the write
// created folders on the way, the nearest loaded ancestor (or the project
// list) is re-fetched at once so the new folder appears.
func (m *Model) Reveal(ctx context.Context, path string) {
	path = clean(path)
	root := m.store.Root()
	parent := filepath.Dir(path)
	if !within(root, path) {
		return
	}

	m.mu.Lock()
	dir := parent
	var n *Node
	for dir != root {
		if n, _ = m.findLocked(dir); n != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
	listed := dir == root || (n.IsDir() && (n.State == Loaded || n.State == Stale))
	m.mu.Unlock()

	switch {
	case dir == parent:
		m.Invalidate(parent)
	case listed:
		m.reload(ctx, dir)
	}
}

// CreateProject creates a top-level folder and reloads the project list.
func (m *Model) CreateProject(ctx context.Context, name string) (string, error) {
	path, err := call(ctx, m.timeout, func(ctx context.Context) (string, error) {
		return m.store.CreateFolder(ctx, m.store.Root(), name)
	})
	if err != nil {
		return "", fmt.Errorf("tree: create project: %w", err)
	}
	m.logger.Info("tree: project created", slog.String("path", path))
	m.reload(ctx, m.store.Root())
	m.notify(Event{Kind: EventCreated, Path: path, IsDir: true})
	return path, nil
}

// CreateFile creates an empty file under parent, then re-fetches parent.
func (m *Model) CreateFile(ctx context.Context, parent, name string) (string, error) {
	return m.create(ctx, parent, name, false)
}

// CreateFolder creates a folder under parent, then re-fetches parent.
func (m *Model) CreateFolder(ctx context.Context, parent, name string) (string, error) {
	return m.create(ctx, parent, name, true)
}

func (m *Model) create(ctx context.Context, parent, name string, isDir bool) (string, error) {
	parent = clean(parent)
	m.mu.Lock()
	if n, _ := m.findLocked(parent); n != nil && !n.IsDir() {
		m.mu.Unlock()
		return "", fmt.Errorf("tree: create in %s: %w", parent, ErrNotAFolder)
	}
	m.mu.Unlock()

	path, err := call(ctx, m.timeout, func(ctx context.Context) (string, error) {
		if isDir {
			return m.store.CreateFolder(ctx, parent, name)
		}
		return m.store.CreateFile(ctx, parent, name)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			m.reconcile(ctx, parent)
		}
		return "", fmt.Errorf("tree: create %q in %s: %w", name, parent, err)
	}

	m.logger.Info("tree: created", slog.String("path", path), slog.Bool("dir", isDir))
	m.reload(ctx, parent)
	m.notify(Event{Kind: EventCreated, Path: path, IsDir: isDir})
	return path, nil
}

// Rename renames a node within its folder. The old subtree is purged and the
// parent re-fetched so the renamed entry appears as a fresh node.
func (m *Model) Rename(ctx context.Context, path, newName string) (string, error) {
	path = clean(path)
	m.mu.Lock()
	n, _ := m.findLocked(path)
	isDir := n != nil && n.IsDir()
	m.mu.Unlock()

	newPath, err := call(ctx, m.timeout, func(ctx context.Context) (string, error) {
		return m.store.Rename(ctx, path, newName)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			m.reconcile(ctx, path)
		}
		return "", fmt.Errorf("tree: rename %s: %w", path, err)
	}

	m.mu.Lock()
	m.removeLocked(path)
	m.active = rebase(m.active, path, newPath)
	m.mu.Unlock()

	m.logger.Info("tree: renamed", slog.String("path", path), slog.String("new_path", newPath))
	m.reload(ctx, filepath.Dir(path))
	m.notify(Event{Kind: EventRenamed, Path: path, NewPath: newPath, IsDir: isDir})
	return newPath, nil
}

// DeleteProject deletes a project folder after confirmation.
func (m *Model) DeleteProject(ctx context.Context, path string, confirm dialog.Confirmer) error {
	path = clean(path)
	if filepath.Dir(path) != m.store.Root() {
		return fmt.Errorf("tree: %s is not a project: %w", path, apperr.ErrNotFound)
	}
	return m.DeleteNode(ctx, path, true, confirm)
}

// DeleteNode deletes a file or folder after confirmation and purges it, with
// its whole subtree, from memory.
func (m *Model) DeleteNode(ctx context.Context, path string, isDir bool, confirm dialog.Confirmer) error {
	path = clean(path)
	what := "file"
	if isDir {
		what = "folder and everything in it"
	}
	if confirm == nil || !confirm.Confirm(ctx, fmt.Sprintf("Delete %s %q?", what, filepath.Base(path))) {
		return apperr.ErrCancelled
	}

	_, err := call(ctx, m.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.store.Delete(ctx, path, isDir)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			m.reconcile(ctx, path)
		}
		return fmt.Errorf("tree: delete %s: %w", path, err)
	}

	m.mu.Lock()
	m.removeLocked(path)
	if m.active == path || within(path, m.active) {
		m.active = ""
	}
	m.mu.Unlock()

	m.logger.Info("tree: deleted", slog.String("path", path), slog.Bool("dir", isDir))
	m.notify(Event{Kind: EventDeleted, Path: path, IsDir: isDir})
	return nil
}

// Select opens a file node through the Opener and makes it the single
// active node.
func (m *Model) Select(ctx context.Context, path string) error {
	path = clean(path)
	m.mu.Lock()
	n, _ := m.findLocked(path)
	switch {
	case n == nil:
		m.mu.Unlock()
		return fmt.Errorf("tree: select %s: %w", path, apperr.ErrNotFound)
	case n.IsDir():
		m.mu.Unlock()
		return fmt.Errorf("tree: select %s: %w", path, apperr.ErrNotAFile)
	}
	m.mu.Unlock()

	if m.opener != nil {
		if err := m.opener.OpenDocument(ctx, path, nil); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				m.reconcile(ctx, path)
			}
			return fmt.Errorf("tree: select %s: %w", path, err)
		}
	}
	m.SetActive(path)
	return nil
}

// SetActive moves the active marker to path. An empty path clears it.
func (m *Model) SetActive(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = clean(path)
}

// Active returns the active file path.
func (m *Model) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Loaded reports whether the project list has been fetched.
func (m *Model) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Node returns a copy of the node at path.
func (m *Model) Node(path string) (*Node, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := m.findLocked(clean(path))
	if n == nil {
		return nil, false
	}
	return n.clone(m.active), true
}

// Snapshot returns a deep copy of the project list.
func (m *Model) Snapshot() []*Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cloneList(m.projects)
}

func (m *Model) cloneList(nodes []*Node) []*Node {
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.clone(m.active)
	}
	return out
}

// findLocked returns the node at path and its parent (nil for projects).
func (m *Model) findLocked(path string) (node, parent *Node) {
	list := m.projects
	for {
		var next *Node
		for _, n := range list {
			if n.Path == path {
				return n, parent
			}
			if n.IsDir() && within(n.Path, path) {
				next = n
				break
			}
		}
		if next == nil {
			return nil, nil
		}
		parent, list = next, next.Children
	}
}

// removeLocked purges the node at path and its subtree.
func (m *Model) removeLocked(path string) {
	n, parent := m.findLocked(path)
	if n == nil {
		return
	}
	if parent == nil {
		m.projects = without(m.projects, n)
		return
	}
	parent.Children = without(parent.Children, n)
}

func without(list []*Node, n *Node) []*Node {
	out := make([]*Node, 0, len(list))
	for _, c := range list {
		if c != n {
			out = append(out, c)
		}
	}
	return out
}

// reload re-fetches the listing of dir if the model knows it.
func (m *Model) reload(ctx context.Context, dir string) {
	if dir == m.store.Root() {
		m.mu.Lock()
		loaded := m.loaded
		m.mu.Unlock()
		if !loaded {
			return
		}
		if _, err := m.ListProjects(ctx); err != nil {
			m.logger.Warn("tree: reload projects failed", slog.String("error", err.Error()))
		}
		return
	}

	m.mu.Lock()
	n, _ := m.findLocked(dir)
	known := n != nil && n.IsDir()
	if known {
		n.State = Stale
	}
	m.mu.Unlock()
	if !known {
		return
	}
	if err := m.Expand(ctx, dir); err != nil {
		m.logger.Warn("tree: reload failed", slog.String("path", dir), slog.String("error", err.Error()))
	}
}

// reconcile handles a stale reference: the path is gone, so its node is
// purged and the parent listing re-fetched.
func (m *Model) reconcile(ctx context.Context, path string) {
	m.mu.Lock()
	n, _ := m.findLocked(path)
	if n != nil {
		m.removeLocked(path)
	}
	m.mu.Unlock()
	if n == nil {
		return
	}
	m.logger.Info("tree: purged stale node", slog.String("path", path))
	m.reload(ctx, filepath.Dir(path))
}
