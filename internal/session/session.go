// Package session holds the document currently open in the editor and drives
// its live preview.
//
// The session owns the text buffer exclusively. The project tree refers to the
// open document only by path and reports deletions and renames through
// PathDeleted and PathRenamed.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/checksum"
	"github.com/starford/inkwell/internal/dialog"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/parser"
	"github.com/starford/inkwell/internal/render"
	"github.com/starford/inkwell/internal/storage"
)

// DefaultExt is appended to save destinations chosen without an extension.
const DefaultExt = ".md"

// Scheduler renders document revisions in the background.
type Scheduler interface {
	Schedule(rev uint64, text string)
	Await(ctx context.Context, rev uint64) (render.Result, error)
}

// Exporter writes a document to a fixed-layout format at dest and returns the
// path actually written.
type Exporter interface {
	Export(ctx context.Context, text, dest string) (string, error)
}

// Recorder remembers recently opened documents.
type Recorder interface {
	Touch(doc models.RecentDocument) error
}

// State is an immutable view of the session.
type State struct {
	ID       string `json:"id"`
	Path     string `json:"path,omitempty"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Dirty    bool   `json:"dirty"`
	Orphaned bool   `json:"orphaned"`
	Rev      uint64 `json:"rev"`
}

// Session is the document session.
type Session struct {
	store    storage.Provider
	sched    Scheduler
	exporter Exporter
	recorder Recorder
	logger   *slog.Logger
	onSaved  func(ctx context.Context, path string)
	onChange func(State)

	mu       sync.Mutex
	id       string
	path     string
	text     string
	saved    string // last persisted snapshot
	dirty    bool
	orphaned bool
	rev      uint64
	gen      uint64 // bumped whenever the document is replaced wholesale
}

// Option configures a Session.
type Option func(*Session)

// WithExporter sets the fixed-layout export collaborator.
func WithExporter(e Exporter) Option {
	return func(s *Session) { s.exporter = e }
}

// WithRecorder sets the recent-documents collaborator.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithOnSaved registers a hook called after every successful save.
func WithOnSaved(fn func(ctx context.Context, path string)) Option {
	return func(s *Session) { s.onSaved = fn }
}

// WithOnChange registers a hook called after path, dirty or orphaned may
// have changed.
func WithOnChange(fn func(State)) Option {
	return func(s *Session) { s.onChange = fn }
}

// New creates an empty, never-saved session and schedules its first render.
func New(store storage.Provider, sched Scheduler, opts ...Option) *Session {
	s := &Session{
		store:  store,
		sched:  sched,
		logger: slog.Default(),
		id:     uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.NewDocument()
	return s
}

// NewDocument clears the buffer and forgets the path.
func (s *Session) NewDocument() {
	s.mu.Lock()
	s.path = ""
	s.text = ""
	s.saved = ""
	s.dirty = false
	s.orphaned = false
	s.gen++
	s.rev++
	rev := s.rev
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.sched.Schedule(rev, "")
	s.changed(st)
}

// OpenDocument replaces the session with the file at path. An empty path asks
// pick for one. On failure the current document is left untouched.
func (s *Session) OpenDocument(ctx context.Context, path string, pick dialog.Picker) error {
	if path == "" {
		p, ok := pickPath(ctx, pick, dialog.Picker.PickOpen)
		if !ok {
			return apperr.ErrCancelled
		}
		path = p
	}

	f, err := s.store.ReadFile(ctx, path)
	if err != nil {
		return fmt.Errorf("session: open %s: %w", path, err)
	}
	text := string(f.Content)

	s.mu.Lock()
	s.path = f.Path
	s.text = text
	s.saved = text
	s.dirty = false
	s.orphaned = false
	s.gen++
	s.rev++
	rev := s.rev
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.sched.Schedule(rev, text)
	s.record(st)
	s.logger.Debug("session: opened", slog.String("path", st.Path))
	s.changed(st)
	return nil
}

// EditText replaces the buffer and schedules one render. It returns the new
// revision. Safe to call on every keystroke: pending renders of older
// revisions are superseded.
func (s *Session) EditText(text string) uint64 {
	s.mu.Lock()
	wasDirty := s.dirty
	s.text = text
	s.dirty = text != s.saved
	s.rev++
	rev := s.rev
	var st State
	notify := wasDirty != s.dirty
	if notify {
		st = s.snapshotLocked()
	}
	s.mu.Unlock()

	s.sched.Schedule(rev, text)
	if notify {
		s.changed(st)
	}
	return rev
}

// Save writes the buffer. A never-saved document asks pick for a
// destination. An orphaned document is re-created at its original path.
func (s *Session) Save(ctx context.Context, pick dialog.Picker) (string, error) {
	s.mu.Lock()
	path, text, gen := s.path, s.text, s.gen
	s.mu.Unlock()

	if path == "" {
		p, ok := pickPath(ctx, pick, dialog.Picker.PickSave)
		if !ok {
			return "", apperr.ErrCancelled
		}
		path = withDefaultExt(p)
	}

	written, err := s.store.WriteFile(ctx, path, []byte(text))
	if err != nil {
		return "", fmt.Errorf("session: save %s: %w", path, err)
	}

	s.mu.Lock()
	if s.gen != gen {
		// Replaced by open/new while writing; the file is saved but the
		// current document is a different one.
		s.mu.Unlock()
		return written, nil
	}
	s.path = written
	s.saved = text
	s.dirty = s.text != text
	s.orphaned = false
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.record(State{Path: written, Title: parser.Title([]byte(text), written), Text: text})
	s.logger.Info("session: saved", slog.String("path", written))
	if s.onSaved != nil {
		s.onSaved(ctx, written)
	}
	s.changed(st)
	return written, nil
}

// ExportPDF hands the current text to the exporter. The session is not
// modified.
func (s *Session) ExportPDF(ctx context.Context, dest string, pick dialog.Picker) (string, error) {
	if s.exporter == nil {
		return "", fmt.Errorf("session: no exporter configured")
	}
	if dest == "" {
		p, ok := pickPath(ctx, pick, dialog.Picker.PickExport)
		if !ok {
			return "", apperr.ErrCancelled
		}
		dest = p
	}
	s.mu.Lock()
	text := s.text
	s.mu.Unlock()

	written, err := s.exporter.Export(ctx, text, dest)
	if err != nil {
		return "", fmt.Errorf("session: export %s: %w", dest, err)
	}
	return written, nil
}

// Preview returns the rendered HTML of the current revision, waiting for the
// render if it is still pending.
func (s *Session) Preview(ctx context.Context) (render.Result, error) {
	s.mu.Lock()
	rev := s.rev
	s.mu.Unlock()
	return s.sched.Await(ctx, rev)
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Path returns the open document's path, or "" when never saved.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// PathDeleted marks the session orphaned when path (or, for folders, an
// ancestor of the open document) was deleted. The buffer is kept.
func (s *Session) PathDeleted(path string, isDir bool) {
	path = filepath.Clean(path)
	s.mu.Lock()
	hit := s.path != "" && (s.path == path || (isDir && within(path, s.path)))
	if hit {
		s.orphaned = true
	}
	st := s.snapshotLocked()
	s.mu.Unlock()

	if hit {
		s.logger.Warn("session: open document deleted", slog.String("path", st.Path))
		s.changed(st)
	}
}

// PathRenamed follows a rename of the open document or of one of its folders.
func (s *Session) PathRenamed(oldPath, newPath string) {
	oldPath, newPath = filepath.Clean(oldPath), filepath.Clean(newPath)
	s.mu.Lock()
	hit := false
	switch {
	case s.path == "":
	case s.path == oldPath:
		s.path = newPath
		hit = true
	case within(oldPath, s.path):
		s.path = filepath.Join(newPath, strings.TrimPrefix(s.path, oldPath+string(os.PathSeparator)))
		hit = true
	}
	st := s.snapshotLocked()
	s.mu.Unlock()

	if hit {
		s.changed(st)
	}
}

func (s *Session) snapshotLocked() State {
	return State{
		ID:       s.id,
		Path:     s.path,
		Title:    parser.Title([]byte(s.text), s.path),
		Text:     s.text,
		Dirty:    s.dirty,
		Orphaned: s.orphaned,
		Rev:      s.rev,
	}
}

func (s *Session) record(st State) {
	if s.recorder == nil || st.Path == "" {
		return
	}
	err := s.recorder.Touch(models.RecentDocument{
		Path:     st.Path,
		Title:    st.Title,
		Checksum: checksum.Text(st.Text),
		OpenedAt: time.Now(),
	})
	if err != nil {
		s.logger.Warn("session: record recent failed", slog.String("path", st.Path), slog.String("error", err.Error()))
	}
}

func (s *Session) changed(st State) {
	if s.onChange != nil {
		s.onChange(st)
	}
}

func pickPath(ctx context.Context, pick dialog.Picker, fn func(dialog.Picker, context.Context) (string, bool)) (string, bool) {
	if pick == nil {
		return "", false
	}
	p, ok := fn(pick, ctx)
	return p, ok && p != ""
}

func withDefaultExt(p string) string {
	if filepath.Ext(p) == "" {
		return p + DefaultExt
	}
	return p
}

// within reports whether p lies strictly below dir.
func within(dir, p string) bool {
	return strings.HasPrefix(p, strings.TrimSuffix(dir, string(os.PathSeparator))+string(os.PathSeparator))
}
