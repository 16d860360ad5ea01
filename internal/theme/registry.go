package theme

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/inkwell/internal/apperr"
)

// Registry holds the loaded theme set and the active theme. Exactly one
// theme is active at any time: the built-in light theme until the first
// successful Load.
type Registry struct {
	store   Store
	logger  *slog.Logger
	onApply func(Theme)

	mu     sync.Mutex
	set    Set
	active string
	loaded bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithOnApply registers a hook called whenever the active theme is (re)applied.
func WithOnApply(fn func(Theme)) Option {
	return func(r *Registry) { r.onApply = fn }
}

// NewRegistry creates a registry with the built-in set. Nothing can be
// applied before Load succeeds.
func NewRegistry(store Store, opts ...Option) *Registry {
	b := Builtin()
	r := &Registry{store: store, logger: slog.Default(), set: b, active: b.Active}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load fetches the set from the store. A store with nothing persisted yields
// the built-in set. On error the previous set stays in place.
func (r *Registry) Load(ctx context.Context) error {
	set, err := r.store.Load(ctx)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		set = Builtin()
	case err != nil:
		return err
	}
	if err := set.Validate(); err != nil {
		return fmt.Errorf("theme: invalid set: %w", err)
	}

	r.mu.Lock()
	r.set = set.clone()
	r.active = pickActive(set, r.active, r.loaded)
	r.loaded = true
	t, _ := r.set.Find(r.active)
	r.mu.Unlock()

	r.logger.Debug("theme: loaded", slog.Int("themes", len(set.Themes)), slog.String("active", t.ID))
	r.applied(t)
	return nil
}

// Apply makes id the active theme. Unknown ids and calls made before Load
// are ignored and return false. Applying the active theme again is a no-op
// apart from re-notifying.
func (r *Registry) Apply(id string) bool {
	r.mu.Lock()
	if !r.loaded {
		r.mu.Unlock()
		return false
	}
	t, ok := r.set.Find(id)
	if !ok {
		r.mu.Unlock()
		return false
	}
	r.active = id
	r.mu.Unlock()

	r.applied(t)
	return true
}

// Persist validates and writes the whole set, then replaces the in-memory
// set. The active theme survives when still present.
func (r *Registry) Persist(ctx context.Context, set Set) error {
	if err := set.Validate(); err != nil {
		return fmt.Errorf("theme: invalid set: %w", err)
	}
	if err := r.store.Save(ctx, set); err != nil {
		return err
	}

	r.mu.Lock()
	r.set = set.clone()
	r.active = pickActive(set, r.active, r.loaded)
	r.loaded = true
	t, _ := r.set.Find(r.active)
	r.mu.Unlock()

	r.logger.Info("theme: persisted", slog.Int("themes", len(set.Themes)))
	r.applied(t)
	return nil
}

// Loaded reports whether a set has been loaded or persisted.
func (r *Registry) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Active returns the active theme.
func (r *Registry) Active() Theme {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, _ := r.set.Find(r.active)
	return t
}

// Set returns a copy of the loaded set with Active set to the active id.
func (r *Registry) Set() Set {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.set.clone()
	s.Active = r.active
	return s
}

// CSS returns the custom properties of the active theme.
func (r *Registry) CSS() string {
	return r.Active().CSS()
}

func (r *Registry) applied(t Theme) {
	if r.onApply != nil {
		r.onApply(t)
	}
}

// pickActive keeps current when the registry was loaded and the set still
// has it, else the set's own Active, else the first theme.
func pickActive(set Set, current string, loaded bool) string {
	if loaded {
		if _, ok := set.Find(current); ok {
			return current
		}
	}
	if _, ok := set.Find(set.Active); ok {
		return set.Active
	}
	return set.Themes[0].ID
}
