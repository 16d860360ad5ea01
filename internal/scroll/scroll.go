// Package scroll keeps two independently scrollable panes at the same
// proportional position.
//
// The synchronizer never talks to the panes itself. The UI binding reports
// scroll events and measurements, and applies the returned writes. Because a
// write makes the target pane emit its own scroll event, the synchronizer
// remembers every write it hands out and swallows the matching echo.
package scroll

import (
	"fmt"
	"math"
	"sync"
)

// Pane identifies one side of the pair.
type Pane string

const (
	Editor  Pane = "editor"
	Preview Pane = "preview"
)

// ParsePane validates a pane name.
func ParsePane(s string) (Pane, error) {
	switch Pane(s) {
	case Editor, Preview:
		return Pane(s), nil
	}
	return "", fmt.Errorf("scroll: unknown pane %q", s)
}

// Other returns the opposite pane.
func (p Pane) Other() Pane {
	if p == Editor {
		return Preview
	}
	return Editor
}

// Metrics is a pane's scroll geometry, in pixels.
type Metrics struct {
	ScrollTop    float64 `json:"scrollTop"`
	ScrollHeight float64 `json:"scrollHeight"`
	ClientHeight float64 `json:"clientHeight"`
}

// Measured reports whether the pane has been laid out.
func (m Metrics) Measured() bool {
	return m.ScrollHeight > 0 && m.ClientHeight > 0
}

func (m Metrics) extent() float64 {
	return m.ScrollHeight - m.ClientHeight
}

// Ratio is the proportional scroll position in [0,1]. Content shorter than
// the viewport (or a NaN extent) yields 0.
func Ratio(m Metrics) float64 {
	ext := m.extent()
	if math.IsNaN(ext) || ext <= 0 || math.IsNaN(m.ScrollTop) {
		return 0
	}
	r := m.ScrollTop / ext
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

// Offset converts ratio into a ScrollTop for a pane with geometry m.
func Offset(ratio float64, m Metrics) float64 {
	ext := m.extent()
	if math.IsNaN(ext) || ext <= 0 {
		return 0
	}
	return ratio * ext
}

// State is the synchronizer's propagation state.
type State int

const (
	Idle State = iota
	Propagating
)

func (s State) String() string {
	if s == Propagating {
		return "propagating"
	}
	return "idle"
}

// Write is a scroll position the UI must apply to Pane.
type Write struct {
	Pane      Pane    `json:"pane"`
	ScrollTop float64 `json:"scrollTop"`
}

// DefaultTolerance is how far, in pixels, an echo may land from the written
// offset and still be recognised. Browsers round scrollTop.
const DefaultTolerance = 1.0

// Synchronizer is the two-pane scroll state machine.
type Synchronizer struct {
	mu        sync.Mutex
	enabled   bool
	tolerance float64
	state     State
	metrics   map[Pane]Metrics
	// expected holds, oldest first, the offsets written to a pane whose
	// echoes have not arrived yet.
	expected map[Pane][]float64
}

// maxPending bounds the outstanding writes remembered per pane. Browsers
// coalesce scroll events, so some echoes never arrive.
const maxPending = 16

// New creates an enabled synchronizer. tolerance <= 0 uses DefaultTolerance.
func New(tolerance float64) *Synchronizer {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Synchronizer{
		enabled:   true,
		tolerance: tolerance,
		metrics:   make(map[Pane]Metrics, 2),
		expected:  make(map[Pane][]float64, 2),
	}
}

// SetEnabled turns propagation on or off. Disabling drops pending echoes.
func (s *Synchronizer) SetEnabled(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = on
	if !on {
		clear(s.expected)
	}
}

// Enabled reports whether propagation is on.
func (s *Synchronizer) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// State returns the current propagation state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Measure records a pane's geometry after layout or resize without
// propagating anything.
func (s *Synchronizer) Measure(p Pane, m Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[p] = m
}

// OnUserScroll handles a scroll event from pane p. It returns the write to
// apply to the other pane, or false when nothing should move: propagation is
// disabled, either pane is unmeasured, or the event is the echo of this
// synchronizer's own write.
func (s *Synchronizer) OnUserScroll(p Pane, m Metrics) (Write, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics[p] = m

	if s.swallowEcho(p, m.ScrollTop) {
		return Write{}, false
	}

	if !s.enabled {
		return Write{}, false
	}

	target := p.Other()
	tm, ok := s.metrics[target]
	if !ok || !m.Measured() || !tm.Measured() {
		return Write{}, false
	}

	s.state = Propagating
	top := Offset(Ratio(m), tm)
	// A pane already at the target emits no scroll event, so no echo is due.
	if math.Abs(tm.ScrollTop-top) > s.tolerance {
		q := append(s.expected[target], top)
		if len(q) > maxPending {
			q = q[len(q)-maxPending:]
		}
		s.expected[target] = q
	}
	tm.ScrollTop = top
	s.metrics[target] = tm
	s.state = Idle

	return Write{Pane: target, ScrollTop: top}, true
}

// swallowEcho reports whether top is the echo of an outstanding write to p.
// A match also retires every older write, whose echoes were coalesced away.
// A position matching none of them is user input and clears the queue.
func (s *Synchronizer) swallowEcho(p Pane, top float64) bool {
	q := s.expected[p]
	if len(q) == 0 {
		return false
	}
	for i, want := range q {
		if math.Abs(top-want) <= s.tolerance {
			if rest := q[i+1:]; len(rest) > 0 {
				s.expected[p] = rest
			} else {
				delete(s.expected, p)
			}
			return true
		}
	}
	delete(s.expected, p)
	return false
}
