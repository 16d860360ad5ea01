package render

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrSchedulerClosed is returned by Await once the scheduler has stopped.
var ErrSchedulerClosed = errors.New("render: scheduler closed")

// Engine is the pure rendering function driven by a Scheduler.
type Engine interface {
	Render(text string) string
}

// Result is the preview produced for one document revision.
type Result struct {
	Rev  uint64 `json:"rev"`
	HTML string `json:"html"`
}

// Sink receives every completed render, in revision order.
type Sink func(Result)

type request struct {
	rev  uint64
	text string
}

// Scheduler coalesces render requests: at most one request is pending and a
// newer request replaces an older one that has not started yet, so bursts of
// keystrokes never build a backlog. A render that has started always
// completes.
//
// Concurrency model: one worker goroutine performs renders; Schedule only
// swaps the pending slot and signals the worker through a 1-buffered channel.
type Scheduler struct {
	engine Engine
	sink   Sink

	mu      sync.Mutex
	pending *request
	last    Result
	done    chan struct{} // closed and replaced whenever last changes

	kick    chan struct{}
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewScheduler starts the render worker. sink may be nil.
func NewScheduler(engine Engine, sink Sink) *Scheduler {
	s := &Scheduler{
		engine:  engine,
		sink:    sink,
		done:    make(chan struct{}),
		kick:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Scheduler) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.kick:
		}

		s.mu.Lock()
		req := s.pending
		s.pending = nil
		s.mu.Unlock()
		if req == nil {
			continue
		}

		res := Result{Rev: req.rev, HTML: s.engine.Render(req.text)}

		s.mu.Lock()
		stale := res.Rev < s.last.Rev
		if !stale {
			s.last = res
			close(s.done)
			s.done = make(chan struct{})
		}
		s.mu.Unlock()

		if !stale && s.sink != nil {
			s.sink(res)
		}
	}
}

// Schedule requests a render of text for revision rev and returns at once.
func (s *Scheduler) Schedule(rev uint64, text string) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	if s.pending == nil || rev >= s.pending.rev {
		s.pending = &request{rev: rev, text: text}
	}
	s.mu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
		// Worker already signalled; it will pick up the newest request.
	}
}

// Await blocks until a render for revision rev or newer has completed.
func (s *Scheduler) Await(ctx context.Context, rev uint64) (Result, error) {
	for {
		s.mu.Lock()
		if s.last.Rev >= rev {
			res := s.last
			s.mu.Unlock()
			return res, nil
		}
		done := s.done
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-s.stopped:
			return Result{}, ErrSchedulerClosed
		case <-done:
		}
	}
}

// Close stops the worker after any in-flight render.
func (s *Scheduler) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stopCh)
	}
	<-s.stopped
}
