// Package sse pushes workbench state changes to the browser UI over
// Server-Sent Events.
package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	keepAlive   = 25 * time.Second
	retryMillis = 2000

	clientBuffer = 64
	queueSize    = 256
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (e Event) frame() ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "event: %s\ndata: %s\n\n", e.Type, payload)
	return buf.Bytes(), nil
}

// Tree node event kinds accepted by PublishTreeEvent.
const (
	TreeCreated = "created"
	TreeDeleted = "deleted"
	TreeRenamed = "renamed"
	TreeLoaded  = "loaded"
)

// message is a queued broadcast. Tree messages also count towards the
// throttled tree.changed event; an empty event type means only that.
type message struct {
	event Event
	tree  bool
}

// Broker fans events out to connected SSE clients.
//
// The client set and the tree.changed timestamp belong to one loop
// goroutine. Membership changes run on it as closures over ctl; broadcasts
// are queued on msgs so publishers never wait for slow clients.
type Broker struct {
	treeThrottle time.Duration

	ctl  chan func()
	msgs chan message
	quit chan struct{}
	done chan struct{}

	closing atomic.Bool

	// loop-owned
	clients     map[chan []byte]struct{}
	treeChanged time.Time
	treePending bool
	treeFlush   *time.Timer
}

// NewBroker creates a new SSE broker. treeThrottle is the minimum interval
// between two aggregate tree.changed events.
func NewBroker(treeThrottle time.Duration) *Broker {
	if treeThrottle <= 0 {
		treeThrottle = 500 * time.Millisecond
	}
	b := &Broker{
		treeThrottle: treeThrottle,
		ctl:          make(chan func()),
		msgs:         make(chan message, queueSize),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		clients:      make(map[chan []byte]struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.done)
	for {
		var flush <-chan time.Time
		if b.treeFlush != nil {
			flush = b.treeFlush.C
		}
		select {
		case <-b.quit:
			if b.treeFlush != nil {
				b.treeFlush.Stop()
			}
			for ch := range b.clients {
				close(ch)
			}
			b.clients = nil
			return
		case op := <-b.ctl:
			op()
		case m := <-b.msgs:
			b.deliver(m)
		case <-flush:
			b.treeFlush = nil
			if b.treePending {
				b.treeChangedNow()
			}
		}
	}
}

func (b *Broker) deliver(m message) {
	if m.event.Type != "" {
		b.broadcast(m.event)
	}
	if !m.tree {
		return
	}
	wait := b.treeThrottle - time.Since(b.treeChanged)
	switch {
	case wait <= 0:
		b.treeChangedNow()
	case b.treeFlush == nil:
		// Inside the window: the last change of the burst is announced when
		// it closes.
		b.treePending = true
		b.treeFlush = time.NewTimer(wait)
	default:
		b.treePending = true
	}
}

func (b *Broker) treeChangedNow() {
	b.treeChanged = time.Now()
	b.treePending = false
	b.broadcast(Event{Type: EventTreeChanged, Data: map[string]string{}})
}

func (b *Broker) broadcast(e Event) {
	raw, err := e.frame()
	if err != nil {
		return
	}
	for ch := range b.clients {
		select {
		case ch <- raw:
		default: // slow client, drop
		}
	}
}

// exec runs op on the loop and waits for it. It reports false once the
// broker is closed.
func (b *Broker) exec(op func()) bool {
	if b.closing.Load() {
		return false
	}
	fin := make(chan struct{})
	select {
	case b.ctl <- func() { op(); close(fin) }:
	case <-b.done:
		return false
	}
	<-fin
	return true
}

func (b *Broker) enqueue(m message) {
	if b.closing.Load() {
		return
	}
	select {
	case b.msgs <- m:
	case <-b.done:
	}
}

// Close stops the loop and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closing.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a client. The channel is closed on Unsubscribe or
// Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !b.exec(func() { b.clients[ch] = struct{}{} }) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.exec(func() {
		if _, ok := b.clients[ch]; ok {
			delete(b.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	n := 0
	b.exec(func() { n = len(b.clients) })
	return n
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.enqueue(message{event: event})
}

// PublishTreeEvent publishes a tree node change followed by a throttled
// tree.changed event. Listing reloads (TreeLoaded) only count towards
// tree.changed.
func (b *Broker) PublishTreeEvent(kind, path, newPath string) {
	data := map[string]string{"path": path}
	var typ string
	switch kind {
	case TreeCreated:
		typ = EventNodeCreated
	case TreeDeleted:
		typ = EventNodeDeleted
	case TreeRenamed:
		typ = EventNodeRenamed
		data["newPath"] = newPath
	}
	b.enqueue(message{event: Event{Type: typ, Data: data}, tree: true})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	send := func(p []byte) {
		_, _ = w.Write(p)
		flusher.Flush()
	}
	send([]byte(fmt.Sprintf("retry: %d\n\n", retryMillis)))

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			send([]byte(": keep-alive\n\n"))
		case msg, ok := <-ch:
			if !ok {
				return
			}
			send(msg)
		}
	}
}
