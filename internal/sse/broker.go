// Package sse implements a Server-Sent Events broker for library updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types broadcast by the broker.
const (
	TypeBookCreated    = "book.created"
	TypeBookUpdated    = "book.updated"
	TypeBookDeleted    = "book.deleted"
	TypeLibraryUpdated = "library.updated"
)

const (
	clientBuffer     = 64
	defaultHeartbeat = 30 * time.Second
	retryMillis      = 3000
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// bookEventTypes maps index change kinds to event types.
var bookEventTypes = map[string]string{
	"created": TypeBookCreated,
	"updated": TypeBookUpdated,
	"deleted": TypeBookDeleted,
}

type bookChange struct {
	kind string
	path string
}

// Option configures a Broker.
type Option func(*Broker)

// WithHeartbeat sets the interval of keepalive comments sent to idle
// clients. Zero disables them.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

// Broker manages SSE client connections and broadcasts events.
//
// A single internal event loop owns the client set, the event sequence and
// the library.updated throttle timestamp. Public methods talk to the loop
// through channels.
type Broker struct {
	libraryMin time.Duration
	heartbeat  time.Duration

	join    chan chan []byte
	leave   chan chan []byte
	events  chan Event
	changes chan bookChange
	count   chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. libraryThrottle is the minimum interval
// between two library.updated events.
func NewBroker(libraryThrottle time.Duration, opts ...Option) *Broker {
	if libraryThrottle <= 0 {
		libraryThrottle = 2 * time.Second
	}

	b := &Broker{
		libraryMin: libraryThrottle,
		heartbeat:  defaultHeartbeat,
		join:       make(chan chan []byte),
		leave:      make(chan chan []byte),
		events:     make(chan Event, 256),
		changes:    make(chan bookChange, 256),
		count:      make(chan chan int),
		stopCh:     make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.loop()
	return b
}

// frame encodes one event in the text/event-stream wire format.
func frame(id uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", id, event.Type, payload), nil
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		seq         uint64
		lastLibrary time.Time
	)

	send := func(event Event) {
		msg, err := frame(seq+1, event)
		if err != nil {
			return
		}
		seq++
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.join:
			clients[ch] = struct{}{}

		case ch := <-b.leave:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.events:
			send(event)

		case c := <-b.changes:
			typ, ok := bookEventTypes[c.kind]
			if !ok {
				continue
			}
			send(Event{Type: typ, Data: map[string]string{"path": c.path}})

			if now := time.Now(); now.Sub(lastLibrary) >= b.libraryMin {
				lastLibrary = now
				send(Event{Type: TypeLibraryUpdated, Data: map[string]string{}})
			}

		case resp := <-b.count:
			resp <- len(clients)
		}
	}
}

// Close stops the event loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.join <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leave <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.count <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.events <- event:
	case <-b.stopped:
	}
}

// PublishBookEvent publishes a book note change and a throttled
// library.updated event. kind is "created", "updated" or "deleted".
func (b *Broker) PublishBookEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changes <- bookChange{kind: kind, path: path}:
	case <-b.stopped:
	}
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
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		tick = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
