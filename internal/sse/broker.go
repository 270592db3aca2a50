// Package sse implements a Server-Sent Events broker for catalog and course
// structure changes.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Kind classifies a course change.
type Kind string

// Course change kinds accepted by PublishCourseEvent.
const (
	KindCreated   Kind = "created"
	KindUpdated   Kind = "updated"
	KindDeleted   Kind = "deleted"
	KindStructure Kind = "structure"
)

// eventType maps a kind to its SSE event name. Catalog-level kinds also
// count towards the next catalog.updated event.
func (k Kind) eventType() (name string, catalog bool, ok bool) {
	switch k {
	case KindCreated, KindUpdated, KindDeleted:
		return "course." + string(k), true, true
	case KindStructure:
		return "course.structure.updated", false, true
	}
	return "", false, false
}

// CourseChange is the payload of every course.* event.
type CourseChange struct {
	CourseID string    `json:"course_id"`
	Kind     Kind      `json:"kind"`
	At       time.Time `json:"at"`
}

// CatalogChange is the payload of catalog.updated. CourseIDs lists every
// course touched since the previous catalog.updated, sorted.
type CatalogChange struct {
	CourseIDs []string  `json:"course_ids"`
	At        time.Time `json:"at"`
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients, event sequence, pending catalog changes). Public methods communicate
// with this loop through channels, so no mutexes are required.
//
// catalog.updated is coalesced rather than dropped: changes arriving inside the
// throttle window are held and flushed by a trailing event once it elapses.
type Broker struct {
	catalogMin time.Duration
	heartbeat  time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	courseEventCh chan CourseChange
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. catalog.updated is emitted at most once
// per catalogThrottle.
func NewBroker(catalogThrottle time.Duration) *Broker {
	if catalogThrottle <= 0 {
		catalogThrottle = 2 * time.Second
	}

	b := &Broker{
		catalogMin:    catalogThrottle,
		heartbeat:     25 * time.Second,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		courseEventCh: make(chan CourseChange, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var seq uint64

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	var (
		lastCatalog time.Time
		pending     = make(map[string]struct{})
		trailing    *time.Timer
		trailingC   <-chan time.Time
	)
	flushCatalog := func(now time.Time) {
		ids := make([]string, 0, len(pending))
		for id := range pending {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		clear(pending)
		lastCatalog = now
		broadcast(Event{Type: "catalog.updated", Data: CatalogChange{CourseIDs: ids, At: now.UTC()}})
	}
	defer func() {
		if trailing != nil {
			trailing.Stop()
		}
	}()

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case change := <-b.courseEventCh:
			name, catalog, ok := change.Kind.eventType()
			if !ok {
				continue
			}
			broadcast(Event{Type: name, Data: change})
			if !catalog {
				continue
			}

			pending[change.CourseID] = struct{}{}
			if trailingC != nil {
				continue
			}
			now := time.Now()
			if wait := b.catalogMin - now.Sub(lastCatalog); wait > 0 {
				trailing = time.NewTimer(wait)
				trailingC = trailing.C
				continue
			}
			flushCatalog(now)

		case now := <-trailingC:
			trailingC = nil
			flushCatalog(now)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
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
	case b.unsubscribeCh <- ch:
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
	case b.countReqCh <- resp:
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

// Publish sends an arbitrary event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishCourseEvent publishes a course change as a CourseChange payload.
// Unknown kinds are ignored.
func (b *Broker) PublishCourseEvent(kind, courseID string) {
	if b.closed.Load() {
		return
	}
	change := CourseChange{CourseID: courseID, Kind: Kind(kind), At: time.Now().UTC()}
	select {
	case b.courseEventCh <- change:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). Idle streams get a
// comment line every heartbeat so proxies keep the connection open.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.heartbeat)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
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
