// Package sse implements a Server-Sent Events broker for journal change
// notifications.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/starford/gitjournal/internal/journal"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Event types sent to clients.
const (
	EventJournalCreated = "journal.created"
	EventJournalUpdated = "journal.updated"
	EventJournalDeleted = "journal.deleted"
	// EventJournalsChanged is a throttled hint to reload journal listings.
	EventJournalsChanged = "journals.changed"
)

// JournalChange is the payload of the journal.* events.
type JournalChange struct {
	Path    string `json:"path"`
	Folder  string `json:"folder,omitempty"`
	Branch  string `json:"branch,omitempty"` // normalized name from the folder key
	Created string `json:"created,omitempty"`
}

func changeFor(p string) JournalChange {
	c := JournalChange{Path: p}
	folder := path.Base(path.Dir(p))
	if date, name, ok := journal.SplitFolderKey(folder); ok {
		c.Folder, c.Branch, c.Created = folder, name, date
	}
	return c
}

const (
	clientBuffer = 64
	// historySize bounds the frames kept for Last-Event-ID replay. It must
	// not exceed clientBuffer so a replay never blocks the loop.
	historySize = clientBuffer

	defaultHeartbeat = 25 * time.Second
	retryMillis      = 3000
)

type frame struct {
	id  uint64
	raw []byte
}

type subscribeReq struct {
	ch    chan []byte
	after uint64 // replay frames with a greater id; 0 replays nothing
}

type journalEventReq struct {
	kind string
	path string
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set, the replay history
// and the listing throttle. Public methods talk to it over channels.
type Broker struct {
	listMin   time.Duration
	heartbeat time.Duration

	subscribeCh    chan subscribeReq
	unsubscribeCh  chan chan []byte
	publishCh      chan Event
	journalEventCh chan journalEventReq
	countReqCh     chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithHeartbeat sets the interval of keep-alive comments on open streams.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.heartbeat = d
		}
	}
}

// NewBroker creates a new SSE broker. listThrottle bounds how often
// journals.changed is emitted.
func NewBroker(listThrottle time.Duration, opts ...Option) *Broker {
	if listThrottle <= 0 {
		listThrottle = 2 * time.Second
	}

	b := &Broker{
		listMin:        listThrottle,
		heartbeat:      defaultHeartbeat,
		subscribeCh:    make(chan subscribeReq),
		unsubscribeCh:  make(chan chan []byte),
		publishCh:      make(chan Event, 256),
		journalEventCh: make(chan journalEventReq, 256),
		countReqCh:     make(chan chan int),
		stopCh:         make(chan struct{}),
		stopped:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		seq      uint64
		history  []frame
		lastList time.Time
	)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))

		history = append(history, frame{id: seq, raw: raw})
		if len(history) > historySize {
			history = history[len(history)-historySize:]
		}

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall every stream.
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

		case req := <-b.subscribeCh:
			clients[req.ch] = struct{}{}
			if req.after == 0 {
				continue
			}
			for _, f := range history {
				if f.id > req.after {
					req.ch <- f.raw
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.journalEventCh:
			var typ string
			switch req.kind {
			case "created":
				typ = EventJournalCreated
			case "updated":
				typ = EventJournalUpdated
			case "deleted":
				typ = EventJournalDeleted
			default:
				continue
			}
			broadcast(Event{Type: typ, Data: changeFor(req.path)})

			if now := time.Now(); now.Sub(lastList) >= b.listMin {
				lastList = now
				broadcast(Event{Type: EventJournalsChanged, Data: struct{}{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the event loop and closes all client channels. It is safe
// to call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.subscribe(0)
}

// subscribe adds a client that first receives the retained events newer
// than lastID.
func (b *Broker) subscribe(lastID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscribeReq{ch: ch, after: lastID}:
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

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishJournalEvent publishes a journal change ("created", "updated" or
// "deleted") for the journal at path, followed by a throttled
// journals.changed event. Other kinds are ignored.
func (b *Broker) PublishJournalEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.journalEventCh <- journalEventReq{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). A reconnecting
// client sending Last-Event-ID first receives the retained events it missed.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.subscribe(lastID)
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
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
