// Package colpooltelemetry streams pool and collector lifecycle events
// to connected websocket clients: pool_created, pool_destroyed,
// collect_started, collect_completed. It mirrors, server-side, the
// shape streams/jsonrpc/client/client.go consumes client-side — the
// same SubscriptionEvent envelope, emitted here instead of parsed.
package colpooltelemetry

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Logger defines a standard interface for structured, leveled logging,
// the same shape used across the rest of colpool.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Event is the wrapper object broadcast to every connected client,
// matching streams/jsonrpc/client/client.go's SubscriptionEvent field
// names and JSON tags exactly so existing client-side decoders need no
// changes to consume colpool's own event stream.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	SentAt  int64           `json:"sentAt"`
}

// Event type names colpool emits.
const (
	EventPoolCreated      = "pool_created"
	EventPoolDestroyed    = "pool_destroyed"
	EventCollectStarted   = "collect_started"
	EventCollectCompleted = "collect_completed"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans a single internal event channel out to every connected
// websocket client, the same buffered-channel-plus-broadcast shape
// StreamProcessor uses to fan messages in to a single caller, inverted
// to fan one source out to many.
type Hub struct {
	logger Logger
	events chan Event

	mu      sync.Mutex
	clients map[*websocket.Conn]chan Event
}

// NewHub constructs a Hub with the given outbound event buffer size.
// logger may be nil, in which case events are silently dropped from
// logs (not from delivery).
func NewHub(bufferSize int, logger Logger) *Hub {
	if logger == nil {
		logger = noopLogger{}
	}
	h := &Hub{
		logger:  logger,
		events:  make(chan Event, bufferSize),
		clients: make(map[*websocket.Conn]chan Event),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for ev := range h.events {
		h.mu.Lock()
		for conn, ch := range h.clients {
			select {
			case ch <- ev:
			default:
				h.logger.Warn("colpooltelemetry: dropping event for slow client", "type", ev.Type)
				_ = conn
			}
		}
		h.mu.Unlock()
	}
}

// Publish emits an event of the given type with payload marshalled to
// JSON. Publish never blocks callers on slow clients — Hub.run drops
// the event for any client whose buffer is full instead (the client
// stays connected).
func (h *Hub) Publish(eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("colpooltelemetry: marshal payload", "error", err, "type", eventType)
		return
	}
	h.events <- Event{Type: eventType, Payload: data, SentAt: time.Now().Unix()}
}

// ServeHTTP upgrades the request to a websocket connection and streams
// every subsequent Hub event to it until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("colpooltelemetry: upgrade", "error", err)
		return
	}

	ch := make(chan Event, 16)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	h.logger.Info("colpooltelemetry: client connected", "remote", r.RemoteAddr)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		close(ch)
		conn.Close()
	}()

	for ev := range ch {
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Warn("colpooltelemetry: write", "error", err)
			return
		}
	}
}

// Close shuts down the Hub's internal event channel, which ends fan-out.
// It does not close client channels or connections: a ServeHTTP call
// already in progress keeps its connection open and receives no further
// events. Publish after Close panics (send on a closed channel).
func (h *Hub) Close() {
	close(h.events)
}
