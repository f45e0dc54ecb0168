package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/knowwho/internal/metrics"
)

const (
	clientBuffer      = 64
	heartbeatInterval = 30 * time.Second
)

// Event is a single server-sent event.
type Event struct {
	Name string
	Data any
}

// Broadcaster fans change events out to every connected /events client.
// It implements the Publisher contract of the dataset and settings services.
type Broadcaster struct {
	mu        sync.RWMutex
	clients   map[string]chan Event
	heartbeat time.Duration
	logger    *zap.Logger
}

// NewBroadcaster creates a ready-to-use broadcaster.
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		clients:   make(map[string]chan Event),
		heartbeat: heartbeatInterval,
		logger:    logger,
	}
}

// Subscribe registers a client and returns its buffered event channel.
func (b *Broadcaster) Subscribe(clientID string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, clientBuffer)
	b.clients[clientID] = ch
	metrics.SSEClientConnected(1)
	b.logger.Debug("SSE client subscribed", zap.String("client_id", clientID), zap.Int("clients", len(b.clients)))
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broadcaster) Unsubscribe(clientID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.clients[clientID]; ok {
		close(ch)
		delete(b.clients, clientID)
		metrics.SSEClientConnected(-1)
		b.logger.Debug("SSE client unsubscribed", zap.String("client_id", clientID), zap.Int("clients", len(b.clients)))
	}
}

// Publish sends an event to every client. A client whose buffer is full
// misses the event.
func (b *Broadcaster) Publish(event string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.clients {
		select {
		case ch <- Event{Name: event, Data: payload}:
		default:
			b.logger.Warn("Dropping SSE event for slow client", zap.String("event", event), zap.String("client_id", id))
		}
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Events handles GET /api/v1/events.
func (s *Server) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := startStream(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, ErrorCodeStreamingFailed, "streaming unsupported")
		return
	}

	clientID := uuid.NewString()
	ch := s.events.Subscribe(clientID)
	defer s.events.Unsubscribe(clientID)

	heartbeat := time.NewTicker(s.events.heartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(w, flusher, evt); err != nil {
				return
			}

		case t := <-heartbeat.C:
			hb := Event{Name: "heartbeat", Data: map[string]int64{"t": t.Unix()}}
			if err := writeEvent(w, flusher, hb); err != nil {
				return
			}
		}
	}
}

// startStream writes the event-stream headers and lifts the server write
// deadline for the lifetime of the connection.
func startStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}

	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher, true
}

// writeEvent formats and writes a single SSE frame.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, evt Event) error {
	data, err := json.Marshal(evt.Data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", evt.Name, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Name, data); err != nil {
		return fmt.Errorf("write %s event: %w", evt.Name, err)
	}
	flusher.Flush()
	return nil
}
