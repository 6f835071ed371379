package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/google/uuid"
)

// SSE event names.
const (
	eventEndpoint = "endpoint"
	eventMessage  = "message"
)

// stream is one open event stream. Writes are serialized.
type stream struct {
	id   string
	conn *Conn

	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

func (s *stream) write(event, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stream %s closed", s.id)
	}
	if err := sse.Encode(s.w, sse.Event{Event: event, Data: data}); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *stream) send(event string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.write(event, string(payload))
}

func (s *stream) keepAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stream %s closed", s.id)
	}
	if _, err := fmt.Fprint(s.w, ": keepalive\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Hub tracks the open event streams.
type Hub struct {
	endpoint  string
	keepAlive time.Duration
	logger    *slog.Logger

	mu      sync.RWMutex
	streams map[string]*stream
	done    chan struct{}
	once    sync.Once
}

// NewHub creates a hub whose streams direct clients to POST to endpoint.
func NewHub(endpoint string, keepAlive time.Duration, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		endpoint:  endpoint,
		keepAlive: keepAlive,
		logger:    logger,
		streams:   make(map[string]*stream),
		done:      make(chan struct{}),
	}
}

// ServeHTTP opens an event stream. The first event names the endpoint,
// with the stream's sessionId, that requests for this stream go to.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	id := uuid.NewString()
	st := &stream{id: id, conn: NewConn(id), w: w, flusher: flusher}
	h.mu.Lock()
	h.streams[id] = st
	h.mu.Unlock()
	defer h.remove(st)

	if err := st.write(eventEndpoint, fmt.Sprintf("%s?sessionId=%s", h.endpoint, id)); err != nil {
		return
	}
	h.logger.Debug("event stream opened", "session", id, "remote", r.RemoteAddr)

	var tick <-chan time.Time
	if h.keepAlive > 0 {
		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		case <-tick:
			if err := st.keepAlive(); err != nil {
				h.logger.Debug("event stream keep-alive failed", "session", id, "error", err)
				return
			}
		}
	}
}

func (h *Hub) remove(st *stream) {
	h.mu.Lock()
	delete(h.streams, st.id)
	h.mu.Unlock()

	st.mu.Lock()
	st.closed = true
	st.mu.Unlock()
	h.logger.Debug("event stream closed", "session", st.id)
}

func (h *Hub) get(id string) (*stream, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	st, ok := h.streams[id]
	return st, ok
}

// Len returns the number of open streams.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams)
}

// Broadcast sends a message event to every initialized stream.
func (h *Hub) Broadcast(v any) {
	h.mu.RLock()
	targets := make([]*stream, 0, len(h.streams))
	for _, st := range h.streams {
		if st.conn.Initialized() {
			targets = append(targets, st)
		}
	}
	h.mu.RUnlock()

	for _, st := range targets {
		if err := st.send(eventMessage, v); err != nil {
			h.logger.Debug("broadcast failed", "session", st.id, "error", err)
		}
	}
}

// Close ends every open stream.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })
}
