package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alfredjeanlab/sortgate/internal/events"
)

const (
	// streamBacklog is the number of recent events kept in memory for
	// Last-Event-ID reconnection support.
	streamBacklog = 256

	// streamKeepalive is how often keepalive comments are sent to
	// prevent connection timeouts.
	streamKeepalive = 15 * time.Second
)

// streamEvent is a single event stored in the backlog and sent to stream clients.
type streamEvent struct {
	ID    uint64 // monotonically increasing sequence number
	Topic string
	Data  []byte // JSON-encoded envelope
}

// EventHub fans gateway events out to connected GET /events clients. It
// implements events.Publisher so it can sit next to the NATS publisher.
type EventHub struct {
	mu      sync.RWMutex
	clients map[*streamClient]struct{}
	nextID  atomic.Uint64
	now     func() time.Time

	backlogMu  sync.RWMutex
	backlog    [streamBacklog]streamEvent
	backlogPos int // next write position (wraps around)
	backlogLen int // number of valid entries (up to streamBacklog)
}

var _ events.Publisher = (*EventHub)(nil)

// streamClient represents a single connected stream consumer.
type streamClient struct {
	topics []string          // topic patterns to match (empty = all)
	ch     chan *streamEvent // buffered channel for event delivery
}

// NewEventHub returns an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[*streamClient]struct{}),
		now:     time.Now,
	}
}

// Publish wraps event in an envelope and broadcasts it.
func (h *EventHub) Publish(_ context.Context, topic string, event any) error {
	payload, err := json.Marshal(events.NewEnvelope(topic, event, h.now()))
	if err != nil {
		return fmt.Errorf("marshal event for stream: %w", err)
	}
	h.broadcast(topic, payload)
	return nil
}

// Close disconnects nothing; stream handlers end with their requests.
func (h *EventHub) Close() error { return nil }

// broadcast sends an event to all connected clients whose topic filters match.
func (h *EventHub) broadcast(topic string, payload []byte) {
	evt := &streamEvent{
		ID:    h.nextID.Add(1),
		Topic: topic,
		Data:  payload,
	}

	h.backlogMu.Lock()
	h.backlog[h.backlogPos] = *evt
	h.backlogPos = (h.backlogPos + 1) % streamBacklog
	if h.backlogLen < streamBacklog {
		h.backlogLen++
	}
	h.backlogMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.matchesTopic(topic) {
			select {
			case c.ch <- evt:
			default:
				// Slow client; drop.
			}
		}
	}
}

// subscribe registers a new client. Call unsubscribe when done.
func (h *EventHub) subscribe(topics []string) *streamClient {
	c := &streamClient{
		topics: topics,
		ch:     make(chan *streamEvent, 64),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *EventHub) unsubscribe(c *streamClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// clientCount reports how many stream clients are connected.
func (h *EventHub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// eventsSince returns backlog events with ID > lastID, oldest first.
func (h *EventHub) eventsSince(lastID uint64) []*streamEvent {
	h.backlogMu.RLock()
	defer h.backlogMu.RUnlock()

	var result []*streamEvent
	start := h.backlogPos - h.backlogLen
	if start < 0 {
		start += streamBacklog
	}
	for i := range h.backlogLen {
		evt := &h.backlog[(start+i)%streamBacklog]
		if evt.ID > lastID {
			result = append(result, evt)
		}
	}
	return result
}

// matchesTopic checks whether the client's topic filters match the given
// topic. An empty filter list matches all topics.
func (c *streamClient) matchesTopic(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, pattern := range c.topics {
		if matchTopicPattern(pattern, topic) {
			return true
		}
	}
	return false
}

// matchTopicPattern matches a dot-separated topic against a pattern.
// Supports "*" as a single-segment wildcard and ">" as a multi-segment
// suffix wildcard (NATS-style).
func matchTopicPattern(pattern, topic string) bool {
	if pattern == topic {
		return true
	}

	patParts := strings.Split(pattern, ".")
	topParts := strings.Split(topic, ".")

	for i, pp := range patParts {
		if pp == ">" {
			return i < len(topParts)
		}
		if i >= len(topParts) {
			return false
		}
		if pp != "*" && pp != topParts[i] {
			return false
		}
	}

	return len(patParts) == len(topParts)
}

// handleEvents handles GET /events, a server-sent event stream of gateway
// events. ?topics= takes a comma-separated list of patterns.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var topics []string
	if q := r.URL.Query().Get("topics"); q != "" {
		for _, t := range strings.Split(q, ",") {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}
	}

	client := s.hub.subscribe(topics)
	defer s.hub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if lastIDStr := r.Header.Get("Last-Event-ID"); lastIDStr != "" {
		if lastID, err := strconv.ParseUint(lastIDStr, 10, 64); err == nil {
			for _, evt := range s.hub.eventsSince(lastID) {
				if client.matchesTopic(evt.Topic) {
					writeStreamEvent(w, evt)
				}
			}
			flusher.Flush()
		}
	}

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-client.ch:
			writeStreamEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprintf(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeStreamEvent(w http.ResponseWriter, evt *streamEvent) {
	fmt.Fprintf(w, "id:%d\n", evt.ID)
	fmt.Fprintf(w, "event:%s\n", evt.Topic)
	fmt.Fprintf(w, "data:%s\n\n", evt.Data)
}
