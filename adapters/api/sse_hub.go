package api

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"goreg/internal/logging"
)

// StreamEvent is one server-sent event on the live feed
type StreamEvent struct {
	Type      string      `json:"type"` // "trial" or "status"
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// SSEHub fans live engine events out to connected clients. Slow clients are
// skipped, never waited on.
type SSEHub struct {
	log        *logging.Logger
	register   chan chan StreamEvent
	unregister chan chan StreamEvent
	broadcast  chan StreamEvent
}

// NewSSEHub creates the hub and starts its dispatch loop
func NewSSEHub(log *logging.Logger) *SSEHub {
	hub := &SSEHub{
		log:        log,
		register:   make(chan chan StreamEvent, 10),
		unregister: make(chan chan StreamEvent, 10),
		broadcast:  make(chan StreamEvent, 256),
	}
	go hub.run()
	return hub
}

func (h *SSEHub) run() {
	clients := make(map[chan StreamEvent]bool)
	for {
		select {
		case ch := <-h.register:
			clients[ch] = true
			h.log.Debug("stream client connected (total %d)", len(clients))

		case ch := <-h.unregister:
			if clients[ch] {
				delete(clients, ch)
				close(ch)
			}
			h.log.Debug("stream client disconnected (total %d)", len(clients))

		case event := <-h.broadcast:
			for ch := range clients {
				select {
				case ch <- event:
				default:
					// Client buffer full, skip this event for it.
				}
			}
		}
	}
}

// Broadcast queues an event for all connected clients; drops when the hub
// itself is backed up.
func (h *SSEHub) Broadcast(event StreamEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn("stream backlog full, dropping %s event", event.Type)
	}
}

// HandleSSE serves the live event stream
func (h *SSEHub) HandleSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ch := make(chan StreamEvent, 32)
	h.register <- ch
	defer func() { h.unregister <- ch }()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(event.Type, event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
