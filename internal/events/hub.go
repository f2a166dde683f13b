package events

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"gridprep/models"
)

// subscription wildcard: receives every session's events.
const allSessions = "*"

type subscriber struct {
	sessionID string
	channel   chan models.FlowEvent
}

// Hub is the in-process event bus behind the dataframe-saved broadcast and
// its SSE fan-out. Sibling panels subscribe instead of being called back
// directly, since a save may be triggered from deep inside the wizard.
type Hub struct {
	clients    map[string]map[chan models.FlowEvent]bool
	clientsMu  sync.RWMutex
	register   chan subscriber
	unregister chan subscriber
	broadcast  chan models.FlowEvent
}

// NewHub creates a hub and starts its dispatch loop.
func NewHub() *Hub {
	hub := &Hub{
		clients:    make(map[string]map[chan models.FlowEvent]bool),
		register:   make(chan subscriber, 10),
		unregister: make(chan subscriber, 10),
		broadcast:  make(chan models.FlowEvent, 100),
	}

	go hub.run()
	return hub
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			h.clientsMu.Lock()
			if h.clients[sub.sessionID] == nil {
				h.clients[sub.sessionID] = make(map[chan models.FlowEvent]bool)
			}
			h.clients[sub.sessionID][sub.channel] = true
			h.clientsMu.Unlock()

		case sub := <-h.unregister:
			h.clientsMu.Lock()
			if subs, exists := h.clients[sub.sessionID]; exists {
				if subs[sub.channel] {
					delete(subs, sub.channel)
					close(sub.channel)
				}
				if len(subs) == 0 {
					delete(h.clients, sub.sessionID)
				}
			}
			h.clientsMu.Unlock()

		case event := <-h.broadcast:
			h.clientsMu.RLock()
			h.deliverLocked(event, event.SessionID)
			h.deliverLocked(event, allSessions)
			h.clientsMu.RUnlock()
		}
	}
}

func (h *Hub) deliverLocked(event models.FlowEvent, key string) {
	for channel := range h.clients[key] {
		select {
		case channel <- event:
		default:
			// Subscriber channel is full, skip rather than block the loop.
			log.Printf("[Events] Subscriber channel full, skipping %s event", event.Type)
		}
	}
}

// Publish sends an event to all subscribers of its session plus wildcard
// subscribers. Never blocks; events are dropped if the hub is overloaded.
func (h *Hub) Publish(event models.FlowEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		log.Printf("[Events] Broadcast channel full, dropping event: %s", event.Type)
	}
}

// Subscribe registers a listener for one session's events; an empty
// sessionID subscribes to all sessions. The cancel func releases the
// subscription and closes the channel.
func (h *Hub) Subscribe(sessionID string) (<-chan models.FlowEvent, func()) {
	if sessionID == "" {
		sessionID = allSessions
	}
	channel := make(chan models.FlowEvent, 10)
	sub := subscriber{sessionID: sessionID, channel: channel}
	h.register <- sub

	var once sync.Once
	cancel := func() {
		once.Do(func() { h.unregister <- sub })
	}
	return channel, cancel
}

// SubscriberCount returns the number of active subscribers for a session.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	if sessionID == "" {
		sessionID = allSessions
	}
	return len(h.clients[sessionID])
}

// HandleSSE streams flow events to a browser client as Server-Sent Events.
// session_id is optional; without it the client sees every session.
func (h *Hub) HandleSSE(c *gin.Context) {
	sessionID := c.Query("session_id")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	channel, cancel := h.Subscribe(sessionID)
	defer cancel()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-channel:
			if !ok {
				return false
			}
			eventJSON, err := json.Marshal(event)
			if err != nil {
				log.Printf("[Events] Failed to marshal event: %v", err)
				return true
			}
			c.SSEvent(event.Type, string(eventJSON))
			return true

		case <-time.After(30 * time.Second):
			// Ping to keep intermediaries from closing the connection.
			c.SSEvent("ping", `{"status": "alive"}`)
			return true

		case <-ctx.Done():
			return false
		}
	})
}
