// Package ws pushes helpdesk events to connected browsers and accepts
// questions over the same socket.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"faqdesk/backend/internal/service"
	"faqdesk/backend/pkg/logger"
)

// Frame types exchanged with clients.
const (
	TypeChat   = "chat"
	TypePing   = "ping"
	TypePong   = "pong"
	TypeReply  = "reply"
	TypeError  = "error"
	TypeTyping = "typing"
)

// Message is the envelope of every frame
type Message struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

type outgoing struct {
	Type    string `json:"type"`
	Content any    `json:"content,omitempty"`
}

// Submitter runs a question through the helpdesk pipeline.
type Submitter interface {
	Submit(ctx context.Context, caller service.Caller, text string) (*service.SubmitResponse, error)
}

// Hub tracks connected clients per user. It implements service.Notifier.
type Hub struct {
	submitter  Submitter
	log        *logger.Logger
	unregister chan *Client
	done       chan struct{}

	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
}

// NewHub creates a hub; call Run before serving connections.
func NewHub(submitter Submitter, log *logger.Logger) *Hub {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Hub{
		submitter:  submitter,
		log:        log,
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[uint]map[*Client]struct{}),
	}
}

// Run processes disconnects until ctx is done, then drops every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			h.log.Debug("Websocket client unregistered", "user_id", client.caller.UserID)

		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for client := range set {
					h.remove(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[client.caller.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.caller.UserID] = set
	}
	set[client] = struct{}{}
	h.log.Debug("Websocket client registered", "user_id", client.caller.UserID)
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// remove drops client and closes its send queue. Callers hold mu.
func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.caller.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.caller.UserID)
	}
}

// NotifyUser sends an event to every connection of userID. Slow clients
// are dropped instead of blocking the caller.
func (h *Hub) NotifyUser(userID uint, eventType string, payload any) {
	data, err := json.Marshal(outgoing{Type: eventType, Content: payload})
	if err != nil {
		h.log.LogError(err, "Failed to encode websocket event", "type", eventType)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- data:
		default:
			h.log.Warn("Dropping slow websocket client", "user_id", userID)
			h.remove(client)
		}
	}
}

// Connections returns the number of open connections of userID.
func (h *Hub) Connections(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

const submitTimeout = 30 * time.Second
