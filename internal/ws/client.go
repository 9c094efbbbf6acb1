package ws

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"faqdesk/backend/internal/service"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024
	sendQueueSize  = 64
)

// Client is one websocket connection of an authenticated user
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	caller service.Caller
	send   chan []byte
}

type chatContent struct {
	Content string `json:"content"`
}

// readPump reads frames until the connection fails. Questions are handled
// in order, one at a time.
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.LogError(err, "Websocket read failed", "user_id", c.caller.UserID)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("malformed frame")
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg Message) {
	switch msg.Type {
	case TypePing:
		c.sendFrame(TypePong, nil)
	case TypeChat:
		var content chatContent
		if err := json.Unmarshal(msg.Content, &content); err != nil || strings.TrimSpace(content.Content) == "" {
			c.sendError(service.ErrEmptyMessage.Error())
			return
		}
		c.sendFrame(TypeTyping, map[string]bool{"is_typing": true})

		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		resp, err := c.hub.submitter.Submit(ctx, c.caller, content.Content)
		if err != nil {
			if !errors.Is(err, service.ErrEmptyMessage) {
				c.hub.log.LogError(err, "Websocket question failed", "user_id", c.caller.UserID)
			}
			c.sendError("failed to process the question")
			return
		}
		c.sendFrame(TypeReply, resp)
	default:
		c.sendError("unknown frame type: " + msg.Type)
	}
}

func (c *Client) sendError(text string) {
	c.sendFrame(TypeError, map[string]string{"message": text})
}

// sendFrame queues a frame for this client. The hub may already have
// closed the queue, in which case the frame is dropped.
func (c *Client) sendFrame(frameType string, content any) {
	data, err := json.Marshal(outgoing{Type: frameType, Content: content})
	if err != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.caller.UserID][c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
