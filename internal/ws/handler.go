package ws

import (
	"net/http"
	"time"

	"faqdesk/backend/internal/service"
	"faqdesk/backend/pkg/errors"
	"faqdesk/backend/pkg/logger"
	"faqdesk/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler upgrades authenticated requests to websocket connections
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a handler for hub. An empty allowedOrigins list, or
// one containing "*", accepts any origin.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(origins) == 0 || origins["*"] || origins[origin]
			},
		},
	}
}

// Serve upgrades the connection. It runs behind the JWT middleware, which
// also accepts the token as a query parameter for browsers.
func (h *Handler) Serve(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError(errors.CodeUnauthorized, "Authentication required"))
		c.Abort()
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.FromContext(c).LogError(err, "Websocket upgrade failed")
		return
	}

	client := &Client{
		hub:    h.hub,
		conn:   conn,
		caller: service.CallerFromClaims(claims),
		send:   make(chan []byte, sendQueueSize),
	}
	h.hub.add(client)

	go client.writePump()
	go client.readPump()
}
