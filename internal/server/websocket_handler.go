package server

import (
	"context"
	"net/http"
	"strings"

	"catalog-chat/internal/domain"
	"catalog-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// IdentityResolver turns a bearer token into the connection's identity.
type IdentityResolver interface {
	ParseAccessToken(token string) (domain.Identity, error)
}

// EventConsumer handles one connection's inbound events until the stream closes.
type EventConsumer interface {
	Serve(ctx context.Context, client *Client, events <-chan Event)
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub          *Hub
	identities   IdentityResolver
	consumer     EventConsumer
	authRequired bool
	baseCtx      context.Context
	logger       *WebSocketLogger
}

// NewWebSocketHandler creates a new WebSocket handler. baseCtx bounds every
// connection's event loop; cancel it on shutdown.
func NewWebSocketHandler(baseCtx context.Context, hub *Hub, identities IdentityResolver, consumer EventConsumer, authRequired bool, logger *WebSocketLogger) *WebSocketHandler {
	if logger == nil {
		logger = NewWebSocketLogger(nil)
	}
	return &WebSocketHandler{
		hub:          hub,
		identities:   identities,
		consumer:     consumer,
		authRequired: authRequired,
		baseCtx:      baseCtx,
		logger:       logger,
	}
}

// Handle upgrades HTTP to WebSocket
func (h *WebSocketHandler) Handle(c *gin.Context) {
	identity, ok := h.authenticate(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", identity.UserID, "", err)
		return
	}

	client := NewClient(h.hub, conn, identity, h.logger)
	h.hub.OnConnect(client)

	go client.writePump()
	go h.consumer.Serve(h.baseCtx, client, client.Events())
	client.readPump(h.baseCtx)
}

func (h *WebSocketHandler) authenticate(c *gin.Context) (domain.Identity, bool) {
	token := extractToken(c)
	if token != "" && h.identities != nil {
		identity, err := h.identities.ParseAccessToken(token)
		if err == nil {
			return identity, true
		}
		h.logger.Warn("invalid access token", "", "")
		return domain.Identity{}, false
	}
	if h.authRequired {
		return domain.Identity{}, false
	}
	return domain.Identity{UserID: "anon-" + uuid.New().String(), Anonymous: true}, true
}

func extractToken(c *gin.Context) string {
	// Check query parameter
	token := c.Query("token")
	if token != "" {
		return token
	}

	// Check Authorization header
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	return ""
}
