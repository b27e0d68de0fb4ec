package server

import (
	"sync"

	"go.uber.org/zap"
)

// Hub is the registry of live connections and the single broadcast domain.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *WebSocketLogger
}

// NewHub creates an empty Hub
func NewHub(logger *WebSocketLogger) *Hub {
	if logger == nil {
		logger = NewWebSocketLogger(nil)
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// OnConnect adds a client to the membership set.
func (h *Hub) OnConnect(client *Client) {
	h.mu.Lock()
	h.clients[client.clientID] = client
	h.mu.Unlock()

	h.logger.Info("client connected", client.identity.UserID, client.clientID)
}

// OnDisconnect removes a client and closes its outbound queue. Safe to repeat.
func (h *Hub) OnDisconnect(client *Client) {
	h.mu.Lock()
	_, member := h.clients[client.clientID]
	delete(h.clients, client.clientID)
	h.mu.Unlock()

	if client.closeSend() || member {
		h.logger.Info("client disconnected", client.identity.UserID, client.clientID)
	}
}

// EmitTo sends one event to one client. Failures are logged and returned.
func (h *Hub) EmitTo(client *Client, event string, payload any) error {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		h.logger.Error("encode failed", client.identity.UserID, client.clientID, err, zap.String("name", event))
		return err
	}
	if err := client.deliver(frame); err != nil {
		h.logger.Delivery(client, event, err)
		return err
	}
	return nil
}

// Broadcast queues the event for every member at call time and reports how
// many clients accepted it. Closed or saturated clients are skipped.
func (h *Hub) Broadcast(event string, payload any) int {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		h.logger.Error("encode failed", "", "", err, zap.String("name", event))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, client := range h.clients {
		if err := client.deliver(frame); err != nil {
			h.logger.Delivery(client, event, err)
			continue
		}
		delivered++
	}
	return delivered
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every client.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.closeSend()
	}
}
