package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cipher-calc/backend/internal/common/logger"
	"github.com/cipher-calc/backend/internal/observability/metrics"
	"github.com/cipher-calc/backend/internal/vault/domain"
)

// feedEvent is the single frame type pushed over the live feed.
type feedEvent struct {
	Type    string         `json:"type"`
	Message domain.Message `json:"message"`
}

// Hub fans newly delivered messages out to connected vault sessions. One
// connection per account; a second connection for the same account replaces
// the first.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Register and Unregister must not block once Run has returned, or the
// read pumps of lingering connections would leak during shutdown.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.mu.Lock()
			if existing, ok := h.clients[client.userID]; ok {
				h.log.WithFields(client.ctx, logger.Fields{
					"user_id": existing.userID,
					"action":  "vault_ws_replace_connection",
				}).Info("vault feed replacing existing connection")
				existing.close()
				metrics.VaultWebSocketConnectionsActive.Dec()
			}
			h.clients[client.userID] = client
			h.mu.Unlock()
			metrics.VaultWebSocketConnectionsActive.Inc()
			metrics.VaultWebSocketConnectionsTotal.Inc()

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.userID]; ok && current == client {
				delete(h.clients, client.userID)
				client.close()
				metrics.VaultWebSocketConnectionsActive.Dec()
			}
			h.mu.Unlock()
		}
	}
}

// NotifyMessage implements the vault service's delivery sink. A client whose
// send buffer is full is dropped rather than allowed to stall delivery.
func (h *Hub) NotifyMessage(userID string, msg domain.Message) {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	payload, err := json.Marshal(feedEvent{Type: "message", Message: msg})
	if err != nil {
		h.log.Errorf("vault feed marshal failed: %v", err)
		return
	}

	select {
	case client.send <- payload:
	default:
		h.log.WithFields(client.ctx, logger.Fields{
			"user_id": userID,
			"action":  "vault_ws_slow_client",
		}).Warn("vault feed dropping slow client")
		metrics.VaultWebSocketDropped.Inc()
		go h.Unregister(client)
	}
}

func (h *Hub) shutdown() {
	close(h.done)
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, client := range h.clients {
		client.close()
		delete(h.clients, userID)
		metrics.VaultWebSocketConnectionsActive.Dec()
	}
}
