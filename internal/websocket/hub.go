package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"prompt-optimiser-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "session_events"

// Hub fans session updates out to the websocket clients watching each session.
// With Redis configured, updates are relayed to the other instances as well.
type Hub struct {
	// sessionID -> clients (one per open tab or device)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb *redis.Client
	// origin tags our own Redis messages so they are not delivered twice
	origin string

	logger logger.ILogger
}

type clusterMessage struct {
	Origin    string          `json:"origin"`
	SessionID string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		origin:     uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.SessionID]) == 0 {
		delete(h.clients, client.SessionID)
		h.logger.Info("Hub", "Session has no more watchers", map[string]interface{}{"session_id": client.SessionID})
	}
}

// ClientCount returns the number of local clients watching sessionID.
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Send delivers a session update locally and relays it to other instances.
func (h *Hub) Send(ctx context.Context, sessionID string, snapshot interface{}) {
	data, err := json.Marshal(map[string]interface{}{
		"type": "session",
		"data": snapshot,
	})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode session update", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
		return
	}

	h.deliver(sessionID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{Origin: h.origin, SessionID: sessionID, Message: data})
		if err := h.rdb.Publish(ctx, clusterChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to relay session update", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
		}
	}
}

func (h *Hub) deliver(sessionID string, data []byte) {
	// sends happen under the read lock so remove cannot close a channel mid-send
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[sessionID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client send buffer full, dropping client", map[string]interface{}{"session_id": sessionID})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Unreadable cluster message", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.origin {
			continue
		}
		h.deliver(payload.SessionID, payload.Message)
	}
}
