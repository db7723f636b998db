package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"derm-triage-be/internal/model"
	"derm-triage-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hub fans triage alerts out to every connected clinician. When Redis is
// configured it also relays alerts across instances through a pub/sub channel.
type Hub struct {
	// Registered clients map: ClinicianID -> List of Clients (multi-device)
	clients map[uuid.UUID][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// Dedicated Logger
	logger logger.ILogger
}

const alertChannel = "triage_alerts"

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	// Start Redis Subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ClinicianID] = append(h.clients[client.ClinicianID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Clinician connected", map[string]interface{}{"clinician_id": client.ClinicianID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.ClinicianID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.ClinicianID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.ClinicianID]) == 0 {
					delete(h.clients, client.ClinicianID)
					h.logger.Info("Hub", "Clinician disconnected", map[string]interface{}{"clinician_id": client.ClinicianID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an alert to ALL connected clinicians, local and remote.
func (h *Hub) Broadcast(alert model.Alert) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "alert",
		"data": alert,
	})

	h.broadcastLocal(data)

	// Relay to other instances
	if h.rdb != nil {
		if err := h.rdb.Publish(context.Background(), alertChannel, data).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to relay alert to Redis", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (h *Hub) broadcastLocal(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.clients {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				close(client.Send)
				go func(c *Client) { h.unregister <- c }(client)
			}
		}
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, alertChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for msg := range ch {
		if !json.Valid([]byte(msg.Payload)) {
			log.Printf("Redis msg parse error: invalid JSON on %s", alertChannel)
			continue
		}
		h.broadcastLocal([]byte(msg.Payload))
	}
}

// ConnectedClinicians returns how many distinct clinicians are connected.
func (h *Hub) ConnectedClinicians() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
