package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains organization_id -> set of connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling: an event published on any instance reaches the
// staff connected to every instance.
type Hub struct {
	// organizationID -> map[clientID]*Client
	rooms    map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per organization
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher publishes organization events to other instances.
type RedisPublisher interface {
	PublishOrganizationEvent(orgID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to organization channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeOrganization(orgID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a WebSocket hub. redisPub and redisSub may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to its organization room. Starts the Redis subscription for the
// organization on its first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.OrganizationID] == nil {
		h.rooms[c.OrganizationID] = make(map[string]*Client)
		if h.redisSub != nil {
			orgID := c.OrganizationID
			cancel, err := h.redisSub.SubscribeOrganization(orgID, func(event string, payload []byte) {
				h.Broadcast(orgID, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("redis subscribe failed", zap.String("organization_id", orgID.String()), zap.Error(err))
			} else {
				h.subs[orgID] = cancel
			}
		}
	}
	h.rooms[c.OrganizationID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined organization feed", zap.String("client_id", c.ID), zap.String("organization_id", c.OrganizationID.String()))
}

// Unregister removes a client and closes its send channel. Cancels the Redis subscription
// when the last client of the organization leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.OrganizationID]; ok {
		if _, ok := m[c.ID]; ok {
			delete(m, c.ID)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.rooms, c.OrganizationID)
			if cancel, ok := h.subs[c.OrganizationID]; ok {
				cancel()
				delete(h.subs, c.OrganizationID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left organization feed", zap.String("client_id", c.ID), zap.String("organization_id", c.OrganizationID.String()))
}

func encode(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(payload)
	}
}

// Broadcast sends a message to the organization's clients on this instance.
func (h *Hub) Broadcast(orgID uuid.UUID, event string, payload any) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode broadcast failed", zap.String("event", event), zap.Error(err))
		return
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[orgID] {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Publish delivers an event to the organization's clients on every instance. With Redis the
// subscriber callback performs the broadcast, so local clients receive it once.
func (h *Hub) Publish(orgID uuid.UUID, event string, payload any) {
	if h.redis == nil {
		h.Broadcast(orgID, event, payload)
		return
	}
	data, err := encode(payload)
	if err != nil {
		return
	}
	if err := h.redis.PublishOrganizationEvent(orgID, event, data); err != nil {
		h.logger.Warn("redis publish failed, broadcasting locally", zap.String("organization_id", orgID.String()), zap.Error(err))
		h.Broadcast(orgID, event, json.RawMessage(data))
	}
}

// RoomSize returns the number of connected clients of an organization on this instance.
func (h *Hub) RoomSize(orgID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[orgID])
}
