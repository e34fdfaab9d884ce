package api

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/webstone-core/internal/infrastructure/config"
	"github.com/nerrad567/webstone-core/internal/infrastructure/logging"
	"github.com/nerrad567/webstone-core/internal/protocol"
	"github.com/nerrad567/webstone-core/internal/registry"
	"github.com/nerrad567/webstone-core/internal/session"
)

// Hub tracks connected clients and the subscriber set of each registry.
//
// Broadcast methods are called on the loop, which is what makes reading
// registries and session state there safe. The tables themselves are
// guarded by mu because shutdown and health checks read them from other
// goroutines.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu          sync.RWMutex
	clients     map[*Client]struct{}
	subscribers map[uuid.UUID]map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:         cfg,
		logger:      logger,
		clients:     make(map[*Client]struct{}),
		subscribers: make(map[uuid.UUID]map[*Client]struct{}),
	}
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "socket_id", c.id, "clients", n)
}

// Unregister removes a client from every table and closes it. Safe to call
// more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	for id, set := range h.subscribers {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subscribers, id)
		}
	}
	n := len(h.clients)
	h.mu.Unlock()

	c.close(websocket.CloseNormalClosure, "")
	if existed {
		h.logger.Debug("websocket client disconnected", "socket_id", c.id, "clients", n)
	}
}

// Subscribe adds c to the subscriber set of registryID.
func (h *Hub) Subscribe(c *Client, registryID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscribers[registryID]
	if !ok {
		set = make(map[*Client]struct{})
		h.subscribers[registryID] = set
	}
	set[c] = struct{}{}
}

// Unsubscribe removes c from the subscriber set of registryID.
func (h *Hub) Unsubscribe(c *Client, registryID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subscribers[registryID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subscribers, registryID)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns the number of clients subscribed to registryID.
func (h *Hub) SubscriberCount(registryID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[registryID])
}

func (h *Hub) subscribersOf(registryID uuid.UUID) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.subscribers[registryID]
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (h *Hub) allClients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// closeAll disconnects every client.
func (h *Hub) closeAll() {
	for _, c := range h.allClients() {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
}

// publish encodes one frame and offers it to each client. A client whose
// buffer is full or that is already closed is skipped.
func (h *Hub) publish(clients []*Client, t protocol.Type, payload any) {
	if len(clients) == 0 {
		return
	}
	data, err := protocol.Encode(t, payload)
	if err != nil {
		h.logger.Error("failed to encode broadcast", "type", t, "error", err)
		return
	}
	for _, c := range clients {
		if !c.trySend(data) {
			h.logger.Debug("broadcast skipped client", "type", t, "socket_id", c.id)
		}
	}
}

// BlockList sends BLOCKS for r to its subscribers.
func (h *Hub) BlockList(r *registry.Registry) {
	h.publish(h.subscribersOf(r.ID()), protocol.TypeBlocks, protocol.BlocksFrom(r))
}

// GroupList sends BLOCK_GROUPS for r to its subscribers.
func (h *Hub) GroupList(r *registry.Registry) {
	h.publish(h.subscribersOf(r.ID()), protocol.TypeBlockGroups, protocol.GroupsFrom(r))
}

// BlockUpdated sends BLOCK_UPDATE for b to the subscribers of r.
func (h *Hub) BlockUpdated(r *registry.Registry, b *registry.Block) {
	h.publish(h.subscribersOf(r.ID()), protocol.TypeBlockUpdate, protocol.BlockFrom(b))
}

// GroupUpdated sends BLOCK_GROUP_UPDATE for g to the subscribers of r.
func (h *Hub) GroupUpdated(r *registry.Registry, g *registry.Group) {
	h.publish(h.subscribersOf(r.ID()), protocol.TypeBlockGroupUpdate, protocol.GroupFrom(g))
}

// Retain drops the subscriber sets of registries d no longer holds and
// returns their sessions to AUTHENTICATED so they can subscribe again.
func (h *Hub) Retain(d *registry.Directory) {
	h.mu.Lock()
	var orphaned []*Client
	for id, set := range h.subscribers {
		if d.Registry(id) != nil {
			continue
		}
		for c := range set {
			orphaned = append(orphaned, c)
		}
		delete(h.subscribers, id)
	}
	h.mu.Unlock()

	for _, c := range orphaned {
		if c.session != nil {
			c.session.Unsubscribe()
		}
		h.logger.Debug("subscription dropped with its registry", "socket_id", c.id)
	}
}

// RegistryList sends BLOCK_LISTS to every authenticated client.
func (h *Hub) RegistryList(d *registry.Directory) {
	var targets []*Client
	for _, c := range h.allClients() {
		if c.session != nil && c.session.State() != session.StateNone {
			targets = append(targets, c)
		}
	}
	h.publish(targets, protocol.TypeBlockLists, protocol.BlockLists{AvailableRegistries: d.DisplayNames()})
}
