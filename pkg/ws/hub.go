package ws

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Hub fans events out to live connections. Delivery is at-most-once and
// best-effort: the live set is snapshotted when the call starts, each
// delivery succeeds or fails on its own, and a connection that cannot take
// the event is dropped instead of holding up the rest. Durability belongs to
// the ledger, not to the broadcast.
type Hub struct {
	registry *Registry
	log      *zap.Logger
}

func NewHub(registry *Registry, log *zap.Logger) *Hub {
	return &Hub{registry: registry, log: log}
}

// BroadcastAll serializes event once and delivers it to every connection
// live at the moment of the call. A full or dead peer buffer counts as a
// transport failure: that connection is removed from the registry and the
// fan-out continues.
func (h *Hub) BroadcastAll(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("marshal broadcast event", zap.Error(err))
		return
	}

	for _, c := range h.registry.ListLive() {
		if !c.trySend(data) {
			h.log.Warn("dropping unresponsive connection",
				zap.String("connection", c.id),
				zap.String("user", c.identity.ID))
			h.registry.Remove(c.id)
		}
	}
}

// SendTo delivers an event to a single connection: the initial snapshot and
// per-request error responses never go anywhere else.
func (h *Hub) SendTo(c *Client, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("marshal event", zap.Error(err))
		return
	}
	if !c.trySend(data) {
		h.log.Warn("dropping unresponsive connection",
			zap.String("connection", c.id),
			zap.String("user", c.identity.ID))
		h.registry.Remove(c.id)
	}
}
