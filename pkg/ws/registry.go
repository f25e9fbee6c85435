// Package ws is the connection and broadcast engine: the live-connection
// registry, the fan-out dispatcher, the typing tracker, and the per-session
// orchestration of inbound events over websocket transport.
package ws

import (
	"sync"

	"go.uber.org/zap"
)

// PresenceListener is notified when an identity's first connection arrives
// and when its last connection leaves. Several simultaneous connections from
// one identity produce a single online/offline pair, and an identity's
// transitions are delivered in the order they happened.
type PresenceListener interface {
	UserOnline(userID string)
	UserOffline(userID string)
}

// Registry is the set of live connections. It is built per process (or per
// test) and injected into everything that needs the live set; all access is
// synchronized internally, so admit, remove and snapshot are safe from any
// number of sessions at once.
type Registry struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	identities map[string]int

	listener PresenceListener
	// online/offline flips per identity, recorded under mu and delivered
	// in that order by a single drainer at a time
	backlog  map[string][]bool
	draining map[string]bool

	log *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		clients:    make(map[string]*Client),
		identities: make(map[string]int),
		backlog:    make(map[string][]bool),
		draining:   make(map[string]bool),
		log:        log,
	}
}

// SetPresenceListener wires the identity online/offline transitions. Must be
// called before the registry starts admitting connections.
func (r *Registry) SetPresenceListener(l PresenceListener) {
	r.listener = l
}

// Admit adds a connection to the live set.
func (r *Registry) Admit(c *Client) {
	r.mu.Lock()
	r.clients[c.id] = c
	r.identities[c.identity.ID]++
	drain := false
	if r.identities[c.identity.ID] == 1 {
		drain = r.queuePresence(c.identity.ID, true)
	}
	r.mu.Unlock()

	r.log.Info("connection admitted",
		zap.String("connection", c.id),
		zap.String("user", c.identity.ID))

	if drain {
		r.drainPresence(c.identity.ID)
	}
}

// Remove evicts a connection and closes it. Idempotent: the transport
// teardown and a failed broadcast delivery may both report the same
// connection.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	c, ok := r.clients[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.clients, id)
	r.identities[c.identity.ID]--
	drain := false
	if r.identities[c.identity.ID] == 0 {
		delete(r.identities, c.identity.ID)
		drain = r.queuePresence(c.identity.ID, false)
	}
	r.mu.Unlock()

	c.close()
	r.log.Info("connection removed",
		zap.String("connection", id),
		zap.String("user", c.identity.ID))

	if drain {
		r.drainPresence(c.identity.ID)
	}
}

// queuePresence records a flip for the identity. Caller holds mu. Reports
// whether the caller has to drain the backlog after unlocking.
func (r *Registry) queuePresence(userID string, online bool) bool {
	if r.listener == nil {
		return false
	}
	r.backlog[userID] = append(r.backlog[userID], online)
	if r.draining[userID] {
		return false
	}
	r.draining[userID] = true
	return true
}

// drainPresence delivers the identity's queued flips to the listener in
// order. Runs outside mu; the drainer role is handed back only once the
// backlog is empty, so at most one goroutine delivers per identity.
func (r *Registry) drainPresence(userID string) {
	for {
		r.mu.Lock()
		q := r.backlog[userID]
		if len(q) == 0 {
			delete(r.backlog, userID)
			delete(r.draining, userID)
			r.mu.Unlock()
			return
		}
		online := q[0]
		r.backlog[userID] = q[1:]
		r.mu.Unlock()

		if online {
			r.listener.UserOnline(userID)
		} else {
			r.listener.UserOffline(userID)
		}
	}
}

// ListLive returns a consistent snapshot of the live set. Admissions and
// removals concurrent with the call land entirely before or entirely after
// the snapshot.
func (r *Registry) ListLive() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// CloseAll evicts every connection. Called on shutdown.
func (r *Registry) CloseAll() {
	for _, c := range r.ListLive() {
		r.Remove(c.id)
	}
}
