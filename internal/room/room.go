// Package room implements the per-room connection registry, presence
// cache, broadcast discipline, and storage/live-state ownership described
// in spec.md §4.4, plus a cross-instance Redis relay grounded on the
// teacher's hub.go.
package room

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/ryanwaits/openblocks-sub000/internal/crdt"
	"github.com/ryanwaits/openblocks-sub000/internal/livestate"
	"github.com/ryanwaits/openblocks-sub000/internal/presence"
)

// Connection is the minimal surface Room needs from a transport-level
// connection; wsconn.Conn implements this.
type Connection interface {
	ID() string
	Presence() *presence.User
	Send(v any) error
	Close()
}

// InitialStorageFunc builds the initial CRDT root for a room the first time
// it is needed, e.g. loaded from persistence. A nil return means the room
// starts with an empty document.
type InitialStorageFunc func(roomID string) (any, error)

// Room owns one room's connections, presence cache, CRDT document, and
// live-state store. All mutating methods are safe for concurrent use.
type Room struct {
	id string

	mu            sync.RWMutex
	connections   map[string]Connection
	presenceCache []byte

	document *crdt.StorageDocument
	live     *livestate.Store

	initOnce   sync.Once
	initDone   chan struct{}
	documentID bool // true once storage:init has been accepted for this room

	relay Relay
}

// Relay publishes a room broadcast to other server processes sharing the
// same backing store. Messages arriving from them are delivered by the
// implementation itself (RedisRelay.Start calls broadcastLocal), not
// through this interface. A nil Relay disables cross-instance fan-out.
type Relay interface {
	Publish(roomID string, payload []byte, excludeConnID string)
}

func newRoom(id string, relay Relay) *Room {
	return &Room{
		id:          id,
		connections: make(map[string]Connection),
		document:    crdt.NewStorageDocument(),
		live:        livestate.NewStore(),
		initDone:    make(chan struct{}),
		relay:       relay,
	}
}

// ID returns the room's opaque identifier.
func (r *Room) ID() string { return r.id }

// Document returns the room's CRDT storage document.
func (r *Room) Document() *crdt.StorageDocument { return r.document }

// LiveState returns the room's live-state overlay store.
func (r *Room) LiveState() *livestate.Store { return r.live }

// Add registers conn in the room, invalidating the presence cache.
func (r *Room) Add(conn Connection) {
	r.mu.Lock()
	r.connections[conn.ID()] = conn
	r.presenceCache = nil
	r.mu.Unlock()
}

// Remove unregisters conn, invalidating the presence cache. Returns whether
// the room is now empty.
func (r *Room) Remove(connID string) (empty bool) {
	r.mu.Lock()
	delete(r.connections, connID)
	r.presenceCache = nil
	empty = len(r.connections) == 0
	r.mu.Unlock()
	return empty
}

// Connections returns a snapshot of every currently registered connection,
// used by graceful shutdown to terminate all open sockets.
func (r *Room) Connections() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Connection, 0, len(r.connections))
	for _, c := range r.connections {
		out = append(out, c)
	}
	return out
}

// Count returns the number of registered connections.
func (r *Room) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// InvalidatePresenceCache forces the next PresenceSnapshot call to rebuild
// the cached message, used after any presence:update or reaper transition.
func (r *Room) InvalidatePresenceCache() {
	r.mu.Lock()
	r.presenceCache = nil
	r.mu.Unlock()
}

// PresenceSnapshot returns the room's cached presence list message,
// (re)building it from the current connections if invalidated.
func (r *Room) PresenceSnapshot() []byte {
	r.mu.RLock()
	if r.presenceCache != nil {
		cached := r.presenceCache
		r.mu.RUnlock()
		return cached
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.presenceCache != nil {
		return r.presenceCache
	}
	users := make([]*presence.User, 0, len(r.connections))
	for _, c := range r.connections {
		users = append(users, c.Presence())
	}
	data, err := json.Marshal(map[string]any{"type": "presence", "users": users})
	if err != nil {
		log.Printf("room %s: failed to marshal presence snapshot: %v", r.id, err)
		return nil
	}
	r.presenceCache = data
	return data
}

// Broadcast sends payload to every connection except those in exclude,
// skipping send failures on individual sockets without aborting the loop,
// and relays the message to other server instances via Relay if configured.
func (r *Room) Broadcast(payload []byte, exclude map[string]bool) {
	r.broadcastLocal(payload, exclude)
	if r.relay != nil {
		excludeID := ""
		for id := range exclude {
			excludeID = id
			break
		}
		r.relay.Publish(r.id, payload, excludeID)
	}
}

// broadcastLocal sends to this process's own connections only, used both by
// Broadcast and by the relay's inbound fan-out (to avoid re-publishing a
// message that just arrived from Redis).
func (r *Room) broadcastLocal(payload []byte, exclude map[string]bool) {
	r.mu.RLock()
	targets := make([]Connection, 0, len(r.connections))
	for id, c := range r.connections {
		if exclude != nil && exclude[id] {
			continue
		}
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(json.RawMessage(payload)); err != nil {
			log.Printf("room %s: send to connection %s failed, closing: %v", r.id, c.ID(), err)
			c.Close()
		}
	}
}

// StorageInitialized reports whether a storage:init root has been accepted
// for this room, either from a client or from InitialStorageFunc.
func (r *Room) StorageInitialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.documentID
}

// AcceptStorageInit marks the room's document as initialized from raw (a
// serialized tree, or nil for an empty document) and rehydrates it in
// place. Returns false if the room was already initialized.
func (r *Room) AcceptStorageInit(raw any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.documentID {
		return false
	}
	if raw != nil {
		r.document.ApplySnapshot(raw)
	}
	r.documentID = true
	return true
}

// EnsureInitialized runs fn exactly once for this room, guarding concurrent
// callers behind the same init barrier (spec.md §4.2's "concurrent arrivals
// await the same promise"). Subsequent calls are no-ops.
func (r *Room) EnsureInitialized(fn InitialStorageFunc) {
	r.initOnce.Do(func() {
		defer close(r.initDone)
		if fn == nil {
			return
		}
		raw, err := fn(r.id)
		if err != nil {
			log.Printf("room %s: initialStorage hook failed: %v", r.id, err)
			return
		}
		if raw != nil {
			r.AcceptStorageInit(raw)
		}
	})
	<-r.initDone
}
