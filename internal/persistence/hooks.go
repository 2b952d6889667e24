package persistence

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ryanwaits/openblocks-sub000/internal/crdt"
	"github.com/ryanwaits/openblocks-sub000/internal/room"
)

// DefaultSnapshotIntervalOps and DefaultSnapshotIntervalMs bound how often
// Hooks re-snapshots a room whose operation log is growing, per SPEC_FULL
// §4.2's "every N ops or T seconds".
const (
	DefaultSnapshotIntervalOps = 50
	DefaultSnapshotIntervalMs  = 30_000
)

// Hooks adapts OperationLog/SnapshotStore to the room.InitialStorageFunc and
// wsconn.Callbacks.OnStorageChange shapes cmd/room-server wires them as.
type Hooks struct {
	ops    *OperationLog
	snaps  *SnapshotStore
	rooms  *room.Manager
	intOps int
	intMs  int64

	mu        sync.Mutex
	sinceSnap map[string]int
	lastSnap  map[string]int64
}

// NewHooks returns a Hooks using intervalOps/intervalMs as the re-snapshot
// thresholds; zero values fall back to the package defaults.
func NewHooks(ops *OperationLog, snaps *SnapshotStore, rooms *room.Manager, intervalOps int, intervalMs int64) *Hooks {
	if intervalOps <= 0 {
		intervalOps = DefaultSnapshotIntervalOps
	}
	if intervalMs <= 0 {
		intervalMs = DefaultSnapshotIntervalMs
	}
	return &Hooks{
		ops:       ops,
		snaps:     snaps,
		rooms:     rooms,
		intOps:    intervalOps,
		intMs:     intervalMs,
		sinceSnap: make(map[string]int),
		lastSnap:  make(map[string]int64),
	}
}

// InitialStorage implements room.InitialStorageFunc: loads the latest
// snapshot blob for roomID, or nil if the room has never been persisted.
func (h *Hooks) InitialStorage(roomID string) (any, error) {
	root, ok, err := h.snaps.Load(context.Background(), roomID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return root, nil
}

// OnStorageChange implements the wsconn Callbacks.OnStorageChange shape:
// appends ops to the operation log, then snapshots the room's current
// document state if enough ops or enough time has elapsed since the last
// snapshot.
func (h *Hooks) OnStorageChange(roomID string, ops []crdt.Op) {
	ctx := context.Background()
	if err := h.ops.Append(ctx, roomID, ops); err != nil {
		log.Printf("persistence: failed to append operations for room %s: %v", roomID, err)
		return
	}

	if !h.shouldSnapshot(roomID, len(ops)) {
		return
	}

	rm, ok := h.rooms.Get(roomID)
	if !ok {
		return
	}
	doc := rm.Document()
	if err := h.snaps.Save(ctx, roomID, doc.Clock(), doc.Serialize()); err != nil {
		log.Printf("persistence: failed to snapshot room %s: %v", roomID, err)
		return
	}
	h.mu.Lock()
	h.sinceSnap[roomID] = 0
	h.lastSnap[roomID] = time.Now().UnixMilli()
	h.mu.Unlock()
}

func (h *Hooks) shouldSnapshot(roomID string, newOps int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinceSnap[roomID] += newOps
	elapsed := time.Now().UnixMilli() - h.lastSnap[roomID]
	return h.sinceSnap[roomID] >= h.intOps || elapsed >= h.intMs
}
