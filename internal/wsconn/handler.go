package wsconn

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ryanwaits/openblocks-sub000/internal/auth"
	"github.com/ryanwaits/openblocks-sub000/internal/crdt"
	"github.com/ryanwaits/openblocks-sub000/internal/livestate"
	"github.com/ryanwaits/openblocks-sub000/internal/presence"
	"github.com/ryanwaits/openblocks-sub000/internal/room"
)

// Callbacks is the hook surface SPEC_FULL §2 calls the "Callback surface":
// onJoin/onLeave/onMessage/onStorageChange/initialStorage. Every field is
// optional; a nil field is simply not invoked.
type Callbacks struct {
	OnJoin          func(roomID, userID string)
	OnLeave         func(roomID, userID string)
	OnMessage       func(roomID string, identity auth.Identity, msgType string, raw json.RawMessage)
	OnStorageChange func(roomID string, ops []crdt.Op)
	InitialStorage  room.InitialStorageFunc
}

// Config wires one room-server instance's upgrade path to its room
// manager, auth handler, and callback surface.
type Config struct {
	PathPrefix     string // default "/rooms"
	MaxConnections int    // per-room cap; 0 means unlimited
	Rooms          *room.Manager
	Auth           auth.Handler // nil falls back to auth.QueryParamHandler
	Callbacks      Callbacks
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleUpgrade implements the full upgrade contract of spec.md §4.1: path
// parsing, per-room connection cap, auth, and the per-connection startup
// sequence, before handing off to the blocking read pump.
func HandleUpgrade(w http.ResponseWriter, r *http.Request, cfg Config) {
	prefix := cfg.PathPrefix
	if prefix == "" {
		prefix = "/rooms"
	}
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	roomID := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if idx := strings.IndexByte(roomID, '/'); idx >= 0 {
		roomID = roomID[:idx]
	}
	if roomID == "" {
		http.Error(w, "missing roomId", http.StatusBadRequest)
		return
	}

	rm := cfg.Rooms.GetOrCreate(roomID)
	if cfg.MaxConnections > 0 && rm.Count() >= cfg.MaxConnections {
		http.Error(w, "room is at capacity", http.StatusServiceUnavailable)
		return
	}

	identity, err := auth.Resolve(cfg.Auth, auth.UpgradeRequest{
		Headers: r.Header,
		URL:     r.URL,
		Query:   r.URL.Query(),
	})
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("wsconn: upgrade failed for room %s: %v", roomID, err)
		return
	}

	now := time.Now().UnixMilli()
	pres := presence.New(identity.UserID, identity.DisplayName, now)
	conn := newConn(uuid.NewString(), ws, pres)

	startConnection(rm, conn, identity, cfg.Callbacks)
}

// startConnection implements the per-connection startup sequence of
// spec.md §4.1: register, broadcast presence, send storage:init and
// state:init, invoke onJoin, then run the blocking read pump until close.
func startConnection(rm *room.Room, conn *Conn, identity auth.Identity, cb Callbacks) {
	rm.Add(conn)
	rm.InvalidatePresenceCache()
	rm.Broadcast(rm.PresenceSnapshot(), nil)

	go conn.writePump()

	rm.EnsureInitialized(func(roomID string) (any, error) {
		if cb.InitialStorage == nil {
			return nil, nil
		}
		return cb.InitialStorage(roomID)
	})

	sendStorageInit(rm, conn)
	sendStateInit(rm, conn)

	if cb.OnJoin != nil {
		go cb.OnJoin(rm.ID(), identity.UserID)
	}

	d := &dispatcher{room: rm, conn: conn, identity: identity, cb: cb}
	conn.readPump(d.dispatch)

	closeConnection(rm, conn, identity, cb)
}

func sendStorageInit(rm *room.Room, conn *Conn) {
	var root any
	if rm.StorageInitialized() {
		root = rm.Document().Serialize()
	}
	_ = conn.Send(storageInitMessage{Type: "storage:init", Root: root})
}

func sendStateInit(rm *room.Room, conn *Conn) {
	states := rm.LiveState().Snapshot()
	if len(states) == 0 {
		return
	}
	_ = conn.Send(stateInitMessage{Type: "state:init", States: states})
}

func closeConnection(rm *room.Room, conn *Conn, identity auth.Identity, cb Callbacks) {
	conn.Close()
	empty := rm.Remove(conn.ID())
	if cb.OnLeave != nil {
		go cb.OnLeave(rm.ID(), identity.UserID)
	}
	if empty {
		rm.ScheduleCleanup(rm.ID())
	}
	rm.InvalidatePresenceCache()
	rm.Broadcast(rm.PresenceSnapshot(), nil)
}

type storageInitMessage struct {
	Type string `json:"type"`
	Root any    `json:"root"`
}

type stateInitMessage struct {
	Type   string                      `json:"type"`
	States map[string]livestate.Entry `json:"states"`
}
