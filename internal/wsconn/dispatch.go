package wsconn

import (
	"encoding/json"
	"log"
	"math"
	"time"

	"github.com/ryanwaits/openblocks-sub000/internal/auth"
	"github.com/ryanwaits/openblocks-sub000/internal/crdt"
	"github.com/ryanwaits/openblocks-sub000/internal/room"
)

// dispatcher holds the per-connection context the inbound message table of
// spec.md §4.1 needs to validate, apply, and relay each frame type.
type dispatcher struct {
	room     *room.Room
	conn     *Conn
	identity auth.Identity
	cb       Callbacks
}

func (d *dispatcher) dispatch(raw json.RawMessage) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return
	}

	switch envelope.Type {
	case "storage:init":
		d.handleStorageInit(raw)
	case "storage:ops":
		d.handleStorageOps(raw)
	case "state:update":
		d.handleStateUpdate(raw)
	case "heartbeat":
		d.handleHeartbeat()
	case "presence:update":
		d.handlePresenceUpdate(raw)
	case "cursor:update":
		d.handleCursorUpdate(raw)
	default:
		if d.cb.OnMessage != nil {
			d.cb.OnMessage(d.room.ID(), d.identity, envelope.Type, raw)
		}
		d.room.Broadcast(raw, map[string]bool{d.conn.ID(): true})
	}
}

func (d *dispatcher) handleStorageInit(raw json.RawMessage) {
	var in struct {
		Root any `json:"root"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return
	}
	if !d.room.AcceptStorageInit(in.Root) {
		return // already initialized; later inits are ignored
	}
	payload, err := json.Marshal(storageInitMessage{Type: "storage:init", Root: in.Root})
	if err != nil {
		log.Printf("wsconn: failed to marshal storage:init broadcast: %v", err)
		return
	}
	d.room.Broadcast(payload, nil) // including the sender
}

func (d *dispatcher) handleStorageOps(raw json.RawMessage) {
	var in struct {
		Ops []crdt.Op `json:"ops"`
	}
	if err := json.Unmarshal(raw, &in); err != nil || len(in.Ops) == 0 {
		return
	}
	if !d.room.StorageInitialized() {
		return
	}

	applied := d.room.Document().ApplyRemoteOps(in.Ops)
	if len(applied) == 0 {
		return
	}

	out := struct {
		Type  string     `json:"type"`
		Ops   []crdt.Op  `json:"ops"`
		Clock crdt.Clock `json:"clock"`
	}{Type: "storage:ops", Ops: applied, Clock: d.room.Document().Clock()}

	payload, err := json.Marshal(out)
	if err != nil {
		log.Printf("wsconn: failed to marshal storage:ops broadcast: %v", err)
		return
	}
	d.room.Broadcast(payload, nil) // relayed to all, including sender

	if d.cb.OnStorageChange != nil {
		go d.cb.OnStorageChange(d.room.ID(), applied)
	}
}

func (d *dispatcher) handleStateUpdate(raw json.RawMessage) {
	var in struct {
		Key       string `json:"key"`
		Value     any    `json:"value"`
		Timestamp *int64 `json:"timestamp"`
		Merge     bool   `json:"merge"`
	}
	if err := json.Unmarshal(raw, &in); err != nil || in.Key == "" || in.Timestamp == nil {
		return
	}

	entry, accepted := d.room.LiveState().Set(in.Key, in.Value, *in.Timestamp, d.identity.UserID, in.Merge)
	if !accepted {
		return
	}

	out := struct {
		Type      string `json:"type"`
		Key       string `json:"key"`
		Value     any    `json:"value"`
		Timestamp int64  `json:"timestamp"`
		UserID    string `json:"userId"`
	}{Type: "state:update", Key: in.Key, Value: entry.Value, Timestamp: entry.Timestamp, UserID: entry.UserID}

	payload, err := json.Marshal(out)
	if err != nil {
		log.Printf("wsconn: failed to marshal state:update broadcast: %v", err)
		return
	}
	d.room.Broadcast(payload, nil)
}

func (d *dispatcher) handleHeartbeat() {
	d.conn.Presence().Touch(time.Now().UnixMilli())
}

func (d *dispatcher) handlePresenceUpdate(raw json.RawMessage) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return
	}
	if !d.conn.Presence().ApplyUpdate(fields, time.Now().UnixMilli()) {
		return
	}
	d.room.InvalidatePresenceCache()
	d.room.Broadcast(d.room.PresenceSnapshot(), nil)
}

func (d *dispatcher) handleCursorUpdate(raw json.RawMessage) {
	var in struct {
		X             *float64        `json:"x"`
		Y             *float64        `json:"y"`
		ViewportPos   *viewportPos    `json:"viewportPos"`
		ViewportScale *float64        `json:"viewportScale"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return
	}
	if !isFinite(in.X) || !isFinite(in.Y) {
		return
	}
	if in.ViewportPos != nil && (!isFinite(&in.ViewportPos.X) || !isFinite(&in.ViewportPos.Y)) {
		return
	}
	if in.ViewportScale != nil && !isFinite(in.ViewportScale) {
		return
	}

	pres := d.conn.Presence()
	out := cursorUpdateOut{
		Type: "cursor:update",
		Cursor: cursorData{
			UserID:        pres.UserID(),
			DisplayName:   pres.DisplayName(),
			Color:         pres.Color(),
			X:             *in.X,
			Y:             *in.Y,
			ViewportPos:   in.ViewportPos,
			ViewportScale: in.ViewportScale,
			LastUpdate:    time.Now().UnixMilli(),
		},
	}
	payload, err := json.Marshal(out)
	if err != nil {
		log.Printf("wsconn: failed to marshal cursor:update: %v", err)
		return
	}
	// Relay to all except the sender; the server always overwrites
	// identity fields so clients cannot impersonate peers.
	d.room.Broadcast(payload, map[string]bool{d.conn.ID(): true})
}

type viewportPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type cursorData struct {
	UserID        string       `json:"userId"`
	DisplayName   string       `json:"displayName"`
	Color         string       `json:"color"`
	X             float64      `json:"x"`
	Y             float64      `json:"y"`
	ViewportPos   *viewportPos `json:"viewportPos,omitempty"`
	ViewportScale *float64     `json:"viewportScale,omitempty"`
	LastUpdate    int64        `json:"lastUpdate"`
}

type cursorUpdateOut struct {
	Type   string     `json:"type"`
	Cursor cursorData `json:"cursor"`
}

func isFinite(f *float64) bool {
	if f == nil {
		return false
	}
	return !math.IsNaN(*f) && !math.IsInf(*f, 0)
}
