// Package events publishes room lifecycle and storage-change notifications
// to NATS (SPEC_FULL §4.6), grounded on the teacher's
// internal/database/nats.go connection factory. Nothing in this module
// subscribes to these subjects — they exist for external consumers
// (analytics pipelines, search indexers) the way a production
// collaboration backend would expose them.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ryanwaits/openblocks-sub000/internal/crdt"
)

// Publisher publishes room events to subject rooms.<roomId>.events.
type Publisher struct {
	nc *nats.Conn
}

// NewPublisher returns a Publisher sending over nc.
func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

type envelope struct {
	Type      string    `json:"type"`
	RoomID    string    `json:"roomId"`
	Timestamp int64     `json:"timestamp"`
	UserID    string    `json:"userId,omitempty"`
	Ops       []crdt.Op `json:"ops,omitempty"`
}

func (p *Publisher) publish(roomID string, ev envelope) {
	ev.RoomID = roomID
	ev.Timestamp = time.Now().UnixMilli()

	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	subject := fmt.Sprintf("rooms.%s.events", roomID)
	_ = p.nc.Publish(subject, data)
}

// RoomCreated publishes room.created for roomID.
func (p *Publisher) RoomCreated(roomID string) {
	p.publish(roomID, envelope{Type: "room.created"})
}

// RoomDestroyed publishes room.destroyed for roomID.
func (p *Publisher) RoomDestroyed(roomID string) {
	p.publish(roomID, envelope{Type: "room.destroyed"})
}

// ConnectionJoined publishes connection.joined for userID in roomID.
func (p *Publisher) ConnectionJoined(roomID, userID string) {
	p.publish(roomID, envelope{Type: "connection.joined", UserID: userID})
}

// ConnectionLeft publishes connection.left for userID in roomID.
func (p *Publisher) ConnectionLeft(roomID, userID string) {
	p.publish(roomID, envelope{Type: "connection.left", UserID: userID})
}

// StorageChanged publishes storage.changed carrying the same ops
// onStorageChange received.
func (p *Publisher) StorageChanged(roomID string, ops []crdt.Op) {
	p.publish(roomID, envelope{Type: "storage.changed", Ops: ops})
}
