package room

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ryanwaits/openblocks-sub000/internal/presence"
)

type fakeConn struct {
	id      string
	pres    *presence.User
	sent    [][]byte
	closed  bool
	sendErr error
}

func (f *fakeConn) ID() string                  { return f.id }
func (f *fakeConn) Presence() *presence.User    { return f.pres }
func (f *fakeConn) Close()                      { f.closed = true }
func (f *fakeConn) Send(v any) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	data, _ := json.Marshal(v)
	f.sent = append(f.sent, data)
	return nil
}

func TestRoomPresenceCacheInvalidation(t *testing.T) {
	r := newRoom("room-1", nil)
	c1 := &fakeConn{id: "c1", pres: presence.New("u1", "Alice", 0)}
	r.Add(c1)

	snap1 := r.PresenceSnapshot()
	snap2 := r.PresenceSnapshot()
	if string(snap1) != string(snap2) {
		t.Fatal("PresenceSnapshot should be stable without intervening changes")
	}

	c2 := &fakeConn{id: "c2", pres: presence.New("u2", "Bob", 0)}
	r.Add(c2)
	snap3 := r.PresenceSnapshot()
	if string(snap3) == string(snap1) {
		t.Fatal("adding a connection should invalidate the presence cache")
	}
}

func TestRoomBroadcastSkipsExcludedAndClosesFailedSends(t *testing.T) {
	r := newRoom("room-1", nil)
	c1 := &fakeConn{id: "c1", pres: presence.New("u1", "A", 0)}
	c2 := &fakeConn{id: "c2", pres: presence.New("u2", "B", 0), sendErr: errFake}
	r.Add(c1)
	r.Add(c2)

	r.Broadcast([]byte(`{"type":"hello"}`), map[string]bool{"c1": true})

	if len(c1.sent) != 0 {
		t.Fatal("excluded connection must not receive the broadcast")
	}
	if !c2.closed {
		t.Fatal("a connection whose Send fails must be closed, not abort the loop")
	}
}

func TestManagerGetOrCreateCancelsCleanup(t *testing.T) {
	m := NewManager(20*time.Millisecond, nil)
	r := m.GetOrCreate("room-1")
	m.ScheduleCleanup("room-1")
	// GetOrCreate before the timer fires should cancel it.
	time.Sleep(5 * time.Millisecond)
	m.GetOrCreate("room-1")
	time.Sleep(30 * time.Millisecond)
	if _, ok := m.Get("room-1"); !ok {
		t.Fatal("room should still exist; cleanup should have been cancelled")
	}
	_ = r
}

func TestManagerCleanupRemovesEmptyRoom(t *testing.T) {
	m := NewManager(10*time.Millisecond, nil)
	m.GetOrCreate("room-1")
	m.ScheduleCleanup("room-1")
	time.Sleep(30 * time.Millisecond)
	if _, ok := m.Get("room-1"); ok {
		t.Fatal("empty room should have been removed after cleanup timeout")
	}
}

var errFake = fakeError("send failed")

type fakeError string

func (e fakeError) Error() string { return string(e) }
