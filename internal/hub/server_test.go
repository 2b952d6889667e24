package hub

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/ryanwaits/openblocks-sub000/internal/presence"
	"github.com/ryanwaits/openblocks-sub000/internal/room"
	"github.com/ryanwaits/openblocks-sub000/internal/wsconn"
)

type fakeConn struct {
	id     string
	pres   *presence.User
	closed bool
}

func (f *fakeConn) ID() string               { return f.id }
func (f *fakeConn) Presence() *presence.User { return f.pres }
func (f *fakeConn) Send(v any) error         { return nil }
func (f *fakeConn) Close()                   { f.closed = true }

func TestHealthEndpointReturns200(t *testing.T) {
	rooms := room.NewManager(time.Second, nil)
	s := New(Config{Addr: "127.0.0.1:0", WSConn: wsconn.Config{Rooms: rooms}}, rooms)

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	rec := newRecorder()
	s.handleHealth(rec, req)
	if rec.status != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.status)
	}
}

func TestSweepMarksStaleConnectionsOffline(t *testing.T) {
	rooms := room.NewManager(time.Second, nil)
	s := New(Config{
		Addr:             "127.0.0.1:0",
		HeartbeatTimeout: 10 * time.Millisecond,
		WSConn:           wsconn.Config{Rooms: rooms},
	}, rooms)

	rm := rooms.GetOrCreate("room-1")
	stale := presence.New("u1", "U1", time.Now().Add(-time.Hour).UnixMilli())
	rm.Add(&fakeConn{id: "c1", pres: stale})

	time.Sleep(20 * time.Millisecond)
	s.sweepOnce()

	if stale.OnlineStatus() != presence.StatusOffline {
		t.Fatalf("OnlineStatus() = %q, want offline after the heartbeat timeout elapses", stale.OnlineStatus())
	}
}

func TestShutdownClosesTrackedConnections(t *testing.T) {
	rooms := room.NewManager(time.Second, nil)
	s := New(Config{Addr: "127.0.0.1:0", WSConn: wsconn.Config{Rooms: rooms}}, rooms)

	rm := rooms.GetOrCreate("room-1")
	c := &fakeConn{id: "c1", pres: presence.New("u1", "U1", 0)}
	rm.Add(c)

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
	if !c.closed {
		t.Fatal("shutdown must close every tracked connection")
	}
}

type recorder struct {
	status int
	header http.Header
}

func newRecorder() *recorder { return &recorder{header: make(http.Header)} }

func (r *recorder) Header() http.Header       { return r.header }
func (r *recorder) Write(b []byte) (int, error) { return len(b), nil }
func (r *recorder) WriteHeader(status int)     { r.status = status }
