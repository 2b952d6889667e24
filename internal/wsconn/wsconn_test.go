package wsconn

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ryanwaits/openblocks-sub000/internal/room"
)

func newTestServer(t *testing.T, cfg Config) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleUpgrade(w, r, cfg)
	}))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return srv, wsURL
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return c
}

func readTyped(t *testing.T, c *websocket.Conn, wantType string) map[string]any {
	t.Helper()
	for i := 0; i < 5; i++ {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := c.ReadMessage()
		if err != nil {
			t.Fatalf("read failed waiting for %q: %v", wantType, err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if m["type"] == wantType {
			return m
		}
	}
	t.Fatalf("did not see a %q frame in time", wantType)
	return nil
}

func TestHandleUpgradeRejectsMissingRoomID(t *testing.T) {
	cfg := Config{Rooms: room.NewManager(time.Second, nil)}
	srv, _ := newTestServer(t, cfg)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/rooms/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleUpgradeRejectsWrongPrefix(t *testing.T) {
	cfg := Config{Rooms: room.NewManager(time.Second, nil)}
	srv, _ := newTestServer(t, cfg)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/other/room-1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHandleUpgradeEnforcesMaxConnections(t *testing.T) {
	cfg := Config{Rooms: room.NewManager(time.Second, nil), MaxConnections: 1}
	srv, wsURL := newTestServer(t, cfg)
	defer srv.Close()

	first := dial(t, wsURL+"/rooms/room-1?userId=u1")
	defer first.Close()
	readTyped(t, first, "presence")

	resp, err := http.Get(srv.URL + "/rooms/room-1?userId=u2")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 once the room is at capacity", resp.StatusCode)
	}
}

func TestHandleUpgradeRejectsUnauthenticated(t *testing.T) {
	cfg := Config{Rooms: room.NewManager(time.Second, nil)}
	srv, _ := newTestServer(t, cfg)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/rooms/room-1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without userId and no auth handler", resp.StatusCode)
	}
}

func TestStorageOpsRoundTripAndClockAdvances(t *testing.T) {
	cfg := Config{Rooms: room.NewManager(time.Second, nil)}
	srv, wsURL := newTestServer(t, cfg)
	defer srv.Close()

	c := dial(t, wsURL+"/rooms/room-1?userId=u1")
	defer c.Close()
	readTyped(t, c, "presence")
	readTyped(t, c, "storage:init")

	c.WriteJSON(map[string]any{"type": "storage:init", "root": nil})
	readTyped(t, c, "storage:init")

	c.WriteJSON(map[string]any{
		"type": "storage:ops",
		"ops": []map[string]any{
			{"kind": "set", "path": []string{}, "key": "title", "value": "hello", "clock": 1},
		},
	})
	frame := readTyped(t, c, "storage:ops")
	if frame["clock"].(float64) < 1 {
		t.Fatalf("clock did not advance: %v", frame["clock"])
	}
}

func TestCursorUpdateOverwritesIdentityAndExcludesSender(t *testing.T) {
	cfg := Config{Rooms: room.NewManager(time.Second, nil)}
	srv, wsURL := newTestServer(t, cfg)
	defer srv.Close()

	a := dial(t, wsURL+"/rooms/room-1?userId=alice&displayName=Alice")
	defer a.Close()
	readTyped(t, a, "presence")
	readTyped(t, a, "storage:init")

	b := dial(t, wsURL+"/rooms/room-1?userId=eve&displayName=Eve")
	defer b.Close()
	readTyped(t, b, "presence")
	readTyped(t, b, "storage:init")
	readTyped(t, a, "presence") // a sees b join

	b.WriteJSON(map[string]any{"type": "cursor:update", "x": 1.5, "y": 2.5, "userId": "alice"})
	frame := readTyped(t, a, "cursor:update")
	cursor := frame["cursor"].(map[string]any)
	if cursor["userId"] != "eve" {
		t.Fatalf("cursor userId = %v, want eve (server must overwrite the claimed identity)", cursor["userId"])
	}
}
