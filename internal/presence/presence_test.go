package presence

import (
	"strings"
	"sync"
	"testing"
)

func TestColorForIsDeterministic(t *testing.T) {
	a := ColorFor("user-123")
	b := ColorFor("user-123")
	if a != b {
		t.Fatalf("ColorFor should be deterministic, got %q and %q", a, b)
	}
}

func TestColorForWithinPalette(t *testing.T) {
	c := ColorFor("someone")
	found := false
	for _, p := range palette {
		if p == c {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("ColorFor returned %q, not a palette member", c)
	}
}

func TestTouchRevivesOfflineUser(t *testing.T) {
	u := New("u1", "Alice", 1000)
	u.MarkOffline()
	u.Touch(2000)
	if u.OnlineStatus() != StatusOnline {
		t.Fatalf("OnlineStatus() = %v, want online after Touch", u.OnlineStatus())
	}
	if u.LastHeartbeat() != 2000 {
		t.Fatalf("LastHeartbeat() = %d, want 2000", u.LastHeartbeat())
	}
}

func TestApplyUpdateOnlyAcceptsKnownFields(t *testing.T) {
	u := New("u1", "Alice", 1000)
	changed := u.ApplyUpdate(map[string]any{
		"isIdle":   true,
		"userId":   "attacker-controlled",
		"location": map[string]any{"page": "doc-1"},
	}, 2000)
	if !changed {
		t.Fatal("expected a change")
	}
	if u.UserID() != "u1" {
		t.Fatalf("UserID() = %q, must not be overwritable via presence:update", u.UserID())
	}
	data, err := u.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error: %v", err)
	}
	if !strings.Contains(string(data), `"isIdle":true`) {
		t.Fatalf("marshaled snapshot %s missing applied isIdle", data)
	}
}

// TestConcurrentMutationAndMarshalDoesNotRace exercises Touch, ApplyUpdate,
// MarkOffline and MarshalJSON from separate goroutines simultaneously, the
// three call sites (dispatch goroutine, heartbeat reaper, presence
// broadcast marshal) that previously raced on unguarded fields.
func TestConcurrentMutationAndMarshalDoesNotRace(t *testing.T) {
	u := New("u1", "Alice", 1000)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		now := int64(1000 + i)
		wg.Add(3)
		go func(now int64) {
			defer wg.Done()
			u.Touch(now)
		}(now)
		go func(now int64) {
			defer wg.Done()
			u.ApplyUpdate(map[string]any{"isIdle": now%2 == 0}, now)
		}(now)
		go func() {
			defer wg.Done()
			if _, err := u.MarshalJSON(); err != nil {
				t.Errorf("MarshalJSON() error: %v", err)
			}
		}()
	}
	u.MarkOffline()
	wg.Wait()
}
