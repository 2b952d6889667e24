// Package presence implements the per-connection presence user: identity,
// deterministic color assignment, and online/away/offline status.
package presence

import (
	"encoding/json"
	"hash/fnv"
	"sync"
)

// OnlineStatus is a presence user's liveness state.
type OnlineStatus string

const (
	StatusOnline  OnlineStatus = "online"
	StatusAway    OnlineStatus = "away"
	StatusOffline OnlineStatus = "offline"
)

// palette mirrors a conventional collaboration-tool color set; any userId
// deterministically hashes to one entry so the same user always renders
// with the same color across reconnects within a room.
var palette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA07A",
	"#98D8C8", "#F7DC6F", "#BB8FCE", "#85C1E2",
	"#F8B739", "#52B788", "#E76F51", "#2A9D8F",
}

// ColorFor returns the deterministic palette color for userID.
func ColorFor(userID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return palette[int(h.Sum32())%len(palette)]
}

// User is one connection's presence entry, broadcast to the room as part of
// a presence snapshot. Its fields are read and written from the
// connection's own dispatch goroutine, the hub's heartbeat-reaper
// goroutine, and the room's broadcast/marshal path concurrently, so every
// access goes through mu.
type User struct {
	mu sync.RWMutex

	userID        string
	displayName   string
	color         string
	connectedAt   int64
	onlineStatus  OnlineStatus
	lastActiveAt  int64
	isIdle        bool
	location      any
	metadata      map[string]any
	lastHeartbeat int64
}

// wireUser is the JSON wire shape for a presence.User snapshot.
type wireUser struct {
	UserID       string         `json:"userId"`
	DisplayName  string         `json:"displayName"`
	Color        string         `json:"color"`
	ConnectedAt  int64          `json:"connectedAt"`
	OnlineStatus OnlineStatus   `json:"onlineStatus"`
	LastActiveAt int64          `json:"lastActiveAt"`
	IsIdle       bool           `json:"isIdle"`
	Location     any            `json:"location,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// New builds a fresh online presence user for a connection that just
// joined, at wall-clock time nowMs.
func New(userID, displayName string, nowMs int64) *User {
	return &User{
		userID:        userID,
		displayName:   displayName,
		color:         ColorFor(userID),
		connectedAt:   nowMs,
		onlineStatus:  StatusOnline,
		lastActiveAt:  nowMs,
		lastHeartbeat: nowMs,
	}
}

// UserID returns the presence user's identity.
func (u *User) UserID() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.userID
}

// DisplayName returns the presence user's display name.
func (u *User) DisplayName() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.displayName
}

// Color returns the presence user's deterministic palette color.
func (u *User) Color() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.color
}

// Touch refreshes the liveness timestamp on a heartbeat or any inbound
// frame, bringing the user back from offline if the reaper had marked it so.
func (u *User) Touch(nowMs int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lastHeartbeat = nowMs
	u.lastActiveAt = nowMs
	if u.onlineStatus == StatusOffline {
		u.onlineStatus = StatusOnline
	}
}

// LastHeartbeat returns the wall-clock time of the user's most recent
// liveness signal, consulted by the heartbeat reaper.
func (u *User) LastHeartbeat() int64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.lastHeartbeat
}

// OnlineStatus returns the user's current liveness state.
func (u *User) OnlineStatus() OnlineStatus {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.onlineStatus
}

// MarkOffline forces the user offline, used by the heartbeat reaper when a
// connection has gone silent past heartbeatTimeoutMs. Unlike ApplyUpdate
// this bypasses the client-writable field allowlist since it is a
// server-driven transition, not a client request.
func (u *User) MarkOffline() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.onlineStatus = StatusOffline
}

// ApplyUpdate mutates only the fields a presence:update frame is permitted
// to touch: onlineStatus, isIdle, location, metadata.
func (u *User) ApplyUpdate(fields map[string]any, nowMs int64) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	changed := false
	if v, ok := fields["onlineStatus"].(string); ok {
		if s := OnlineStatus(v); s == StatusOnline || s == StatusAway || s == StatusOffline {
			u.onlineStatus = s
			changed = true
		}
	}
	if v, ok := fields["isIdle"].(bool); ok {
		u.isIdle = v
		changed = true
	}
	if v, ok := fields["location"]; ok {
		u.location = v
		changed = true
	}
	if v, ok := fields["metadata"].(map[string]any); ok {
		u.metadata = v
		changed = true
	}
	if changed {
		u.lastActiveAt = nowMs
	}
	return changed
}

// MarshalJSON snapshots u's fields under its read lock so concurrent
// mutation from the dispatch or reaper goroutines can never race with a
// presence-broadcast marshal.
func (u *User) MarshalJSON() ([]byte, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return json.Marshal(wireUser{
		UserID:       u.userID,
		DisplayName:  u.displayName,
		Color:        u.color,
		ConnectedAt:  u.connectedAt,
		OnlineStatus: u.onlineStatus,
		LastActiveAt: u.lastActiveAt,
		IsIdle:       u.isIdle,
		Location:     u.location,
		Metadata:     u.metadata,
	})
}
