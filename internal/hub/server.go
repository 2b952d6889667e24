// Package hub implements the room server's entry point (SPEC_FULL §2
// "Server entry"): the HTTP listener, upgrade routing, health endpoint,
// process-wide heartbeat reaper, and graceful shutdown. Grounded on the
// teacher's cmd/server wiring of Hub plus its health-check handler, adapted
// from a channel-actor hub to the mutex-guarded room.Manager this repo
// uses (see SPEC_FULL §5).
package hub

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/ryanwaits/openblocks-sub000/internal/presence"
	"github.com/ryanwaits/openblocks-sub000/internal/room"
	"github.com/ryanwaits/openblocks-sub000/internal/wsconn"
)

// DefaultHeartbeatCheckInterval and DefaultHeartbeatTimeout match
// spec.md §4.1's defaults.
const (
	DefaultHeartbeatCheckInterval = 15 * time.Second
	DefaultHeartbeatTimeout       = 45 * time.Second
	DefaultHealthPath             = "/health"
	shutdownSafetyTimeout         = 5 * time.Second
)

// Config configures one room-server process.
type Config struct {
	Addr                     string
	HealthPath               string
	HeartbeatCheckInterval   time.Duration
	HeartbeatTimeout         time.Duration
	WSConn                   wsconn.Config
}

// Server owns the HTTP listener, the room manager it routes upgrades to,
// and the heartbeat reaper that sweeps every room for silent connections.
type Server struct {
	cfg    Config
	rooms  *room.Manager
	http   *http.Server
	reaper *time.Ticker
	stop   chan struct{}
}

// New returns a Server wired to rooms (shared with cfg.WSConn.Rooms, which
// must be the same manager instance).
func New(cfg Config, rooms *room.Manager) *Server {
	if cfg.HealthPath == "" {
		cfg.HealthPath = DefaultHealthPath
	}
	if cfg.HeartbeatCheckInterval <= 0 {
		cfg.HeartbeatCheckInterval = DefaultHeartbeatCheckInterval
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = DefaultHeartbeatTimeout
	}

	mux := http.NewServeMux()
	s := &Server{cfg: cfg, rooms: rooms, stop: make(chan struct{})}

	mux.HandleFunc(cfg.HealthPath, s.handleHealth)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		wsconn.HandleUpgrade(w, r, cfg.WSConn)
	})

	s.http = &http.Server{Addr: cfg.Addr, Handler: mux}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// ListenAndServe starts the heartbeat reaper and blocks serving HTTP until
// the listener is closed by Shutdown.
func (s *Server) ListenAndServe() error {
	s.reaper = time.NewTicker(s.cfg.HeartbeatCheckInterval)
	go s.runReaper()

	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) runReaper() {
	for {
		select {
		case <-s.reaper.C:
			s.sweepOnce()
		case <-s.stop:
			return
		}
	}
}

func (s *Server) sweepOnce() {
	now := time.Now().UnixMilli()
	cutoff := now - s.cfg.HeartbeatTimeout.Milliseconds()
	for _, rm := range s.rooms.Rooms() {
		changed := false
		for _, conn := range rm.Connections() {
			pres := conn.Presence()
			if pres.OnlineStatus() == presence.StatusOffline {
				continue
			}
			if pres.LastHeartbeat() < cutoff {
				pres.MarkOffline()
				changed = true
			}
		}
		if changed {
			rm.InvalidatePresenceCache()
			rm.Broadcast(rm.PresenceSnapshot(), nil)
		}
	}
}

// Shutdown stops the heartbeat reaper, closes every open connection across
// every room, and closes the HTTP listener, bounded by a short safety
// timeout so shutdown cannot hang (spec.md §4.1's graceful shutdown).
func (s *Server) Shutdown(ctx context.Context) error {
	if s.reaper != nil {
		s.reaper.Stop()
	}
	close(s.stop)

	for _, rm := range s.rooms.Rooms() {
		for _, conn := range rm.Connections() {
			conn.Close()
		}
	}
	s.rooms.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownSafetyTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		log.Printf("hub: forcing listener close after graceful shutdown timed out: %v", err)
		return s.http.Close()
	}
	return nil
}
