// Command room-server runs the real-time collaboration room server:
// WebSocket upgrade, presence, broadcast, cursor relay, heartbeat, CRDT
// persistence, and NATS event publishing (spec.md §4, SPEC_FULL §2/§4.6).
// Grounded on the teacher's cmd/ws-server/main.go wiring shape.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ryanwaits/openblocks-sub000/internal/auth"
	"github.com/ryanwaits/openblocks-sub000/internal/config"
	"github.com/ryanwaits/openblocks-sub000/internal/crdt"
	"github.com/ryanwaits/openblocks-sub000/internal/database"
	"github.com/ryanwaits/openblocks-sub000/internal/events"
	"github.com/ryanwaits/openblocks-sub000/internal/hub"
	"github.com/ryanwaits/openblocks-sub000/internal/persistence"
	"github.com/ryanwaits/openblocks-sub000/internal/room"
	"github.com/ryanwaits/openblocks-sub000/internal/wsconn"
)

const (
	defaultRoomCleanupDelay = 30 * time.Second
	shutdownTimeoutSeconds  = 10
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log.Println("Starting room server...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pgPool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pgPool.Close()

	migrationsPath := cfg.Database.MigrationsPath
	if migrationsPath == "" {
		migrationsPath = "migrations"
	}
	if err := database.Migrate(pgPool, migrationsPath); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	minioClient, err := database.NewMinIOClient(&cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to connect to minio: %v", err)
	}

	natsConn, err := database.NewNATSConnection(&cfg.NATS)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer natsConn.Close()

	publisher := events.NewPublisher(natsConn)

	relay := room.NewRedisRelay(redisClient)
	cleanupDelay := defaultRoomCleanupDelay
	if cfg.Room.CleanupTimeoutMs > 0 {
		cleanupDelay = time.Duration(cfg.Room.CleanupTimeoutMs) * time.Millisecond
	}
	rooms := room.NewManager(cleanupDelay, relay)
	relay.SetManager(rooms)

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	go relay.Start(relayCtx)

	opLog := persistence.NewOperationLog(pgPool)
	snapStore := persistence.NewSnapshotStore(pgPool, minioClient, cfg.MinIO.BucketBackups)
	hooks := persistence.NewHooks(opLog, snapStore, rooms, 0, 0)

	var authHandler auth.Handler
	if cfg.JWT.Secret != "" {
		authHandler = auth.NewJWTHandler(cfg.JWT.Secret)
	} else {
		log.Println("WARNING: no JWT secret configured; identity is taken from unauthenticated userId/displayName query parameters")
	}

	wsCfg := wsconn.Config{
		PathPrefix:     cfg.Room.PathPrefix,
		MaxConnections: cfg.Room.MaxConnections,
		Rooms:          rooms,
		Auth:           authHandler,
		Callbacks: wsconn.Callbacks{
			InitialStorage: hooks.InitialStorage,
			OnStorageChange: func(roomID string, ops []crdt.Op) {
				hooks.OnStorageChange(roomID, ops)
				publisher.StorageChanged(roomID, ops)
			},
			OnJoin:  publisher.ConnectionJoined,
			OnLeave: publisher.ConnectionLeft,
		},
	}

	heartbeatCheck := time.Duration(cfg.Room.HeartbeatCheckIntervalMs) * time.Millisecond
	heartbeatTimeout := time.Duration(cfg.Room.HeartbeatTimeoutMs) * time.Millisecond

	addr := defaultListenAddr(cfg.Room.Port)
	srv := hub.New(hub.Config{
		Addr:                   addr,
		HeartbeatCheckInterval: heartbeatCheck,
		HeartbeatTimeout:       heartbeatTimeout,
		WSConn:                 wsCfg,
	}, rooms)

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Fatalf("room server stopped: %v", err)
		}
	}()

	log.Printf("room server listening on %s", addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down room server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeoutSeconds*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("room server forced to shutdown: %v", err)
	}
	log.Println("room server exited")
}

func defaultListenAddr(port int) string {
	if port == 0 {
		port = 8082
	}
	return ":" + strconv.Itoa(port)
}
