// Command account-gateway runs the REST API for registration, login,
// token refresh, OAuth, profile management, and asset upload (SPEC_FULL
// §4.5). Grounded on the teacher's cmd/api-gateway/main.go wiring shape.
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

	"github.com/cloudwego/hertz/pkg/app/server"

	"github.com/ryanwaits/openblocks-sub000/internal/account"
	"github.com/ryanwaits/openblocks-sub000/internal/asset"
	"github.com/ryanwaits/openblocks-sub000/internal/config"
	"github.com/ryanwaits/openblocks-sub000/internal/database"
	"github.com/ryanwaits/openblocks-sub000/internal/httpapi"
	"github.com/ryanwaits/openblocks-sub000/internal/repository"
)

const (
	defaultPort            = ":8080"
	maxRequestBodySizeMB   = 10
	bytesInMB              = 1024 * 1024
	shutdownTimeoutSeconds = 5
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log.Println("Starting account gateway...")

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

	userRepo := repository.NewUserRepository(pgPool)

	jwtIssuer, err := account.NewJWTIssuer(&cfg.JWT)
	if err != nil {
		log.Fatalf("failed to build jwt issuer: %v", err)
	}
	emailService := account.NewEmailService(&cfg.Email, natsConn)
	accountService := account.NewService(userRepo, jwtIssuer, emailService)
	oauthService := account.NewOAuthService(&cfg.OAuth, userRepo, jwtIssuer)

	assetRepo := asset.NewRepository(pgPool)
	assetService, err := asset.NewService(
		assetRepo, minioClient, cfg.MinIO.Endpoint, cfg.MinIO.BucketAssets,
		cfg.Upload.MaxSize, cfg.Upload.AllowedTypes,
	)
	if err != nil {
		log.Fatalf("failed to build asset service: %v", err)
	}

	deps := &httpapi.Dependencies{
		JWT:          jwtIssuer,
		AuthHandler:  httpapi.NewAuthHandler(accountService),
		UserHandler:  httpapi.NewUserHandler(userRepo, accountService),
		OAuthHandler: httpapi.NewOAuthHandler(oauthService),
		AssetHandler: httpapi.NewAssetHandler(assetService),
		DB:           pgPool,
		Redis:        redisClient,
	}

	addr := defaultPort
	if cfg.App.Port != 0 {
		addr = addrFromPort(cfg.App.Port)
	}

	h := server.Default(
		server.WithHostPorts(addr),
		server.WithMaxRequestBodySize(maxRequestBodySizeMB*bytesInMB),
	)
	httpapi.Setup(h, cfg, deps)

	go func() {
		if err := h.Run(); err != nil {
			log.Fatalf("failed to run server: %v", err)
		}
	}()

	log.Printf("account gateway is running on %s", addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down account gateway...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeoutSeconds*time.Second)
	defer cancel()

	if err := h.Shutdown(ctx); err != nil {
		log.Fatalf("account gateway forced to shutdown: %v", err)
	}
	log.Println("account gateway exited")
}

func addrFromPort(port int) string {
	return ":" + strconv.Itoa(port)
}
