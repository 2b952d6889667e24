package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ryanwaits/openblocks-sub000/internal/account"
	"github.com/ryanwaits/openblocks-sub000/internal/config"
	"github.com/ryanwaits/openblocks-sub000/internal/middleware"
)

const readinessPingTimeout = 2 * time.Second

// Dependencies holds every handler + backing client route registration
// needs. Grounded on the teacher's internal/router.Dependencies.
type Dependencies struct {
	JWT          *account.JWTIssuer
	AuthHandler  *AuthHandler
	UserHandler  *UserHandler
	OAuthHandler *OAuthHandler
	AssetHandler *AssetHandler
	DB           *pgxpool.Pool
	Redis        *redis.Client
}

// Setup registers middleware and every route SPEC_FULL §4.5 names.
// Grounded on the teacher's internal/router/router.go.
func Setup(h *server.Hertz, cfg *config.Config, deps *Dependencies) {
	h.Use(middleware.Recovery())
	h.Use(middleware.RequestID())
	h.Use(middleware.Logger())
	h.Use(middleware.CORS(&cfg.CORS))

	h.GET("/health", healthCheck)
	h.GET("/readiness", deps.readinessCheck)

	v1 := h.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", deps.AuthHandler.Register)
	auth.POST("/login", deps.AuthHandler.Login)
	auth.POST("/refresh", deps.AuthHandler.RefreshToken)
	auth.POST("/logout", deps.AuthHandler.Logout)
	auth.POST("/forgot-password", deps.AuthHandler.ForgotPassword)
	auth.POST("/reset-password", deps.AuthHandler.ResetPassword)
	auth.GET("/google", deps.OAuthHandler.GoogleAuth)
	auth.GET("/google/callback", deps.OAuthHandler.GoogleCallback)
	auth.GET("/github", deps.OAuthHandler.GitHubAuth)
	auth.GET("/github/callback", deps.OAuthHandler.GitHubCallback)

	users := v1.Group("/users")
	users.Use(middleware.Auth(deps.JWT))
	users.GET("/me", deps.UserHandler.GetProfile)
	users.PUT("/me", deps.UserHandler.UpdateProfile)
	users.PUT("/me/password", deps.UserHandler.ChangePassword)

	assets := v1.Group("/assets")
	assets.Use(middleware.Auth(deps.JWT))
	assets.POST("", deps.AssetHandler.Upload)
	assets.GET("/:asset_id", deps.AssetHandler.Get)
}

func healthCheck(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "account-gateway",
		"timestamp": time.Now().Unix(),
	})
}

// readinessCheck pings Postgres and Redis, replacing the teacher's
// always-ok stub (internal/router/router.go's readinessCheck carried a
// literal "TODO: Add actual health checks for dependencies").
func (d *Dependencies) readinessCheck(c context.Context, ctx *app.RequestContext) {
	pingCtx, cancel := context.WithTimeout(c, readinessPingTimeout)
	defer cancel()

	checks := map[string]string{"database": "ok", "redis": "ok"}
	ready := true

	if err := d.DB.Ping(pingCtx); err != nil {
		checks["database"] = "unreachable"
		ready = false
	}
	if err := d.Redis.Ping(pingCtx).Err(); err != nil {
		checks["redis"] = "unreachable"
		ready = false
	}

	status := http.StatusOK
	statusText := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		statusText = "not ready"
	}

	ctx.JSON(status, map[string]interface{}{
		"status":    statusText,
		"service":   "account-gateway",
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}
