package middleware

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/ryanwaits/openblocks-sub000/internal/account"
)

// Auth returns JWT authentication middleware for the account gateway's
// protected routes.
func Auth(jwt *account.JWTIssuer) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		authHeader := string(ctx.Request.Header.Peek("Authorization"))
		if authHeader == "" {
			ctx.JSON(consts.StatusUnauthorized, map[string]interface{}{
				"error": "Authorization header required",
			})
			ctx.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			ctx.JSON(consts.StatusUnauthorized, map[string]interface{}{
				"error": "Invalid authorization header format",
			})
			ctx.Abort()
			return
		}

		claims, err := jwt.Validate(parts[1])
		if err != nil {
			ctx.JSON(consts.StatusUnauthorized, map[string]interface{}{
				"error": "Invalid or expired token",
			})
			ctx.Abort()
			return
		}

		ctx.Set("user_id", claims.UserID)
		ctx.Set("user_email", claims.Email)

		ctx.Next(c)
	}
}
