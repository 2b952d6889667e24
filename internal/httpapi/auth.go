// Package httpapi wires the account gateway's REST handlers: registration,
// login, token refresh, OAuth, profile management, asset upload, and
// health/readiness. Grounded on the teacher's internal/handler/*.go and
// internal/router/router.go.
package httpapi

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/ryanwaits/openblocks-sub000/internal/account"
)

// AuthHandler exposes register/login/refresh/logout/forgot/reset.
// Grounded on the teacher's internal/handler/auth_handler.go.
type AuthHandler struct {
	service *account.Service
}

// NewAuthHandler returns an AuthHandler backed by service.
func NewAuthHandler(service *account.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(c context.Context, ctx *app.RequestContext) {
	var req account.CreateUserRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	resp, err := h.service.Register(c, &req)
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, errorBody(err))
		return
	}
	ctx.JSON(consts.StatusCreated, resp)
}

func (h *AuthHandler) Login(c context.Context, ctx *app.RequestContext) {
	var req account.LoginRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	resp, err := h.service.Login(c, &req)
	if err != nil {
		ctx.JSON(consts.StatusUnauthorized, errorBody(err))
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h *AuthHandler) RefreshToken(c context.Context, ctx *app.RequestContext) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := ctx.BindAndValidate(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	tokens, err := h.service.Refresh(c, req.RefreshToken)
	if err != nil {
		ctx.JSON(consts.StatusUnauthorized, errorBody(err))
		return
	}
	ctx.JSON(consts.StatusOK, tokens)
}

func (h *AuthHandler) Logout(c context.Context, ctx *app.RequestContext) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := ctx.BindAndValidate(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	if err := h.service.Logout(c, req.RefreshToken); err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]interface{}{"error": "Failed to logout"})
		return
	}
	ctx.JSON(consts.StatusOK, map[string]interface{}{"message": "Logged out successfully"})
}

func (h *AuthHandler) ForgotPassword(c context.Context, ctx *app.RequestContext) {
	var req account.ForgotPasswordRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	// Errors (including "unknown email") are intentionally not surfaced —
	// the response is identical either way so a caller can't enumerate
	// registered addresses.
	_, _ = h.service.ForgotPassword(c, req.Email)
	ctx.JSON(consts.StatusOK, map[string]interface{}{
		"message": "If the email exists, a password reset link has been sent",
	})
}

func (h *AuthHandler) ResetPassword(c context.Context, ctx *app.RequestContext) {
	var req account.ResetPasswordRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	if err := h.service.ResetPassword(c, req.Token, req.NewPassword); err != nil {
		ctx.JSON(consts.StatusBadRequest, errorBody(err))
		return
	}
	ctx.JSON(consts.StatusOK, map[string]interface{}{"message": "Password reset successfully"})
}

func badRequest(ctx *app.RequestContext, err error) {
	ctx.JSON(consts.StatusBadRequest, map[string]interface{}{"error": "Invalid request", "details": err.Error()})
}

func errorBody(err error) map[string]interface{} {
	return map[string]interface{}{"error": err.Error()}
}
