package httpapi

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"github.com/ryanwaits/openblocks-sub000/internal/account"
	"github.com/ryanwaits/openblocks-sub000/internal/repository"
)

// UserHandler exposes the authenticated caller's own profile endpoints.
// Grounded on the teacher's internal/handler/user_handler.go.
type UserHandler struct {
	users   *repository.UserRepository
	service *account.Service
}

// NewUserHandler returns a UserHandler backed by users/service.
func NewUserHandler(users *repository.UserRepository, service *account.Service) *UserHandler {
	return &UserHandler{users: users, service: service}
}

func (h *UserHandler) GetProfile(c context.Context, ctx *app.RequestContext) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}

	user, err := h.users.GetByID(c, uid)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]interface{}{"error": "Failed to get user"})
		return
	}
	if user == nil {
		ctx.JSON(consts.StatusNotFound, map[string]interface{}{"error": "User not found"})
		return
	}
	ctx.JSON(consts.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(c context.Context, ctx *app.RequestContext) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req account.UpdateProfileRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	user, err := h.users.GetByID(c, uid)
	if err != nil || user == nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]interface{}{"error": "Failed to get user"})
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.AvatarURL != nil {
		user.AvatarURL = req.AvatarURL
	}

	if err := h.users.Update(c, user); err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]interface{}{"error": "Failed to update profile"})
		return
	}
	ctx.JSON(consts.StatusOK, user)
}

func (h *UserHandler) ChangePassword(c context.Context, ctx *app.RequestContext) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req account.ChangePasswordRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	if err := h.service.ChangePassword(c, uid, req.OldPassword, req.NewPassword); err != nil {
		ctx.JSON(consts.StatusBadRequest, errorBody(err))
		return
	}
	ctx.JSON(consts.StatusOK, map[string]interface{}{"message": "Password changed successfully"})
}

// currentUserID reads the user_id middleware.Auth stored in ctx (a string,
// per internal/auth.Claims) and parses it as a UUID, writing an error
// response and returning ok=false on any failure.
func currentUserID(ctx *app.RequestContext) (uuid.UUID, bool) {
	raw, exists := ctx.Get("user_id")
	if !exists {
		ctx.JSON(consts.StatusUnauthorized, map[string]interface{}{"error": "Unauthorized"})
		return uuid.UUID{}, false
	}
	s, ok := raw.(string)
	if !ok {
		ctx.JSON(consts.StatusInternalServerError, map[string]interface{}{"error": "Invalid user ID"})
		return uuid.UUID{}, false
	}
	uid, err := uuid.Parse(s)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]interface{}{"error": "Invalid user ID"})
		return uuid.UUID{}, false
	}
	return uid, true
}
