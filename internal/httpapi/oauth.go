package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/ryanwaits/openblocks-sub000/internal/account"
)

const (
	stateExpiration = 10 * time.Minute
	stateTokenBytes = 16
)

// OAuthHandler exposes the Google/GitHub login redirect + callback
// endpoints. Grounded on the teacher's internal/handler/oauth_handler.go;
// the in-memory state map gained a mutex since Hertz serves requests
// concurrently and the teacher's version didn't guard it.
type OAuthHandler struct {
	service *account.OAuthService

	mu     sync.Mutex
	states map[string]time.Time
}

// NewOAuthHandler returns an OAuthHandler backed by service.
func NewOAuthHandler(service *account.OAuthService) *OAuthHandler {
	return &OAuthHandler{service: service, states: make(map[string]time.Time)}
}

func (h *OAuthHandler) GoogleAuth(c context.Context, ctx *app.RequestContext) {
	state := h.newState()
	ctx.Redirect(consts.StatusTemporaryRedirect, []byte(h.service.GoogleAuthURL(state)))
}

func (h *OAuthHandler) GoogleCallback(c context.Context, ctx *app.RequestContext) {
	h.callback(c, ctx, h.service.GoogleCallback)
}

func (h *OAuthHandler) GitHubAuth(c context.Context, ctx *app.RequestContext) {
	state := h.newState()
	ctx.Redirect(consts.StatusTemporaryRedirect, []byte(h.service.GitHubAuthURL(state)))
}

func (h *OAuthHandler) GitHubCallback(c context.Context, ctx *app.RequestContext) {
	h.callback(c, ctx, h.service.GitHubCallback)
}

func (h *OAuthHandler) callback(c context.Context, ctx *app.RequestContext, exchange func(context.Context, string) (*account.AuthResponse, error)) {
	code := ctx.Query("code")
	state := ctx.Query("state")

	if !h.consumeState(state) {
		ctx.JSON(consts.StatusBadRequest, map[string]interface{}{"error": "Invalid state parameter"})
		return
	}

	resp, err := exchange(c, code)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, errorBody(err))
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h *OAuthHandler) newState() string {
	b := make([]byte, stateTokenBytes)
	_, _ = rand.Read(b)
	state := hex.EncodeToString(b)

	h.mu.Lock()
	h.states[state] = time.Now().Add(stateExpiration)
	h.mu.Unlock()
	return state
}

func (h *OAuthHandler) consumeState(state string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	for s, expiry := range h.states {
		if now.After(expiry) {
			delete(h.states, s)
		}
	}

	expiry, exists := h.states[state]
	if !exists || now.After(expiry) {
		return false
	}
	delete(h.states, state)
	return true
}
