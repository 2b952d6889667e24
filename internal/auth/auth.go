// Package auth implements the room server's upgrade-time authentication
// hook (spec.md §4.1): a pluggable Handler plus the two concrete
// implementations this repository ships — JWT bearer-token validation
// against account-gateway-issued tokens, and an unauthenticated
// query-param fallback kept as a documented development affordance.
package auth

import (
	"errors"
	"net/url"
)

// ErrUnauthorized is returned by a Handler when the request could not be
// authenticated; the caller must reject the upgrade with 401.
var ErrUnauthorized = errors.New("auth: unauthorized")

// Identity is what a successful Handler call resolves the caller to.
type Identity struct {
	UserID      string
	DisplayName string
}

// UpgradeRequest carries the metadata a Handler may inspect: it never sees
// the request body, only headers/URL/query, matching spec.md's "consumes
// the upgrade request metadata (headers, URL, query)".
type UpgradeRequest struct {
	Headers map[string][]string
	URL     *url.URL
	Query   url.Values
}

// Header returns the first value of key, case-sensitively as stored by the
// caller (callers should pass canonicalized header maps).
func (r UpgradeRequest) Header(key string) string {
	vals := r.Headers[key]
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// Handler authenticates an upgrade request. Without one configured, the
// room server falls back to QueryParamHandler.
type Handler interface {
	Authenticate(req UpgradeRequest) (Identity, error)
}

// Resolve runs handler if non-nil, falling back to query parameters
// per spec.md §4.1: "Without a handler, userId and displayName are read
// from query parameters; when both handler and query params are present,
// the handler wins."
func Resolve(handler Handler, req UpgradeRequest) (Identity, error) {
	if handler != nil {
		return handler.Authenticate(req)
	}
	return QueryParamHandler{}.Authenticate(req)
}

// QueryParamHandler reads userId/displayName directly from the connection
// URL's query string, performing no verification whatsoever. It exists
// purely as a development affordance (spec.md's Open Question resolution);
// production deployments should configure a real Handler such as
// JWTHandler.
type QueryParamHandler struct{}

func (QueryParamHandler) Authenticate(req UpgradeRequest) (Identity, error) {
	userID := req.Query.Get("userId")
	if userID == "" {
		return Identity{}, ErrUnauthorized
	}
	displayName := req.Query.Get("displayName")
	if displayName == "" {
		displayName = userID
	}
	return Identity{UserID: userID, DisplayName: displayName}, nil
}
