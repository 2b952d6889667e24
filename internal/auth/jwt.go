package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload minted by account-gateway's auth service and
// validated here. Grounded on the teacher's service.Claims.
type Claims struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// JWTHandler validates bearer tokens issued by account-gateway against a
// shared HMAC secret. Grounded on the teacher's JWTService.ValidateAccessToken.
type JWTHandler struct {
	secret []byte
}

// NewJWTHandler returns a handler validating tokens signed with secret.
func NewJWTHandler(secret string) *JWTHandler {
	return &JWTHandler{secret: []byte(secret)}
}

// Authenticate reads a bearer token from the Authorization header, falling
// back to a `token` query parameter (useful for browser WebSocket clients,
// which cannot set arbitrary headers on the upgrade request).
func (h *JWTHandler) Authenticate(req UpgradeRequest) (Identity, error) {
	tokenString := bearerToken(req.Header("Authorization"))
	if tokenString == "" {
		tokenString = req.Query.Get("token")
	}
	if tokenString == "" {
		return Identity{}, ErrUnauthorized
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return h.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, ErrUnauthorized
	}

	displayName := claims.DisplayName
	if displayName == "" {
		displayName = claims.Email
	}
	return Identity{UserID: claims.UserID, DisplayName: displayName}, nil
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}
