package account

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ryanwaits/openblocks-sub000/internal/auth"
	"github.com/ryanwaits/openblocks-sub000/internal/config"
)

// JWTIssuer mints the bearer tokens internal/auth.JWTHandler later
// validates on the room server's upgrade path, plus opaque refresh tokens
// stored hashed in Postgres. Grounded on the teacher's
// internal/service/jwt_service.go.
type JWTIssuer struct {
	secret               string
	accessTokenDuration  time.Duration
	refreshTokenDuration time.Duration
}

// NewJWTIssuer builds an issuer from cfg.
func NewJWTIssuer(cfg *config.JWTConfig) (*JWTIssuer, error) {
	accessDuration, err := cfg.GetAccessTokenDuration()
	if err != nil {
		return nil, fmt.Errorf("invalid access token duration: %w", err)
	}
	refreshDuration, err := cfg.GetRefreshTokenDuration()
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token duration: %w", err)
	}
	return &JWTIssuer{
		secret:               cfg.Secret,
		accessTokenDuration:  accessDuration,
		refreshTokenDuration: refreshDuration,
	}, nil
}

// GenerateAccessToken mints an auth.Claims-shaped access token for user.
func (s *JWTIssuer) GenerateAccessToken(user *User) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.accessTokenDuration)

	claims := &auth.Claims{
		UserID:      user.ID.String(),
		Email:       user.Email,
		DisplayName: user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "openblocks-account-gateway",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// GenerateRefreshToken returns a new opaque refresh token, its stored hash,
// and its expiry.
func (s *JWTIssuer) GenerateRefreshToken() (token, tokenHash string, expiresAt time.Time) {
	token = uuid.New().String()
	tokenHash = hashToken(token)
	expiresAt = time.Now().Add(s.refreshTokenDuration)
	return token, tokenHash, expiresAt
}

// HashRefreshToken hashes a refresh token for storage/lookup.
func (s *JWTIssuer) HashRefreshToken(token string) string {
	return hashToken(token)
}

// Validate parses and verifies an access token minted by GenerateAccessToken,
// used by the account gateway's own auth middleware (distinct from the room
// server's internal/auth.JWTHandler, which validates the same tokens at
// upgrade time).
func (s *JWTIssuer) Validate(tokenString string) (*auth.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &auth.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := token.Claims.(*auth.Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
