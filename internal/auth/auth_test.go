package auth

import (
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestQueryParamHandlerRequiresUserID(t *testing.T) {
	req := UpgradeRequest{Query: url.Values{}}
	if _, err := (QueryParamHandler{}).Authenticate(req); err == nil {
		t.Fatal("expected an error without a userId query param")
	}
}

func TestQueryParamHandlerDefaultsDisplayName(t *testing.T) {
	req := UpgradeRequest{Query: url.Values{"userId": {"u1"}}}
	id, err := (QueryParamHandler{}).Authenticate(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.DisplayName != "u1" {
		t.Fatalf("DisplayName = %q, want u1 as fallback", id.DisplayName)
	}
}

func TestResolvePrefersHandlerOverQueryParams(t *testing.T) {
	h := NewJWTHandler("secret")
	token := signTestToken(t, "secret", "jwt-user", "JWT User")
	req := UpgradeRequest{
		Headers: map[string][]string{"Authorization": {"Bearer " + token}},
		Query:   url.Values{"userId": {"query-user"}},
	}
	id, err := Resolve(h, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.UserID != "jwt-user" {
		t.Fatalf("UserID = %q, want jwt-user (handler must win over query params)", id.UserID)
	}
}

func TestJWTHandlerRejectsBadSignature(t *testing.T) {
	h := NewJWTHandler("correct-secret")
	token := signTestToken(t, "wrong-secret", "u1", "U1")
	req := UpgradeRequest{Headers: map[string][]string{"Authorization": {"Bearer " + token}}}
	if _, err := h.Authenticate(req); err == nil {
		t.Fatal("expected rejection for a token signed with a different secret")
	}
}

func TestJWTHandlerAcceptsTokenFromQueryParam(t *testing.T) {
	h := NewJWTHandler("secret")
	token := signTestToken(t, "secret", "u1", "U1")
	req := UpgradeRequest{Query: url.Values{"token": {token}}}
	id, err := h.Authenticate(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.UserID != "u1" {
		t.Fatalf("UserID = %q, want u1", id.UserID)
	}
}

func signTestToken(t *testing.T, secret, userID, displayName string) string {
	t.Helper()
	claims := &Claims{
		UserID:      userID,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}
