package account

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ryanwaits/openblocks-sub000/internal/repository"
)

// Service handles registration, password login, refresh, logout, and
// password reset. Grounded on the teacher's internal/service/auth_service.go,
// which was already domain-agnostic.
type Service struct {
	users *repository.UserRepository
	jwt   *JWTIssuer
	email *EmailService
}

// NewService builds a Service backed by users and jwt. email may be nil,
// in which case welcome/reset notifications are silently skipped —
// useful for tests that have no NATS connection to publish through.
func NewService(users *repository.UserRepository, jwt *JWTIssuer, email *EmailService) *Service {
	return &Service{users: users, jwt: jwt, email: email}
}

// Register creates a new password-auth user and issues a token pair.
func (s *Service) Register(ctx context.Context, req *CreateUserRequest) (*AuthResponse, error) {
	existing, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("user with email %s already exists", req.Email)
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Email:        req.Email,
		PasswordHash: &passwordHash,
		Name:         req.Name,
		Provider:     "email",
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	tokens, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	if s.email != nil {
		if err := s.email.SendWelcome(user.Email, user.Name); err != nil {
			log.Printf("account: failed to publish welcome email for %s: %v", user.Email, err)
		}
	}

	return &AuthResponse{User: user, Tokens: tokens}, nil
}

// Login verifies email/password credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	if user.PasswordHash == nil {
		return nil, fmt.Errorf("user registered with %s, please use OAuth login", user.Provider)
	}
	if !verifyPassword(*user.PasswordHash, req.Password) {
		return nil, fmt.Errorf("invalid credentials")
	}

	tokens, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	return &AuthResponse{User: user, Tokens: tokens}, nil
}

// Refresh exchanges a valid refresh token for a new token pair, rotating
// the refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	tokenHash := s.jwt.HashRefreshToken(refreshToken)

	token, err := s.users.GetRefreshToken(ctx, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if token == nil {
		return nil, fmt.Errorf("invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	if err := s.users.DeleteRefreshToken(ctx, tokenHash); err != nil {
		return nil, fmt.Errorf("failed to delete old refresh token: %w", err)
	}

	return s.issueTokenPair(ctx, user)
}

// Logout invalidates a single refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.users.DeleteRefreshToken(ctx, s.jwt.HashRefreshToken(refreshToken))
}

// ForgotPassword issues a reset token for email, or a no-op if the address
// is unknown (never reveals whether an account exists).
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return "", nil
	}
	if user.PasswordHash == nil {
		return "", fmt.Errorf("user registered with %s, password reset not available", user.Provider)
	}

	token := uuid.New().String()
	tokenHash := hashToken(token)
	resetToken := &PasswordResetToken{
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(1 * time.Hour),
	}
	if err := s.users.CreatePasswordResetToken(ctx, resetToken); err != nil {
		return "", fmt.Errorf("failed to create password reset token: %w", err)
	}

	if s.email != nil {
		if err := s.email.SendPasswordReset(user.Email, user.Name, token, ""); err != nil {
			log.Printf("account: failed to publish password reset email for %s: %v", user.Email, err)
		}
	}

	return token, nil
}

// ResetPassword consumes a reset token, sets a new password, and logs out
// every existing session for the user.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	tokenHash := hashToken(token)

	resetToken, err := s.users.GetPasswordResetToken(ctx, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to get password reset token: %w", err)
	}
	if resetToken == nil {
		return fmt.Errorf("invalid or expired reset token")
	}

	passwordHash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, resetToken.UserID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.users.MarkPasswordResetTokenUsed(ctx, tokenHash); err != nil {
		return fmt.Errorf("failed to mark token as used: %w", err)
	}
	if err := s.users.DeleteUserRefreshTokens(ctx, resetToken.UserID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// ChangePassword verifies oldPassword against user's stored hash and, on
// success, replaces it with newPassword and logs out every existing
// session.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user not found")
	}
	if user.PasswordHash == nil {
		return fmt.Errorf("user registered with %s, password change not available", user.Provider)
	}
	if !verifyPassword(*user.PasswordHash, oldPassword) {
		return fmt.Errorf("invalid old password")
	}

	newHash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return s.users.DeleteUserRefreshTokens(ctx, userID)
}

func (s *Service) issueTokenPair(ctx context.Context, user *User) (*TokenPair, error) {
	accessToken, expiresAt, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshHash, refreshExpiresAt := s.jwt.GenerateRefreshToken()

	dbToken := &RefreshToken{UserID: user.ID, TokenHash: refreshHash, ExpiresAt: refreshExpiresAt}
	if err := s.users.CreateRefreshToken(ctx, dbToken); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, ExpiresAt: expiresAt}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
