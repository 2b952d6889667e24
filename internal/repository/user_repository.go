// Package repository holds the account gateway's pgx-backed repositories
// (users, refresh tokens, password reset tokens). Room storage operations
// and snapshots are persisted by internal/persistence instead, since that
// package is called directly by the room server's hooks.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ryanwaits/openblocks-sub000/internal/account"
)

// UserRepository handles user, refresh-token, and password-reset-token
// persistence. Grounded on the teacher's
// internal/repository/user_repository.go, which was already domain-agnostic.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts user, filling in ID/CreatedAt/UpdatedAt.
func (r *UserRepository) Create(ctx context.Context, user *account.User) error {
	query := `
		INSERT INTO users (email, password_hash, name, provider, provider_id, email_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		user.Email, user.PasswordHash, user.Name, user.Provider, user.ProviderID, user.EmailVerified,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID, returning (nil, nil) if not found.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.User, error) {
	query := `
		SELECT id, email, password_hash, name, avatar_url, provider, provider_id,
		       email_verified, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

// GetByEmail retrieves a user by email, returning (nil, nil) if not found.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*account.User, error) {
	query := `
		SELECT id, email, password_hash, name, avatar_url, provider, provider_id,
		       email_verified, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

// GetByProvider retrieves a user by OAuth provider + provider-assigned ID.
func (r *UserRepository) GetByProvider(ctx context.Context, provider, providerID string) (*account.User, error) {
	query := `
		SELECT id, email, password_hash, name, avatar_url, provider, provider_id,
		       email_verified, created_at, updated_at
		FROM users
		WHERE provider = $1 AND provider_id = $2
	`
	return r.scanUser(r.db.QueryRow(ctx, query, provider, providerID))
}

func (r *UserRepository) scanUser(row pgx.Row) (*account.User, error) {
	var u account.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.AvatarURL, &u.Provider, &u.ProviderID, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// Update persists user's name/avatar/verification status.
func (r *UserRepository) Update(ctx context.Context, user *account.User) error {
	query := `
		UPDATE users
		SET name = $1, avatar_url = $2, email_verified = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, user.Name, user.AvatarURL, user.EmailVerified, user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// UpdatePassword sets a new password hash for userID.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// Delete removes a user outright.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// CreateRefreshToken inserts token, filling in ID/CreatedAt.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *account.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, token.UserID, token.TokenHash, token.ExpiresAt).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken looks up a non-expired refresh token by its hash.
func (r *UserRepository) GetRefreshToken(ctx context.Context, tokenHash string) (*account.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND expires_at > NOW()
	`
	var t account.RefreshToken
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return &t, nil
}

// DeleteRefreshToken removes a single refresh token by hash.
func (r *UserRepository) DeleteRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

// DeleteUserRefreshTokens removes every refresh token belonging to userID
// (used to log out all sessions after a password reset).
func (r *UserRepository) DeleteUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user refresh tokens: %w", err)
	}
	return nil
}

// CreatePasswordResetToken inserts token, filling in ID/CreatedAt.
func (r *UserRepository) CreatePasswordResetToken(ctx context.Context, token *account.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, token.UserID, token.TokenHash, token.ExpiresAt).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create password reset token: %w", err)
	}
	return nil
}

// GetPasswordResetToken looks up an unused, non-expired reset token by hash.
func (r *UserRepository) GetPasswordResetToken(ctx context.Context, tokenHash string) (*account.PasswordResetToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at, used_at
		FROM password_reset_tokens
		WHERE token_hash = $1 AND expires_at > NOW() AND used_at IS NULL
	`
	var t account.PasswordResetToken
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt, &t.UsedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get password reset token: %w", err)
	}
	return &t, nil
}

// MarkPasswordResetTokenUsed marks a reset token as consumed.
func (r *UserRepository) MarkPasswordResetTokenUsed(ctx context.Context, tokenHash string) error {
	_, err := r.db.Exec(ctx, `UPDATE password_reset_tokens SET used_at = NOW() WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to mark password reset token as used: %w", err)
	}
	return nil
}

// CleanupExpiredTokens removes expired refresh tokens and reset tokens
// older than 24 hours. Nothing in cmd/account-gateway calls it; it runs
// only when a caller invokes it.
func (r *UserRepository) CleanupExpiredTokens(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < NOW()`); err != nil {
		return fmt.Errorf("failed to cleanup expired refresh tokens: %w", err)
	}
	cutoff := time.Now().Add(-24 * time.Hour)
	if _, err := r.db.Exec(ctx, `DELETE FROM password_reset_tokens WHERE created_at < $1`, cutoff); err != nil {
		return fmt.Errorf("failed to cleanup expired password reset tokens: %w", err)
	}
	return nil
}
