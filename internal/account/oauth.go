package account

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/ryanwaits/openblocks-sub000/internal/config"
	"github.com/ryanwaits/openblocks-sub000/internal/repository"
)

// OAuthService handles Google/GitHub login, grounded on the teacher's
// internal/service/oauth_service.go (already domain-agnostic).
type OAuthService struct {
	users     *repository.UserRepository
	jwt       *JWTIssuer
	googleCfg *oauth2.Config
	githubCfg *oauth2.Config
}

// NewOAuthService builds an OAuthService from cfg.
func NewOAuthService(cfg *config.OAuthConfig, users *repository.UserRepository, jwt *JWTIssuer) *OAuthService {
	return &OAuthService{
		users: users,
		jwt:   jwt,
		googleCfg: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		githubCfg: &oauth2.Config{
			ClientID:     cfg.GitHub.ClientID,
			ClientSecret: cfg.GitHub.ClientSecret,
			RedirectURL:  cfg.GitHub.RedirectURL,
			Scopes:       []string{"user:email", "read:user"},
			Endpoint:     github.Endpoint,
		},
	}
}

// GoogleAuthURL returns the Google OAuth authorization URL for state.
func (s *OAuthService) GoogleAuthURL(state string) string {
	return s.googleCfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GitHubAuthURL returns the GitHub OAuth authorization URL for state.
func (s *OAuthService) GitHubAuthURL(state string) string {
	return s.githubCfg.AuthCodeURL(state)
}

// GoogleCallback exchanges code for a token, fetches the user's profile,
// and finds-or-creates the corresponding account.
func (s *OAuthService) GoogleCallback(ctx context.Context, code string) (*AuthResponse, error) {
	token, err := s.googleCfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	client := s.googleCfg.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var userInfo struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user info: %w", err)
	}

	return s.findOrCreateUser(ctx, "google", userInfo.ID, userInfo.Email, userInfo.Name, userInfo.Picture)
}

// GitHubCallback exchanges code for a token, fetches the user's profile
// (falling back to the emails endpoint if the primary email is private),
// and finds-or-creates the corresponding account.
func (s *OAuthService) GitHubCallback(ctx context.Context, code string) (*AuthResponse, error) {
	token, err := s.githubCfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	client := s.githubCfg.Client(ctx, token)
	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var userInfo struct {
		ID        int64  `json:"id"`
		Email     string `json:"email"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user info: %w", err)
	}

	if userInfo.Email == "" {
		userInfo.Email = s.primaryGitHubEmail(client)
	}
	if userInfo.Email == "" {
		return nil, fmt.Errorf("failed to get email from GitHub")
	}

	name := userInfo.Name
	if name == "" {
		name = userInfo.Email
	}
	providerID := fmt.Sprintf("%d", userInfo.ID)
	return s.findOrCreateUser(ctx, "github", providerID, userInfo.Email, name, userInfo.AvatarURL)
}

func (s *OAuthService) primaryGitHubEmail(client *http.Client) string {
	resp, err := client.Get("https://api.github.com/user/emails")
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}

	var emails []struct {
		Email   string `json:"email"`
		Primary bool   `json:"primary"`
	}
	if json.Unmarshal(body, &emails) != nil {
		return ""
	}
	for _, e := range emails {
		if e.Primary {
			return e.Email
		}
	}
	return ""
}

func (s *OAuthService) findOrCreateUser(ctx context.Context, provider, providerID, email, name, avatarURL string) (*AuthResponse, error) {
	user, err := s.users.GetByProvider(ctx, provider, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by provider: %w", err)
	}
	if user == nil {
		user, err = s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to get user by email: %w", err)
		}
	}

	if user == nil {
		user = &User{
			Email:         email,
			Name:          name,
			Provider:      provider,
			ProviderID:    &providerID,
			EmailVerified: true,
		}
		if avatarURL != "" {
			user.AvatarURL = &avatarURL
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	accessToken, expiresAt, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, refreshHash, refreshExpiresAt := s.jwt.GenerateRefreshToken()

	dbToken := &RefreshToken{UserID: user.ID, TokenHash: refreshHash, ExpiresAt: refreshExpiresAt}
	if err := s.users.CreateRefreshToken(ctx, dbToken); err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return &AuthResponse{
		User: user,
		Tokens: &TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    expiresAt,
		},
	}, nil
}
