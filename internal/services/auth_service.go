package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"chatrelay-backend/internal/auth"
	"chatrelay-backend/internal/config"
	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/models"
)

// Custom errors for auth service
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrCreatingToken      = errors.New("failed to create access token")
)

// adminID is the token subject for the single configured administrator.
const adminID = "admin"

// AuthService authenticates the console administrator.
type AuthService struct {
	cfg          *config.Config
	passwordHash string
}

// NewAuthService prepares the administrator credentials. A plaintext
// ADMIN_PASSWORD is hashed once at boot.
func NewAuthService(cfg *config.Config) (*AuthService, error) {
	hash := cfg.AdminPasswordHash
	if hash == "" && cfg.AdminPassword != "" {
		var err error
		hash, err = auth.HashPassword(cfg.AdminPassword)
		if err != nil {
			return nil, err
		}
		logging.Warn().Msg("[AuthService] Using ADMIN_PASSWORD; set ADMIN_PASSWORD_HASH outside development")
	}
	if hash == "" {
		logging.Warn().Msg("[AuthService] No admin password configured; logins will be rejected")
	}
	return &AuthService{cfg: cfg, passwordHash: hash}, nil
}

// Login verifies credentials and returns an access token and the admin identity.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *models.AdminResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || s.passwordHash == "" {
		return "", nil, ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.AdminUsername)) == 1
	passOK := auth.CheckPasswordHash(password, s.passwordHash)
	if !userOK || !passOK {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.NewAccessToken(adminID, s.cfg.AdminUsername, s.cfg.JWTSecret, s.cfg.TokenExpiration())
	if err != nil {
		return "", nil, ErrCreatingToken
	}

	logging.Info().Str("username", username).Msg("[AuthService] Admin logged in")
	return token, &models.AdminResponse{ID: adminID, Username: s.cfg.AdminUsername, IsAdmin: true}, nil
}

// Verify validates a token and returns its claims.
func (s *AuthService) Verify(token string) (*auth.AdminClaims, error) {
	return auth.ParseAccessToken(token, s.cfg.JWTSecret)
}
