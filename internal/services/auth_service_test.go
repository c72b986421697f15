package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay-backend/internal/auth"
	"chatrelay-backend/internal/config"
)

func testAuthConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	return &config.Config{
		JWTSecret:          "test-secret",
		JWTExpirationHours: 1,
		AdminUsername:      "admin",
		AdminPasswordHash:  hash,
	}
}

func TestAuthServiceLogin(t *testing.T) {
	svc, err := NewAuthService(testAuthConfig(t))
	require.NoError(t, err)

	token, admin, err := svc.Login(context.Background(), "admin", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, "admin", admin.Username)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.True(t, claims.IsAdmin)
}

func TestAuthServiceRejectsBadCredentials(t *testing.T) {
	svc, err := NewAuthService(testAuthConfig(t))
	require.NoError(t, err)

	tests := []struct {
		name, username, password string
	}{
		{"wrong password", "admin", "nope"},
		{"wrong username", "root", "s3cret"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Login(context.Background(), tt.username, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}

	_, err = svc.Verify("garbage")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAuthServiceHashesPlaintextPassword(t *testing.T) {
	cfg := &config.Config{JWTSecret: "x", JWTExpirationHours: 1, AdminUsername: "admin", AdminPassword: "dev"}
	svc, err := NewAuthService(cfg)
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "admin", "dev")
	assert.NoError(t, err)
}

func TestAuthServiceWithoutPasswordRejectsAll(t *testing.T) {
	svc, err := NewAuthService(&config.Config{JWTSecret: "x", JWTExpirationHours: 1, AdminUsername: "admin"})
	require.NoError(t, err)
	_, _, err = svc.Login(context.Background(), "admin", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
