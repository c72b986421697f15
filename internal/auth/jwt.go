package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chatrelay-backend/internal/logging"
)

// --- Context Keys ---

// contextKey is a custom type used for context keys to avoid collisions.
type contextKey string

const (
	AdminKey contextKey = "admin"
)

const issuer = "chatrelay-backend"

// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// --- JWT Claims ---

// AdminClaims includes standard JWT claims plus the admin flag.
type AdminClaims struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// NewAccessToken generates a signed access token for the administrator.
func NewAccessToken(adminID, username, jwtSecret string, expiration time.Duration) (string, error) {
	now := time.Now()
	claims := AdminClaims{
		Username: username,
		IsAdmin:  true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   adminID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		logging.Error().Err(err).Str("subject", adminID).Msg("[Auth] Error signing JWT token")
		return "", err
	}
	return signedToken, nil
}

// ParseAccessToken validates the signature, expiry and issuer of tokenString.
func ParseAccessToken(tokenString, jwtSecret string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	}, jwt.WithIssuer(issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !claims.IsAdmin || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing admin claims", ErrInvalidToken)
	}
	return claims, nil
}
