package auth

import (
	"context"
)

// --- Context Helper Functions ---

// WithAdmin stores validated claims in ctx.
func WithAdmin(ctx context.Context, claims *AdminClaims) context.Context {
	return context.WithValue(ctx, AdminKey, claims)
}

// GetAdminFromContext retrieves the admin claims from the request context.
// Returns the claims and true if found, otherwise nil and false.
func GetAdminFromContext(ctx context.Context) (*AdminClaims, bool) {
	claims, ok := ctx.Value(AdminKey).(*AdminClaims)
	return claims, ok
}
