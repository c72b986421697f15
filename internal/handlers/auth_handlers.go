package handlers

import (
	"context"
	"errors"
	"net/http"

	"chatrelay-backend/internal/auth"
	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/models"
	"chatrelay-backend/internal/services"
	"chatrelay-backend/pkg/httputil"
)

// AuthService defines the interface expected from the auth service.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, *models.AdminResponse, error)
}

type AuthHandler struct {
	authService AuthService
}

func NewAuthHandler(authSvc AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authSvc,
	}
}

// HandleLogin handles the POST /v1/auth/login request.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	token, admin, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			logging.Warn().Str("username", req.Username).Msg("[AuthHandler] Login rejected")
			httputil.RespondError(w, http.StatusUnauthorized, err.Error())
		default:
			logging.Error().Err(err).Msg("[AuthHandler] Login failed")
			httputil.RespondError(w, http.StatusInternalServerError, "Login failed due to an internal error")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.AuthResponse{Token: token, User: *admin})
}

// HandleVerify handles GET /v1/auth/verify and echoes the token's admin.
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetAdminFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.AdminResponse{
		ID:       claims.Subject,
		Username: claims.Username,
		IsAdmin:  claims.IsAdmin,
	})
}
