package handlers

import (
	"context"
	"net/http"
	"time"

	"chatrelay-backend/internal/models"
	"chatrelay-backend/pkg/httputil"
)

// Pinger reports whether persistence is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store    Pinger
	platform string
}

func NewHealthHandler(store Pinger, platform string) *HealthHandler {
	return &HealthHandler{store: store, platform: platform}
}

// HandleHealth handles GET /health. An unreachable store answers 503.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := models.HealthResponse{Status: "ok", Store: "ok", Platform: h.platform}
	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Store = "unavailable"
		status = http.StatusServiceUnavailable
	}
	httputil.RespondJSON(w, status, resp)
}
