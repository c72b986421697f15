package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"chatrelay-backend/internal/livesync"
	"chatrelay-backend/internal/logging"
)

// WSHandler upgrades authenticated console sessions onto the live-sync hub.
type WSHandler struct {
	hub      *livesync.Hub
	upgrader websocket.Upgrader
}

// NewWSHandler accepts browser origins listed in allowedOrigins; "*" accepts any.
func NewWSHandler(hub *livesync.Hub, allowedOrigins []string) *WSHandler {
	h := &WSHandler{hub: hub}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// HandleWS handles GET /v1/ws.
func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		logging.Warn().Err(err).Str("origin", r.Header.Get("Origin")).Msg("[WSHandler] Upgrade failed")
		return
	}
	client := livesync.NewClient(h.hub, conn)
	if !h.hub.Attach(client) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
	}
}
