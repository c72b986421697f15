package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"chatrelay-backend/internal/integrations/slack"
	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/models"
	"chatrelay-backend/pkg/httputil"
)

// EventRelay accepts normalized platform events.
type EventRelay interface {
	HandleEvent(ctx context.Context, ev models.InboundEvent)
}

// SenderEnricher fills in profile fields missing from an event.
type SenderEnricher interface {
	EnrichSender(ctx context.Context, sender *models.EventSender)
}

// SlackWebhookHandlers handles incoming Slack Events API requests.
type SlackWebhookHandlers struct {
	signingSecret string
	enricher      SenderEnricher
	relay         EventRelay
}

// NewSlackWebhookHandlers creates the handler. enricher may be nil.
func NewSlackWebhookHandlers(signingSecret string, enricher SenderEnricher, relay EventRelay) *SlackWebhookHandlers {
	return &SlackWebhookHandlers{
		signingSecret: signingSecret,
		enricher:      enricher,
		relay:         relay,
	}
}

// HandleSlackEvent handles POST /slack-events. Accepted events are acknowledged
// at once and relayed in the background; Slack expects an answer within 3s.
func (h *SlackWebhookHandlers) HandleSlackEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	if h.signingSecret != "" {
		if err := slack.VerifyRequest(r.Header, body, h.signingSecret); err != nil {
			logging.Warn().Err(err).Msg("[SlackWebhook] Signature verification failed")
			httputil.RespondError(w, http.StatusUnauthorized, "Invalid request signature")
			return
		}
	}

	var typeFinder struct {
		Type      string `json:"type"`
		Challenge string `json:"challenge"`
	}
	if err := json.Unmarshal(body, &typeFinder); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Could not determine payload type")
		return
	}

	if typeFinder.Type == "url_verification" {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(typeFinder.Challenge))
		return
	}

	if slack.IsRetry(r.Header) {
		logging.Debug().Str("retry_num", r.Header.Get("X-Slack-Retry-Num")).Msg("[SlackWebhook] Ignoring redelivery")
		w.WriteHeader(http.StatusOK)
		return
	}

	var payload models.SlackEventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid Slack event payload")
		return
	}

	ev, ok := slack.ToEvent(payload)
	if !ok {
		logging.Debug().Str("event_type", payload.Event.Type).Str("subtype", payload.Event.Subtype).Msg("[SlackWebhook] Ignoring event")
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		if h.enricher != nil {
			h.enricher.EnrichSender(ctx, &ev.Sender)
		}
		h.relay.HandleEvent(ctx, ev)
	}()
	w.WriteHeader(http.StatusOK)
}
