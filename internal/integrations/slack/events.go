package slack

import (
	"net/http"
	"strings"

	"github.com/slack-go/slack"

	"chatrelay-backend/internal/models"
)

// ignoredSubtypes are message events that are not new participant messages.
var ignoredSubtypes = map[string]bool{
	"bot_message":     true,
	"message_changed": true,
	"message_deleted": true,
	"channel_join":    true,
	"channel_leave":   true,
}

// ToEvent normalizes a direct-message event callback. ok is false for events
// the relay ignores, including the bot's own echoes.
func ToEvent(payload models.SlackEventPayload) (models.InboundEvent, bool) {
	e := payload.Event
	if payload.Type != "event_callback" || e.Type != "message" {
		return models.InboundEvent{}, false
	}
	if e.BotID != "" || ignoredSubtypes[e.Subtype] {
		return models.InboundEvent{}, false
	}
	if e.ChannelType != "" && e.ChannelType != "im" {
		return models.InboundEvent{}, false
	}

	ev := models.InboundEvent{
		Platform:  PlatformName,
		MessageID: e.Timestamp,
		Sender:    models.EventSender{ID: e.User, ChatID: e.Channel},
		Kind:      models.PayloadText,
		Text:      e.Text,
	}
	if len(e.Files) > 0 {
		f := e.Files[0]
		ev.Kind = kindForMime(f.Mimetype)
		ev.Media = &models.MediaRef{
			Variants: []models.MediaVariant{{
				FileRef:  f.URLPrivateDownload,
				Width:    f.OriginalW,
				Height:   f.OriginalH,
				FileSize: f.Size,
			}},
			FileName: f.Name,
			MimeType: f.Mimetype,
		}
	}
	if ev.Media == nil && strings.TrimSpace(ev.Text) == "" {
		return models.InboundEvent{}, false
	}
	return ev, true
}

func kindForMime(mimeType string) models.PayloadKind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.PayloadPhoto
	case strings.HasPrefix(mimeType, "video/"):
		return models.PayloadVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return models.PayloadVoice
	default:
		return models.PayloadDocument
	}
}

// VerifyRequest checks the request signature against the signing secret.
func VerifyRequest(header http.Header, body []byte, signingSecret string) error {
	sv, err := slack.NewSecretsVerifier(header, signingSecret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(body); err != nil {
		return err
	}
	return sv.Ensure()
}

// IsRetry reports whether Slack is redelivering an event it already sent.
func IsRetry(header http.Header) bool {
	return header.Get("X-Slack-Retry-Num") != ""
}
