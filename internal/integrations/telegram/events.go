package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chatrelay-backend/internal/models"
)

// toEvent normalizes an update. ok is false for updates the relay ignores
// (edits, channel posts, stickers and other payloads it cannot store).
func toEvent(update tgbotapi.Update) (models.InboundEvent, bool) {
	msg := update.Message
	if msg == nil {
		return models.InboundEvent{}, false
	}

	ev := models.InboundEvent{
		Platform:  PlatformName,
		MessageID: strconv.Itoa(msg.MessageID),
	}
	if msg.Chat != nil {
		ev.Sender.ChatID = strconv.FormatInt(msg.Chat.ID, 10)
	}
	if msg.From != nil && msg.From.ID != 0 {
		ev.Sender.ID = strconv.FormatInt(msg.From.ID, 10)
		ev.Sender.FirstName = msg.From.FirstName
		ev.Sender.LastName = msg.From.LastName
		ev.Sender.Username = msg.From.UserName
	}

	switch {
	case msg.IsCommand():
		ev.Kind = models.PayloadText
		ev.Command = msg.Command()
		ev.Text = msg.Text
	case len(msg.Photo) > 0:
		ev.Kind = models.PayloadPhoto
		ev.Text = msg.Caption
		ref := &models.MediaRef{MimeType: "image/jpeg"}
		for _, p := range msg.Photo {
			ref.Variants = append(ref.Variants, models.MediaVariant{
				FileRef:  p.FileID,
				Width:    p.Width,
				Height:   p.Height,
				FileSize: int64(p.FileSize),
			})
		}
		ev.Media = ref
	case msg.Video != nil:
		ev.Kind = models.PayloadVideo
		ev.Text = msg.Caption
		ev.Media = &models.MediaRef{
			Variants: []models.MediaVariant{{
				FileRef:  msg.Video.FileID,
				Width:    msg.Video.Width,
				Height:   msg.Video.Height,
				FileSize: int64(msg.Video.FileSize),
			}},
			FileName: msg.Video.FileName,
			MimeType: msg.Video.MimeType,
		}
	case msg.Voice != nil:
		ev.Kind = models.PayloadVoice
		ev.Text = msg.Caption
		ev.Media = &models.MediaRef{
			Variants: []models.MediaVariant{{
				FileRef:  msg.Voice.FileID,
				FileSize: int64(msg.Voice.FileSize),
			}},
			FileName: "voice.mp3",
			MimeType: msg.Voice.MimeType,
		}
	case msg.Document != nil:
		ev.Kind = models.PayloadDocument
		ev.Text = msg.Caption
		ev.Media = &models.MediaRef{
			Variants: []models.MediaVariant{{
				FileRef:  msg.Document.FileID,
				FileSize: int64(msg.Document.FileSize),
			}},
			FileName: msg.Document.FileName,
			MimeType: msg.Document.MimeType,
		}
	case msg.Text != "":
		ev.Kind = models.PayloadText
		ev.Text = msg.Text
	default:
		return models.InboundEvent{}, false
	}
	return ev, true
}
