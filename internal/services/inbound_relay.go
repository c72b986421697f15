package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatrelay-backend/internal/blob"
	"chatrelay-backend/internal/integrations"
	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/metrics"
	"chatrelay-backend/internal/models"
	"chatrelay-backend/internal/store"
)

// Apologies sent back to the originating conversation when an event fails.
const (
	apologyRequest  = "Sorry, there was an error processing your request. Please try again later."
	apologyMessage  = "Sorry, there was an error processing your message. Please try again later."
	apologyPhoto    = "Sorry, there was an error processing your photo. Please try again later."
	apologyVideo    = "Sorry, there was an error processing your video."
	apologyVoice    = "Sorry, there was an error processing your voice message."
	apologyDocument = "Sorry, there was an error processing your file."
)

// ErrNoIdentity marks events that carry no usable sender identity.
var ErrNoIdentity = errors.New("event has no sender identity")

// InboundConfig tunes media handling and the start greeting.
type InboundConfig struct {
	ImageMaxDimension int
	Greeting          string        // fmt pattern with one %s for the participant's name
	EventTimeout      time.Duration // Upper bound for one event; 0 means none
}

// InboundRelay turns platform events into stored participant messages.
type InboundRelay struct {
	conv     *ConversationService
	platform integrations.Client
	blobs    blob.Store
	live     Broadcaster
	cfg      InboundConfig
}

// NewInboundRelay creates a new InboundRelay.
func NewInboundRelay(conv *ConversationService, platform integrations.Client, blobs blob.Store, live Broadcaster, cfg InboundConfig) *InboundRelay {
	return &InboundRelay{conv: conv, platform: platform, blobs: blobs, live: live, cfg: cfg}
}

// HandleEvent processes one event. Failures are answered with one apology to
// the originating conversation and never propagate to the event source.
func (r *InboundRelay) HandleEvent(ctx context.Context, ev models.InboundEvent) {
	if r.cfg.EventTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.EventTimeout)
		defer cancel()
	}

	log := logging.Logger().With().
		Str("platform", ev.Platform).
		Str("kind", string(ev.Kind)).
		Str("external_id", ev.MessageID).
		Str("sender", ev.Sender.ID).
		Logger()

	if strings.TrimSpace(ev.Sender.ID) == "" {
		metrics.InboundEvents.WithLabelValues(string(ev.Kind), "rejected").Inc()
		log.Warn().Err(ErrNoIdentity).Msg("[InboundRelay] Discarding event")
		r.apologize(ctx, ev.Sender.ChatID, apologyRequest)
		return
	}

	if ev.Command == "start" {
		if err := r.greet(ctx, ev); err != nil {
			metrics.InboundEvents.WithLabelValues("command", "failed").Inc()
			log.Error().Err(err).Msg("[InboundRelay] Start command failed")
			r.apologize(ctx, ev.Sender.ChatID, apologyRequest)
			return
		}
		metrics.InboundEvents.WithLabelValues("command", "greeted").Inc()
		return
	}

	msg, err := r.process(ctx, ev)
	if err != nil {
		metrics.InboundEvents.WithLabelValues(string(ev.Kind), "failed").Inc()
		log.Error().Err(err).Msg("[InboundRelay] Event processing failed")
		r.apologize(ctx, ev.Sender.ChatID, apologyFor(ev.Kind))
		return
	}

	metrics.InboundEvents.WithLabelValues(string(ev.Kind), "stored").Inc()
	log.Info().Str("message_id", msg.ID.String()).Str("participant_id", msg.ParticipantID.String()).Msg("[InboundRelay] Stored inbound message")
	r.live.BroadcastNewMessage(msg)
}

func (r *InboundRelay) process(ctx context.Context, ev models.InboundEvent) (*models.Message, error) {
	participant, err := r.conv.FindOrCreateParticipant(ctx, ev.Sender.ID, profileOf(ev.Sender))
	if err != nil {
		return nil, err
	}

	params := store.CreateMessageParams{
		ParticipantID: participant.ID,
		IsFromAdmin:   false,
		Read:          false,
	}
	if ev.MessageID != "" {
		id := ev.MessageID
		params.ExternalID = &id
	}
	if ev.Text != "" {
		text := ev.Text
		params.Text = &text
	}

	switch ev.Kind {
	case models.PayloadText:
	case models.PayloadPhoto, models.PayloadVideo, models.PayloadVoice, models.PayloadDocument:
		att, err := r.storeMedia(ctx, ev)
		if err != nil {
			return nil, err
		}
		params.Attachments = []models.Attachment{att}
	default:
		return nil, fmt.Errorf("%w: unknown payload kind %q", ErrValidation, ev.Kind)
	}

	return r.conv.CreateMessage(ctx, params)
}

// storeMedia fetches the primary variant from the platform and copies it into
// the blob store with kind-specific options.
func (r *InboundRelay) storeMedia(ctx context.Context, ev models.InboundEvent) (models.Attachment, error) {
	variant, ok := ev.Media.Primary()
	if !ok {
		return models.Attachment{}, fmt.Errorf("%w: %s event has no media", ErrValidation, ev.Kind)
	}

	data, err := r.platform.FetchFile(ctx, variant.FileRef)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("failed to fetch %s: %w", ev.Kind, err)
	}

	att := models.Attachment{
		Filename: ev.Media.FileName,
		FileSize: variant.FileSize,
		MimeType: ev.Media.MimeType,
	}
	if att.FileSize <= 0 {
		att.FileSize = int64(len(data))
	}

	var (
		kind blob.Kind
		opts = blob.UploadOptions{FileName: ev.Media.FileName}
	)
	switch ev.Kind {
	case models.PayloadPhoto:
		att.Type, kind = models.AttachmentImage, blob.KindImage
		opts.MaxDimension = r.cfg.ImageMaxDimension
		if att.MimeType == "" {
			att.MimeType = "image/jpeg"
		}
	case models.PayloadVideo:
		att.Type, kind = models.AttachmentVideo, blob.KindVideo
		opts.EagerFormat = "mp4"
	case models.PayloadVoice:
		att.Type, kind = models.AttachmentAudio, blob.KindVideo
		opts.Format = "mp3"
		att.MimeType = "audio/mpeg"
		if att.Filename == "" {
			att.Filename = "voice.mp3"
		}
	case models.PayloadDocument:
		if kindOf, _ := blob.Classify(att.MimeType); kindOf == models.AttachmentImage {
			att.Type, kind = models.AttachmentImage, blob.KindImage
			opts.MaxDimension = r.cfg.ImageMaxDimension
		} else {
			att.Type, kind = models.AttachmentFile, blob.KindRaw
		}
	}

	res, err := r.blobs.Upload(ctx, data, kind, opts)
	if err != nil {
		return models.Attachment{}, err
	}
	att.URL = res.URL
	return att, nil
}

func (r *InboundRelay) greet(ctx context.Context, ev models.InboundEvent) error {
	participant, err := r.conv.FindOrCreateParticipant(ctx, ev.Sender.ID, profileOf(ev.Sender))
	if err != nil {
		return err
	}
	greeting := r.cfg.Greeting
	if greeting == "" {
		return nil
	}
	if strings.Contains(greeting, "%s") {
		greeting = fmt.Sprintf(greeting, strings.TrimSpace(participant.FullName()))
	}
	_, err = r.platform.SendText(ctx, participant.Address(), greeting, integrations.SendOptions{})
	return err
}

func (r *InboundRelay) apologize(ctx context.Context, address, text string) {
	if address == "" {
		logging.Warn().Msg("[InboundRelay] No conversation to apologize to")
		return
	}
	BestEffort(ctx, "apology", func(ctx context.Context) error {
		_, err := r.platform.SendText(ctx, address, text, integrations.SendOptions{})
		return err
	})
}

func apologyFor(kind models.PayloadKind) string {
	switch kind {
	case models.PayloadText:
		return apologyMessage
	case models.PayloadPhoto:
		return apologyPhoto
	case models.PayloadVideo:
		return apologyVideo
	case models.PayloadVoice:
		return apologyVoice
	case models.PayloadDocument:
		return apologyDocument
	default:
		return apologyRequest
	}
}

func profileOf(s models.EventSender) ParticipantProfile {
	return ParticipantProfile{
		ChatID:    s.ChatID,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Username:  s.Username,
	}
}
