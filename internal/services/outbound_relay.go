package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"chatrelay-backend/internal/integrations"
	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/metrics"
	"chatrelay-backend/internal/models"
	"chatrelay-backend/internal/store"
	"chatrelay-backend/internal/validation"
)

// SendInput is an admin-authored message for one participant.
type SendInput struct {
	ParticipantID    uuid.UUID
	Text             string
	Attachments      []models.Attachment
	ReplyToMessageID *uuid.UUID
}

// SendResult is the stored message. TransportError is set when delivery to the
// platform failed in whole or in part; the message is stored either way.
type SendResult struct {
	Message        *models.Message
	TransportError error
}

// Delivered reports whether every platform call succeeded.
func (r *SendResult) Delivered() bool { return r.TransportError == nil }

// OutboundRelay sends admin messages to the platform and records them.
type OutboundRelay struct {
	conv     *ConversationService
	platform integrations.Client
	live     Broadcaster
}

// NewOutboundRelay creates a new OutboundRelay.
func NewOutboundRelay(conv *ConversationService, platform integrations.Client, live Broadcaster) *OutboundRelay {
	return &OutboundRelay{conv: conv, platform: platform, live: live}
}

// Send delivers text first, then each attachment in order. The first platform
// id obtained becomes the stored message's external id.
func (r *OutboundRelay) Send(ctx context.Context, in SendInput) (*SendResult, error) {
	text := in.Text
	if strings.TrimSpace(text) == "" {
		text = ""
	}
	if text == "" && len(in.Attachments) == 0 {
		return nil, fmt.Errorf("%w: message needs text or at least one attachment", ErrValidation)
	}
	for i := range in.Attachments {
		if err := validation.ValidateStruct(in.Attachments[i]); err != nil {
			return nil, fmt.Errorf("%w: attachment %d: %v", ErrValidation, i, err)
		}
	}

	participant, err := r.conv.GetParticipant(ctx, in.ParticipantID)
	if err != nil {
		return nil, err
	}
	address := participant.Address()

	var (
		opts    integrations.SendOptions
		replyTo *uuid.UUID
	)
	if in.ReplyToMessageID != nil {
		target, err := r.conv.GetMessage(ctx, *in.ReplyToMessageID)
		switch {
		case err == nil:
			replyTo = &target.ID
			if target.HasExternalID() {
				opts.ReplyTo = *target.ExternalID
			}
		case !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("failed to resolve reply target: %w", err)
		}
	}

	var (
		externalID string
		errs       []error
	)
	record := func(id string, err error) {
		if err != nil {
			if !errors.Is(err, integrations.ErrTransport) && !errors.Is(err, integrations.ErrUnsupportedAttachment) {
				err = fmt.Errorf("%w: %v", integrations.ErrTransport, err)
			}
			errs = append(errs, err)
			return
		}
		if externalID == "" {
			externalID = id
		}
	}

	if text != "" {
		record(r.platform.SendText(ctx, address, text, opts))
	}
	for _, att := range in.Attachments {
		record(r.platform.SendAttachment(ctx, address, att, opts))
	}
	transportErr := errors.Join(errs...)

	params := store.CreateMessageParams{
		ParticipantID: participant.ID,
		IsFromAdmin:   true,
		Attachments:   in.Attachments,
		ReplyToID:     replyTo,
	}
	if text != "" {
		params.Text = &text
	}
	if externalID != "" {
		params.ExternalID = &externalID
	}
	msg, err := r.conv.CreateMessage(ctx, params)
	if err != nil {
		return nil, err
	}

	if transportErr != nil {
		metrics.OutboundMessages.WithLabelValues("transport_failed").Inc()
		logging.Warn().Err(transportErr).
			Str("participant_id", participant.ID.String()).
			Str("message_id", msg.ID.String()).
			Msg("[OutboundRelay] Stored message was not fully delivered")
	} else {
		metrics.OutboundMessages.WithLabelValues("delivered").Inc()
	}

	r.live.BroadcastNewMessage(msg)
	return &SendResult{Message: msg, TransportError: transportErr}, nil
}
