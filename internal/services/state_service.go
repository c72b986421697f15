package services

import (
	"context"

	"github.com/google/uuid"

	"chatrelay-backend/internal/integrations"
	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/models"
)

// deletionPreviewRunes bounds the text preview in deletion notices.
const deletionPreviewRunes = 30

// StateService applies admin-driven read and delete transitions and mirrors
// deletions to the platform.
type StateService struct {
	conv     *ConversationService
	platform integrations.Client
	live     Broadcaster
}

// NewStateService creates a new StateService.
func NewStateService(conv *ConversationService, platform integrations.Client, live Broadcaster) *StateService {
	return &StateService{conv: conv, platform: platform, live: live}
}

// MarkRead marks every unread participant message in the conversation as read.
func (s *StateService) MarkRead(ctx context.Context, participantID uuid.UUID) (int64, error) {
	n, err := s.conv.MarkParticipantMessagesRead(ctx, participantID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.live.BroadcastMessagesRead(participantID.String(), n)
	}
	return n, nil
}

// DeleteMessage removes the message. A message the platform knows about is
// deleted there too; a participant message the platform never echoed gets a
// notice instead. Both outward steps are best-effort.
func (s *StateService) DeleteMessage(ctx context.Context, messageID uuid.UUID) (*models.Message, error) {
	snapshot, err := s.conv.DeleteMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("message_id", messageID.String()).Bool("from_admin", snapshot.IsFromAdmin).Msg("[StateService] Message deleted")

	participant, err := s.conv.GetParticipant(ctx, snapshot.ParticipantID)
	if err != nil {
		logging.Warn().Err(err).Str("participant_id", snapshot.ParticipantID.String()).Msg("[StateService] Owner lookup failed, skipping platform side effects")
	} else {
		address := participant.Address()
		switch {
		case snapshot.HasExternalID():
			BestEffort(ctx, "platform_delete", func(ctx context.Context) error {
				return s.platform.DeleteMessage(ctx, address, *snapshot.ExternalID)
			})
		case !snapshot.IsFromAdmin:
			BestEffort(ctx, "deletion_notice", func(ctx context.Context) error {
				_, err := s.platform.SendText(ctx, address, DeletionNotice(snapshot), integrations.SendOptions{})
				return err
			})
		}
	}

	s.live.BroadcastMessageDeleted(snapshot)
	return snapshot, nil
}

// DeletionNotice is the text sent to a participant when an admin deletes one of
// their messages.
func DeletionNotice(m *models.Message) string {
	preview := m.Body()
	if preview == "" && len(m.Attachments) > 0 {
		preview = "[" + string(m.Attachments[0].Type) + "]"
	}
	runes := []rune(preview)
	if len(runes) > deletionPreviewRunes {
		preview = string(runes[:deletionPreviewRunes]) + "..."
	}
	return `Admin deleted a message: "` + preview + `"`
}
