package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/models"
	"chatrelay-backend/internal/store"
	"chatrelay-backend/internal/validation"
)

// ErrValidation is returned for input the caller must fix; it is never retried.
var ErrValidation = errors.New("input validation failed")

// defaultFirstName is used when the platform supplies no first name.
const defaultFirstName = "User"

// ParticipantProfile carries the mutable display fields refreshed on every inbound event.
type ParticipantProfile struct {
	ChatID    string
	FirstName string
	LastName  string
	Username  string
}

// ConversationService owns participant identity and message invariants on top
// of the Store.
type ConversationService struct {
	store store.Store
	now   func() time.Time
}

// NewConversationService creates a new ConversationService.
func NewConversationService(s store.Store) *ConversationService {
	return &ConversationService{store: s, now: time.Now}
}

// FindOrCreateParticipant returns the participant for identity, creating it if
// absent, and refreshes its profile and lastActiveAt. A concurrent creation is
// detected through the uniqueness constraint and resolved by re-querying.
func (s *ConversationService) FindOrCreateParticipant(ctx context.Context, identity string, profile ParticipantProfile) (*models.Participant, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, fmt.Errorf("%w: participant identity is required", ErrValidation)
	}
	if profile.FirstName == "" {
		profile.FirstName = defaultFirstName
	}
	if profile.ChatID == "" {
		profile.ChatID = identity
	}
	now := s.now()

	existing, err := s.store.GetParticipantByIdentity(ctx, identity)
	switch {
	case err == nil:
		return s.refresh(ctx, existing, profile, now)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to look up participant: %w", err)
	}

	created, err := s.store.CreateParticipant(ctx, store.CreateParticipantParams{
		Identity:  identity,
		ChatID:    profile.ChatID,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Username:  profile.Username,
		ActiveAt:  now,
	})
	if err == nil {
		logging.Info().Str("participant_id", created.ID.String()).Str("identity", identity).Msg("[ConversationService] Created participant")
		return created, nil
	}
	if !errors.Is(err, store.ErrConflict) {
		return nil, fmt.Errorf("failed to create participant: %w", err)
	}

	// Lost the creation race; the winner's record is authoritative.
	logging.Debug().Str("identity", identity).Msg("[ConversationService] Participant creation conflicted, re-querying")
	existing, err = s.store.GetParticipantByIdentity(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to re-query participant after conflict: %w", err)
	}
	return s.refresh(ctx, existing, profile, now)
}

func (s *ConversationService) refresh(ctx context.Context, p *models.Participant, profile ParticipantProfile, at time.Time) (*models.Participant, error) {
	updated, err := s.store.UpdateParticipantProfile(ctx, p.ID, store.ProfileParams{
		ChatID:    profile.ChatID,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Username:  profile.Username,
		ActiveAt:  at,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refresh participant: %w", err)
	}
	return updated, nil
}

// GetParticipant returns store.ErrNotFound for unknown ids.
func (s *ConversationService) GetParticipant(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	return s.store.GetParticipant(ctx, id)
}

// ListParticipants returns participants by recency with their latest message and unread count.
func (s *ConversationService) ListParticipants(ctx context.Context) ([]models.ParticipantSummary, error) {
	items, err := s.store.ListParticipantsByRecency(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	if items == nil {
		items = []models.ParticipantSummary{}
	}
	return items, nil
}

// ListMessages returns a participant's messages ascending by creation time.
func (s *ConversationService) ListMessages(ctx context.Context, participantID uuid.UUID) ([]models.Message, error) {
	if _, err := s.store.GetParticipant(ctx, participantID); err != nil {
		return nil, err
	}
	items, err := s.store.ListMessages(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if items == nil {
		items = []models.Message{}
	}
	return items, nil
}

// CreateMessage stores a message. A message needs text or at least one attachment.
func (s *ConversationService) CreateMessage(ctx context.Context, arg store.CreateMessageParams) (*models.Message, error) {
	if arg.Text != nil && strings.TrimSpace(*arg.Text) == "" {
		arg.Text = nil
	}
	if arg.Text == nil && len(arg.Attachments) == 0 {
		return nil, fmt.Errorf("%w: message needs text or at least one attachment", ErrValidation)
	}
	for i := range arg.Attachments {
		if err := validation.ValidateStruct(arg.Attachments[i]); err != nil {
			return nil, fmt.Errorf("%w: attachment %d: %v", ErrValidation, i, err)
		}
	}
	m, err := s.store.CreateMessage(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return m, nil
}

// GetMessage returns store.ErrNotFound for unknown ids.
func (s *ConversationService) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	return s.store.GetMessage(ctx, id)
}

// MarkParticipantMessagesRead is idempotent; a repeat call returns 0.
func (s *ConversationService) MarkParticipantMessagesRead(ctx context.Context, participantID uuid.UUID) (int64, error) {
	if _, err := s.store.GetParticipant(ctx, participantID); err != nil {
		return 0, err
	}
	n, err := s.store.MarkParticipantMessagesRead(ctx, participantID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return n, nil
}

// DeleteMessage removes a message and returns its last state.
func (s *ConversationService) DeleteMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	return s.store.DeleteMessage(ctx, id)
}

// Ping reports whether persistence is reachable.
func (s *ConversationService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
