package store

import (
	"context"

	"github.com/google/uuid"

	"chatrelay-backend/internal/models"
)

// Unavailable stands in when the initial connection failed outside production.
// The process keeps serving and every persistence call fails individually.
type Unavailable struct {
	Cause error
}

var _ Store = Unavailable{}

func (u Unavailable) err() error {
	if u.Cause == nil {
		return ErrUnavailable
	}
	return &unavailableError{cause: u.Cause}
}

type unavailableError struct{ cause error }

func (e *unavailableError) Error() string { return ErrUnavailable.Error() + ": " + e.cause.Error() }
func (e *unavailableError) Is(target error) bool { return target == ErrUnavailable }
func (e *unavailableError) Unwrap() error        { return e.cause }

func (u Unavailable) GetParticipant(context.Context, uuid.UUID) (*models.Participant, error) {
	return nil, u.err()
}

func (u Unavailable) GetParticipantByIdentity(context.Context, string) (*models.Participant, error) {
	return nil, u.err()
}

func (u Unavailable) CreateParticipant(context.Context, CreateParticipantParams) (*models.Participant, error) {
	return nil, u.err()
}

func (u Unavailable) UpdateParticipantProfile(context.Context, uuid.UUID, ProfileParams) (*models.Participant, error) {
	return nil, u.err()
}

func (u Unavailable) ListParticipantsByRecency(context.Context) ([]models.ParticipantSummary, error) {
	return nil, u.err()
}

func (u Unavailable) CreateMessage(context.Context, CreateMessageParams) (*models.Message, error) {
	return nil, u.err()
}

func (u Unavailable) GetMessage(context.Context, uuid.UUID) (*models.Message, error) {
	return nil, u.err()
}

func (u Unavailable) ListMessages(context.Context, uuid.UUID) ([]models.Message, error) {
	return nil, u.err()
}

func (u Unavailable) MarkParticipantMessagesRead(context.Context, uuid.UUID) (int64, error) {
	return 0, u.err()
}

func (u Unavailable) DeleteMessage(context.Context, uuid.UUID) (*models.Message, error) {
	return nil, u.err()
}

func (u Unavailable) Ping(context.Context) error { return u.err() }

func (u Unavailable) Close() {}
