package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"chatrelay-backend/internal/models"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a uniqueness constraint rejects an insert.
var ErrConflict = errors.New("record already exists")

// ErrUnavailable is returned by every call when the process runs without persistence.
var ErrUnavailable = errors.New("store unavailable")

// CreateParticipantParams contains parameters for creating a participant.
type CreateParticipantParams struct {
	Identity  string
	ChatID    string
	FirstName string
	LastName  string
	Username  string
	ActiveAt  time.Time
}

// ProfileParams refreshes a participant's mutable display fields.
type ProfileParams struct {
	ChatID    string
	FirstName string
	LastName  string
	Username  string
	ActiveAt  time.Time
}

// CreateMessageParams contains parameters for creating a message.
type CreateMessageParams struct {
	ParticipantID uuid.UUID
	ExternalID    *string
	IsFromAdmin   bool
	Text          *string
	Attachments   []models.Attachment
	Read          bool
	ReplyToID     *uuid.UUID
}

// Store defines the interface for persistence operations.
// This allows for mocking in tests and switching between backends.
type Store interface {
	// Participant operations
	GetParticipant(ctx context.Context, id uuid.UUID) (*models.Participant, error)
	GetParticipantByIdentity(ctx context.Context, identity string) (*models.Participant, error)
	// CreateParticipant returns ErrConflict when the identity already exists.
	CreateParticipant(ctx context.Context, arg CreateParticipantParams) (*models.Participant, error)
	UpdateParticipantProfile(ctx context.Context, id uuid.UUID, arg ProfileParams) (*models.Participant, error)
	ListParticipantsByRecency(ctx context.Context) ([]models.ParticipantSummary, error)

	// Message operations
	CreateMessage(ctx context.Context, arg CreateMessageParams) (*models.Message, error)
	GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error)
	// ListMessages returns messages ascending by createdAt, then insertion sequence,
	// with ReplyTo populated when the referenced message exists.
	ListMessages(ctx context.Context, participantID uuid.UUID) ([]models.Message, error)
	// MarkParticipantMessagesRead flips unread participant-authored messages and
	// returns how many changed.
	MarkParticipantMessagesRead(ctx context.Context, participantID uuid.UUID) (int64, error)
	// DeleteMessage removes the message and returns its last state.
	DeleteMessage(ctx context.Context, id uuid.UUID) (*models.Message, error)

	Ping(ctx context.Context) error
	Close()
}
