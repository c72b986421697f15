package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant is one remote chat identity relayed to the admin console.
type Participant struct {
	ID           uuid.UUID `db:"id" json:"_id"`
	Identity     string    `db:"identity" json:"telegramId"` // Platform user id, unique and immutable
	ChatID       string    `db:"chat_id" json:"chatId"`      // Conversation address used for replies
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	Username     string    `db:"username" json:"username"`
	LastActiveAt time.Time `db:"last_active_at" json:"lastActive"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Address returns where platform replies for this participant go.
func (p *Participant) Address() string {
	if p.ChatID != "" {
		return p.ChatID
	}
	return p.Identity
}

// FullName joins first and last name.
func (p *Participant) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// ParticipantSummary is a participant row for the console's conversation list.
type ParticipantSummary struct {
	Participant
	LatestMessage *Message `json:"latestMessage"`
	UnreadCount   int64    `json:"unreadCount"`
}
