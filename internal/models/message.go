package models

import (
	"time"

	"github.com/google/uuid"
)

// AttachmentKind is the media class of an attachment.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentVideo AttachmentKind = "video"
	AttachmentAudio AttachmentKind = "audio"
	AttachmentFile  AttachmentKind = "file"
)

// Valid reports whether k is a known kind.
func (k AttachmentKind) Valid() bool {
	switch k {
	case AttachmentImage, AttachmentVideo, AttachmentAudio, AttachmentFile:
		return true
	}
	return false
}

// Attachment is embedded in a Message; it has no identity of its own.
type Attachment struct {
	Type     AttachmentKind `json:"type" validate:"required,oneof=image video audio file"`
	URL      string         `json:"url" validate:"required,url"`
	Filename string         `json:"filename,omitempty"`
	FileSize int64          `json:"fileSize,omitempty"`
	MimeType string         `json:"mimeType,omitempty"`
}

// Reaction is a (symbol, timestamp) pair attached to a message.
type Reaction struct {
	Reaction  string    `json:"reaction"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is one relayed communication unit owned by a single Participant.
type Message struct {
	ID            uuid.UUID    `db:"id" json:"_id"`
	Seq           int64        `db:"seq" json:"-"` // Insertion sequence, breaks createdAt ties
	ParticipantID uuid.UUID    `db:"participant_id" json:"user"`
	ExternalID    *string      `db:"external_id" json:"telegramMessageId,omitempty"`
	IsFromAdmin   bool         `db:"is_from_admin" json:"isFromAdmin"`
	Text          *string      `db:"text" json:"text,omitempty"`
	Attachments   []Attachment `db:"attachments" json:"attachments"`
	Read          bool         `db:"read" json:"read"`
	ReplyToID     *uuid.UUID   `db:"reply_to_id" json:"-"`
	Reactions     []Reaction   `db:"reactions" json:"reactions"`
	Deleted       bool         `db:"deleted" json:"deleted"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updatedAt"`

	// ReplyTo is populated on reads when the referenced message still exists.
	ReplyTo *Message `db:"-" json:"replyTo,omitempty"`
}

// Body returns the text or "" when absent.
func (m *Message) Body() string {
	if m.Text == nil {
		return ""
	}
	return *m.Text
}

// HasExternalID reports whether the message was round-tripped through the platform.
func (m *Message) HasExternalID() bool {
	return m.ExternalID != nil && *m.ExternalID != ""
}
