package models

import (
	"github.com/google/uuid"
)

// --- Request Structs ---

// LoginRequest defines the expected body for the admin login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SendMessageRequest is the admin-authored outbound message.
// At least one of Text or Attachments must be present; that rule is enforced
// by the outbound relay so the same check covers non-HTTP callers.
type SendMessageRequest struct {
	Text             string       `json:"text,omitempty" validate:"max=4096"`
	Attachments      []Attachment `json:"attachments,omitempty" validate:"dive"`
	ReplyToMessageID *uuid.UUID   `json:"replyToMessageId,omitempty"`
}

// --- Response Structs ---

// AdminResponse is the authenticated administrator as returned by the API.
type AdminResponse struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
}

// AuthResponse defines the response body for successful authentication.
type AuthResponse struct {
	Token string        `json:"token"`
	User  AdminResponse `json:"user"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SendMessageResponse is the stored message plus the delivery error, if any.
// PlatformError is set when the message was stored but not delivered.
type SendMessageResponse struct {
	*Message
	PlatformError string `json:"platformError,omitempty"`
}

// MarkReadResponse reports how many messages were flipped to read.
type MarkReadResponse struct {
	Success bool  `json:"success"`
	Count   int64 `json:"count"`
}

// SuccessResponse is a bare acknowledgement.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// UploadResponse describes a file stored in the blob store, ready to be sent
// as an attachment.
type UploadResponse struct {
	Type     AttachmentKind `json:"type"`
	URL      string         `json:"url"`
	Filename string         `json:"filename"`
	FileSize int64          `json:"fileSize"`
	MimeType string         `json:"mimeType"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Store    string `json:"store"`
	Platform string `json:"platform"`
}
