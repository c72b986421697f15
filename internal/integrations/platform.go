// Package integrations defines the messaging platform contract shared by the
// relays and the adapters that implement it.
package integrations

import (
	"context"
	"errors"

	"chatrelay-backend/internal/models"
)

// ErrTransport wraps every failure talking to a messaging platform.
var ErrTransport = errors.New("platform transport error")

// ErrUnsupportedAttachment is returned for attachment kinds a platform cannot send.
var ErrUnsupportedAttachment = errors.New("unsupported attachment kind")

// SendOptions carries optional per-send hints.
type SendOptions struct {
	ReplyTo string // External id of the message being replied to
	Caption string
}

// ConnectionResult is the outcome of a platform credential check.
type ConnectionResult struct {
	Success bool
	Message string
	Details map[string]interface{}
}

// Client is a constructed platform connection. Addresses are the participant's
// chat address; returned strings are platform-assigned message ids.
type Client interface {
	Name() string
	SendText(ctx context.Context, address, text string, opts SendOptions) (string, error)
	SendAttachment(ctx context.Context, address string, att models.Attachment, opts SendOptions) (string, error)
	DeleteMessage(ctx context.Context, address, externalID string) error
	// FetchFile downloads the bytes behind a platform file reference.
	FetchFile(ctx context.Context, fileRef string) ([]byte, error)
	TestConnection(ctx context.Context) (*ConnectionResult, error)
}
