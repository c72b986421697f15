package integrations

import (
	"context"
	"fmt"

	"chatrelay-backend/internal/models"
)

// Offline stands in for a platform whose client could not be constructed.
// Sends and deletes fail with ErrTransport so messages are still stored.
type Offline struct {
	Platform string
	Cause    error
}

var _ Client = Offline{}

func (o Offline) err() error {
	return fmt.Errorf("%w: %s client offline: %v", ErrTransport, o.Platform, o.Cause)
}

func (o Offline) Name() string { return o.Platform }

func (o Offline) SendText(context.Context, string, string, SendOptions) (string, error) {
	return "", o.err()
}

func (o Offline) SendAttachment(context.Context, string, models.Attachment, SendOptions) (string, error) {
	return "", o.err()
}

func (o Offline) DeleteMessage(context.Context, string, string) error { return o.err() }

func (o Offline) FetchFile(context.Context, string) ([]byte, error) { return nil, o.err() }

func (o Offline) TestConnection(context.Context) (*ConnectionResult, error) {
	return &ConnectionResult{Success: false, Message: o.err().Error()}, nil
}
