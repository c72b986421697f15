// Package blob stores media payloads in an external blob store and hands back
// durable URLs for message attachments.
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chatrelay-backend/internal/models"
)

// ErrUpload wraps every failure from the blob store. Uploads never partially succeed.
var ErrUpload = errors.New("blob upload failed")

// Kind selects the blob store resource type.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video" // Video and audio both live under the video resource
	KindRaw   Kind = "raw"
)

// UploadOptions tunes an upload for its media kind.
type UploadOptions struct {
	MaxDimension int    // Images: bound both sides, preserving aspect ratio. 0 means unbounded
	Format       string // Target format, e.g. "mp3" for voice notes
	EagerFormat  string // Transcoded variant requested alongside the original
	FileName     string
}

// Result describes a stored payload.
type Result struct {
	URL      string
	PublicID string
	Bytes    int64
	Format   string
}

// Store uploads binary payloads.
type Store interface {
	Upload(ctx context.Context, data []byte, kind Kind, opts UploadOptions) (*Result, error)
}

// Classify maps a declared media type to an attachment kind and the resource
// the payload is uploaded under.
func Classify(mimeType string) (models.AttachmentKind, Kind) {
	mt := strings.ToLower(mimeType)
	switch {
	case strings.HasPrefix(mt, "image/"):
		return models.AttachmentImage, KindImage
	case strings.HasPrefix(mt, "video/"):
		return models.AttachmentVideo, KindVideo
	case strings.HasPrefix(mt, "audio/"):
		return models.AttachmentAudio, KindVideo
	default:
		return models.AttachmentFile, KindRaw
	}
}

// Disabled stands in when no blob store is configured. Every upload fails.
type Disabled struct{}

func (Disabled) Upload(context.Context, []byte, Kind, UploadOptions) (*Result, error) {
	return nil, fmt.Errorf("%w: no blob store configured", ErrUpload)
}
