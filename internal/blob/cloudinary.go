package blob

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"

	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/metrics"
)

// uploadAPI is the slice of the Cloudinary SDK the adapter needs.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryConfig holds credentials. URL takes precedence over the discrete fields.
type CloudinaryConfig struct {
	URL       string
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// CloudinaryStore uploads to Cloudinary.
type CloudinaryStore struct {
	api    uploadAPI
	folder string
}

var _ Store = (*CloudinaryStore)(nil)

// NewCloudinaryStore builds a store from credentials.
func NewCloudinaryStore(cfg CloudinaryConfig) (*CloudinaryStore, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if cfg.URL != "" {
		cld, err = cloudinary.NewFromURL(cfg.URL)
	} else {
		cld, err = cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}
	return newCloudinaryStore(&cld.Upload, cfg.Folder), nil
}

func newCloudinaryStore(client uploadAPI, folder string) *CloudinaryStore {
	return &CloudinaryStore{api: client, folder: folder}
}

// Upload stores data under the resource type for kind.
func (s *CloudinaryStore) Upload(ctx context.Context, data []byte, kind Kind, opts UploadOptions) (*Result, error) {
	if len(data) == 0 {
		metrics.BlobUploads.WithLabelValues(string(kind), "error").Inc()
		return nil, fmt.Errorf("%w: empty payload", ErrUpload)
	}

	params := uploadParams(s.folder, kind, opts)
	res, err := s.api.Upload(ctx, bytes.NewReader(data), params)
	if err != nil {
		metrics.BlobUploads.WithLabelValues(string(kind), "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	if res == nil || res.Error.Message != "" || res.SecureURL == "" {
		msg := "no url returned"
		if res != nil && res.Error.Message != "" {
			msg = res.Error.Message
		}
		metrics.BlobUploads.WithLabelValues(string(kind), "error").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUpload, msg)
	}

	metrics.BlobUploads.WithLabelValues(string(kind), "ok").Inc()
	logging.Debug().
		Str("public_id", res.PublicID).
		Str("kind", string(kind)).
		Int("bytes", res.Bytes).
		Msg("[Blob] Upload stored")

	return &Result{
		URL:      res.SecureURL,
		PublicID: res.PublicID,
		Bytes:    int64(res.Bytes),
		Format:   res.Format,
	}, nil
}

// uploadParams translates kind-specific options into Cloudinary parameters.
func uploadParams(folder string, kind Kind, opts UploadOptions) uploader.UploadParams {
	params := uploader.UploadParams{
		Folder:       folder,
		ResourceType: string(kind),
		Overwrite:    api.Bool(false),
	}
	if kind == KindRaw && opts.FileName != "" {
		params.PublicID = rawPublicID(opts.FileName)
	}

	switch kind {
	case KindImage:
		var steps []string
		if opts.MaxDimension > 0 {
			steps = append(steps, fmt.Sprintf("c_limit,w_%d,h_%d", opts.MaxDimension, opts.MaxDimension))
		}
		steps = append(steps, "q_auto,f_auto", "fl_strip_profile")
		params.Transformation = strings.Join(steps, "/")
	case KindVideo:
		if opts.Format != "" {
			params.Format = opts.Format
		}
		if opts.EagerFormat != "" {
			params.Eager = "f_" + opts.EagerFormat
		}
	}
	return params
}

// rawPublicID keeps the readable name and extension of a raw upload but adds
// a random suffix, so equal file names never share an asset.
func rawPublicID(name string) string {
	clean := sanitizeFileName(name)
	ext := path.Ext(clean)
	return strings.TrimSuffix(clean, ext) + "_" + uuid.NewString() + ext
}

func sanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
