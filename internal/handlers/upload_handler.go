package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"chatrelay-backend/internal/blob"
	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/models"
	"chatrelay-backend/pkg/httputil"
)

// BlobUploader stores admin media before it is sent as an attachment.
type BlobUploader interface {
	Upload(ctx context.Context, data []byte, kind blob.Kind, opts blob.UploadOptions) (*blob.Result, error)
}

// UploadHandler serves POST /v1/uploads.
type UploadHandler struct {
	blobs             BlobUploader
	maxBytes          int64
	imageMaxDimension int
}

// NewUploadHandler creates the handler. blobs may be nil when no blob store is
// configured; uploads then answer 503.
func NewUploadHandler(blobs BlobUploader, maxBytes int64, imageMaxDimension int) *UploadHandler {
	return &UploadHandler{blobs: blobs, maxBytes: maxBytes, imageMaxDimension: imageMaxDimension}
}

// HandleUpload stores the multipart "file" field and describes the result.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "Media uploads are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, "Multipart field 'file' is required")
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, "File is too large")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}
	if len(data) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "File is empty")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	attKind, blobKind := blob.Classify(mimeType)

	name := filepath.Base(header.Filename)
	if name == "." || name == "/" {
		name = "upload"
	}
	opts := blob.UploadOptions{FileName: name}
	if blobKind == blob.KindImage {
		opts.MaxDimension = h.imageMaxDimension
	}

	res, err := h.blobs.Upload(r.Context(), data, blobKind, opts)
	if err != nil {
		logging.Error().Err(err).Str("filename", header.Filename).Str("mime_type", mimeType).Msg("[UploadHandler] Upload failed")
		httputil.RespondError(w, http.StatusBadGateway, "Failed to store file")
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, models.UploadResponse{
		Type:     attKind,
		URL:      res.URL,
		Filename: opts.FileName,
		FileSize: int64(len(data)),
		MimeType: mimeType,
	})
}
