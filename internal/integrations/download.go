package integrations

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxDownload bounds platform file downloads.
const DefaultMaxDownload = 50 << 20

// Downloader fetches platform-hosted files over HTTP.
type Downloader struct {
	Client   *http.Client
	MaxBytes int64
	Header   http.Header // Extra headers, e.g. a bearer token for private files
}

// NewDownloader returns a Downloader with a bounded timeout and size.
func NewDownloader(maxBytes int64) *Downloader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDownload
	}
	return &Downloader{
		Client:   &http.Client{Timeout: 60 * time.Second},
		MaxBytes: maxBytes,
	}
}

// Get downloads url. Any failure wraps ErrTransport.
func (d *Downloader) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building download request: %v", ErrTransport, err)
	}
	for k, vs := range d.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: downloading file: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: file endpoint returned %d", ErrTransport, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading file body: %v", ErrTransport, err)
	}
	if int64(len(data)) > d.MaxBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrTransport, d.MaxBytes)
	}
	return data, nil
}
