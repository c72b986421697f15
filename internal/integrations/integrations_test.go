package integrations

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay-backend/internal/models"
)

type stubClient struct {
	name   string
	err    error
	calls  int
	sendID string
}

func (s *stubClient) Name() string { return s.name }
func (s *stubClient) SendText(context.Context, string, string, SendOptions) (string, error) {
	s.calls++
	return s.sendID, s.err
}
func (s *stubClient) SendAttachment(_ context.Context, _ string, att models.Attachment, _ SendOptions) (string, error) {
	s.calls++
	if att.Type == "sticker" {
		return "", ErrUnsupportedAttachment
	}
	return s.sendID, s.err
}
func (s *stubClient) DeleteMessage(context.Context, string, string) error {
	s.calls++
	return s.err
}
func (s *stubClient) FetchFile(context.Context, string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("bytes"), nil
}
func (s *stubClient) TestConnection(context.Context) (*ConnectionResult, error) {
	return &ConnectionResult{Success: s.err == nil}, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	tg := &stubClient{name: "telegram"}
	r.Register(tg)
	r.Register(&stubClient{name: "slack"})

	got, err := r.Get("telegram")
	require.NoError(t, err)
	assert.Same(t, tg, got)
	assert.Equal(t, []string{"slack", "telegram"}, r.Names())

	_, err = r.Get("discord")
	assert.Error(t, err)
	assert.Panics(t, func() { r.MustGet("discord") })
}

func TestGuardedOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &stubClient{name: "telegram", err: errors.New("connection reset")}
	g := NewGuarded(inner, BreakerConfig{FailureThreshold: 2, MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := g.SendText(ctx, "1", "hi", SendOptions{})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, g.State())

	_, err := g.SendText(ctx, "1", "hi", SendOptions{})
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, 2, inner.calls, "open circuit must not reach the platform")
}

func TestGuardedIgnoresUnsupportedAttachments(t *testing.T) {
	inner := &stubClient{name: "telegram", sendID: "9"}
	g := NewGuarded(inner, BreakerConfig{FailureThreshold: 1, MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute})

	_, err := g.SendAttachment(context.Background(), "1", models.Attachment{Type: "sticker"}, SendOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedAttachment)
	assert.Equal(t, gobreaker.StateClosed, g.State())

	data, err := g.FetchFile(context.Background(), "ref")
	require.NoError(t, err)
	assert.Equal(t, []byte("bytes"), data)
}

func TestDownloader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "Bearer xoxb", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte("payload"))
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 32)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	d := NewDownloader(16)
	d.Header = http.Header{"Authorization": []string{"Bearer xoxb"}}
	ctx := context.Background()

	data, err := d.Get(ctx, srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = d.Get(ctx, srv.URL+"/big")
	assert.ErrorIs(t, err, ErrTransport)

	_, err = d.Get(ctx, srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestOfflineFailsWithTransportError(t *testing.T) {
	o := Offline{Platform: "telegram", Cause: errors.New("bot token missing")}
	ctx := context.Background()

	_, err := o.SendText(ctx, "1", "hi", SendOptions{})
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, o.DeleteMessage(ctx, "1", "2"), ErrTransport)
	assert.Equal(t, "telegram", o.Name())

	res, err := o.TestConnection(ctx)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "bot token missing")
}
