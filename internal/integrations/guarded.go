package integrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/metrics"
	"chatrelay-backend/internal/models"
)

// BreakerConfig tunes the circuit breaker around a platform client.
type BreakerConfig struct {
	FailureThreshold uint32        // Consecutive failures that open the circuit
	MaxRequests      uint32        // Probes allowed while half-open
	Interval         time.Duration // Closed-state counter reset period
	Timeout          time.Duration // Open-state duration before probing
}

// DefaultBreakerConfig returns the production settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
	}
}

// Guarded wraps a Client so that a dead platform fails fast instead of
// holding every relay call until its own timeout.
type Guarded struct {
	inner Client
	cb    *gobreaker.CircuitBreaker[string]
}

var _ Client = (*Guarded)(nil)

// NewGuarded decorates client with a circuit breaker.
func NewGuarded(client Client, cfg BreakerConfig) *Guarded {
	name := "platform_" + client.Name()
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// Rejected attachments say nothing about platform health.
			return err == nil || errors.Is(err, ErrUnsupportedAttachment)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[Guarded] Circuit breaker state changed")
		},
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return &Guarded{inner: client, cb: gobreaker.NewCircuitBreaker[string](settings)}
}

func (g *Guarded) Name() string { return g.inner.Name() }

func (g *Guarded) execute(fn func() (string, error)) (string, error) {
	out, err := g.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %s: %v", ErrTransport, g.inner.Name(), err)
	}
	return out, err
}

func (g *Guarded) SendText(ctx context.Context, address, text string, opts SendOptions) (string, error) {
	return g.execute(func() (string, error) {
		return g.inner.SendText(ctx, address, text, opts)
	})
}

func (g *Guarded) SendAttachment(ctx context.Context, address string, att models.Attachment, opts SendOptions) (string, error) {
	return g.execute(func() (string, error) {
		return g.inner.SendAttachment(ctx, address, att, opts)
	})
}

func (g *Guarded) DeleteMessage(ctx context.Context, address, externalID string) error {
	_, err := g.execute(func() (string, error) {
		return "", g.inner.DeleteMessage(ctx, address, externalID)
	})
	return err
}

func (g *Guarded) FetchFile(ctx context.Context, fileRef string) ([]byte, error) {
	var data []byte
	_, err := g.execute(func() (string, error) {
		var ferr error
		data, ferr = g.inner.FetchFile(ctx, fileRef)
		return "", ferr
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// TestConnection bypasses the breaker so operators can probe a tripped platform.
func (g *Guarded) TestConnection(ctx context.Context) (*ConnectionResult, error) {
	return g.inner.TestConnection(ctx)
}

// State reports the breaker state.
func (g *Guarded) State() gobreaker.State {
	return g.cb.State()
}
