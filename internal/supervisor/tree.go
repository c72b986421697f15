package supervisor

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"

	"chatrelay-backend/internal/logging"
)

// TreeConfig holds supervisor tree configuration. Zero values take suture's defaults.
type TreeConfig struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultTreeConfig returns suture's built-in defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is the process supervisor. It has two layers:
//   - messaging: the live-sync hub and the platform event source
//   - api: the HTTP server
//
// A crash in the messaging layer restarts only that layer.
type Tree struct {
	root      *suture.Supervisor
	messaging *suture.Supervisor
	api       *suture.Supervisor
	config    TreeConfig
}

// NewTree creates the supervisor tree.
func NewTree(config TreeConfig) *Tree {
	def := DefaultTreeConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = def.FailureDecay
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = def.FailureBackoff
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = def.ShutdownTimeout
	}

	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	rootSpec := childSpec
	rootSpec.EventHook = logEvent

	root := suture.New("chatrelay", rootSpec)
	messaging := suture.New("messaging-layer", childSpec)
	api := suture.New("api-layer", childSpec)
	root.Add(messaging)
	root.Add(api)

	return &Tree{root: root, messaging: messaging, api: api, config: config}
}

// AddMessagingService adds the hub or an event source.
func (t *Tree) AddMessagingService(svc suture.Service) suture.ServiceToken {
	return t.messaging.Add(svc)
}

// AddAPIService adds the HTTP server.
func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the tree until ctx is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed the shutdown timeout.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

func logEvent(ev suture.Event) {
	switch e := ev.(type) {
	case suture.EventServicePanic:
		logging.Error().
			Str("supervisor", e.SupervisorName).
			Str("service", e.ServiceName).
			Str("panic", e.PanicMsg).
			Str("stacktrace", e.Stacktrace).
			Msg("[Supervisor] Service panicked")
	case suture.EventServiceTerminate:
		logging.Warn().
			Str("supervisor", e.SupervisorName).
			Str("service", e.ServiceName).
			Interface("error", e.Err).
			Bool("restarting", e.Restarting).
			Msg("[Supervisor] Service terminated")
	case suture.EventBackoff:
		logging.Warn().Str("supervisor", e.SupervisorName).Msg("[Supervisor] Entering backoff")
	case suture.EventResume:
		logging.Info().Str("supervisor", e.SupervisorName).Msg("[Supervisor] Resuming after backoff")
	case suture.EventStopTimeout:
		logging.Error().
			Str("supervisor", e.SupervisorName).
			Str("service", e.ServiceName).
			Msg("[Supervisor] Service did not stop in time")
	default:
		logging.Debug().Fields(ev.Map()).Msg("[Supervisor] " + ev.String())
	}
}
