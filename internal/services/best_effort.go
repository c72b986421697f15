package services

import (
	"context"

	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/metrics"
	"chatrelay-backend/internal/models"
)

// BestEffort runs an outward side effect whose failure must not affect the
// caller: the error is logged and counted, never returned.
func BestEffort(ctx context.Context, operation string, fn func(ctx context.Context) error) bool {
	if err := fn(ctx); err != nil {
		metrics.BestEffortFailures.WithLabelValues(operation).Inc()
		logging.Warn().Err(err).Str("operation", operation).Msg("[BestEffort] Side effect failed, continuing")
		return false
	}
	return true
}

// Broadcaster publishes store changes to live admin sessions. Calls never block.
type Broadcaster interface {
	BroadcastNewMessage(m *models.Message)
	BroadcastMessageDeleted(m *models.Message)
	BroadcastMessagesRead(participantID string, count int64)
}
