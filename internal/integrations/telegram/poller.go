package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/models"
)

// EventHandler consumes normalized inbound events.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev models.InboundEvent)
}

// Poller long-polls the Bot API and hands each update to the handler in
// arrival order. It implements suture.Service.
type Poller struct {
	client  *Client
	handler EventHandler
	timeout int
}

// NewPoller creates a poller; timeout is the long-poll window in seconds.
func NewPoller(client *Client, handler EventHandler, timeout int) *Poller {
	if timeout <= 0 {
		timeout = 60
	}
	return &Poller{client: client, handler: handler, timeout: timeout}
}

// Serve runs until ctx is cancelled.
func (p *Poller) Serve(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = p.timeout
	updates := p.client.bot.GetUpdatesChan(u)
	logging.Info().Int("timeout", p.timeout).Msg("[Telegram] Polling for updates")

	for {
		select {
		case <-ctx.Done():
			p.client.bot.StopReceivingUpdates()
			logging.Info().Msg("[Telegram] Stopped polling")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			ev, ok := toEvent(update)
			if !ok {
				logging.Debug().Int("update_id", update.UpdateID).Msg("[Telegram] Ignoring unsupported update")
				continue
			}
			p.handler.HandleEvent(ctx, ev)
		}
	}
}

func (p *Poller) String() string { return "telegram-poller" }
