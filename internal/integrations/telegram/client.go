// Package telegram adapts the Telegram Bot API to the platform Client contract
// and feeds long-polled updates into the inbound relay.
package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chatrelay-backend/internal/integrations"
	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/models"
)

// PlatformName is the registry key for this adapter.
const PlatformName = "telegram"

// botAPI is the part of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetMe() (tgbotapi.User, error)
}

// Client talks to one bot.
type Client struct {
	bot        botAPI
	downloader *integrations.Downloader
}

var _ integrations.Client = (*Client)(nil)

// New connects to the Bot API with token.
func New(token string, downloader *integrations.Downloader) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	logging.Info().Str("bot", bot.Self.UserName).Msg("[Telegram] Authorized bot")
	return newClient(bot, downloader), nil
}

func newClient(bot botAPI, downloader *integrations.Downloader) *Client {
	if downloader == nil {
		downloader = integrations.NewDownloader(0)
	}
	return &Client{bot: bot, downloader: downloader}
}

func (c *Client) Name() string { return PlatformName }

func (c *Client) SendText(ctx context.Context, address, text string, opts integrations.SendOptions) (string, error) {
	chatID, err := parseChatID(address)
	if err != nil {
		return "", err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo(opts.ReplyTo)
	return c.send(ctx, msg)
}

func (c *Client) SendAttachment(ctx context.Context, address string, att models.Attachment, opts integrations.SendOptions) (string, error) {
	chatID, err := parseChatID(address)
	if err != nil {
		return "", err
	}
	file := tgbotapi.FileURL(att.URL)
	reply := replyTo(opts.ReplyTo)

	var cfg tgbotapi.Chattable
	switch att.Type {
	case models.AttachmentImage:
		photo := tgbotapi.NewPhoto(chatID, file)
		photo.Caption = opts.Caption
		photo.ReplyToMessageID = reply
		cfg = photo
	case models.AttachmentVideo:
		video := tgbotapi.NewVideo(chatID, file)
		video.Caption = opts.Caption
		video.ReplyToMessageID = reply
		cfg = video
	case models.AttachmentAudio:
		audio := tgbotapi.NewAudio(chatID, file)
		audio.Caption = opts.Caption
		audio.ReplyToMessageID = reply
		cfg = audio
	case models.AttachmentFile:
		doc := tgbotapi.NewDocument(chatID, file)
		doc.Caption = opts.Caption
		doc.ReplyToMessageID = reply
		cfg = doc
	default:
		return "", fmt.Errorf("%w: %q", integrations.ErrUnsupportedAttachment, att.Type)
	}
	return c.send(ctx, cfg)
}

func (c *Client) send(ctx context.Context, cfg tgbotapi.Chattable) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", integrations.ErrTransport, err)
	}
	sent, err := c.bot.Send(cfg)
	if err != nil {
		return "", fmt.Errorf("%w: telegram send: %v", integrations.ErrTransport, err)
	}
	return strconv.Itoa(sent.MessageID), nil
}

func (c *Client) DeleteMessage(ctx context.Context, address, externalID string) error {
	chatID, err := parseChatID(address)
	if err != nil {
		return err
	}
	messageID, err := strconv.Atoi(externalID)
	if err != nil {
		return fmt.Errorf("%w: invalid telegram message id %q", integrations.ErrTransport, externalID)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", integrations.ErrTransport, err)
	}
	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("%w: telegram delete: %v", integrations.ErrTransport, err)
	}
	return nil
}

// FetchFile resolves a file id to its download URL and fetches the bytes.
func (c *Client) FetchFile(ctx context.Context, fileRef string) ([]byte, error) {
	url, err := c.bot.GetFileDirectURL(fileRef)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving telegram file: %v", integrations.ErrTransport, err)
	}
	return c.downloader.Get(ctx, url)
}

func (c *Client) TestConnection(ctx context.Context) (*integrations.ConnectionResult, error) {
	me, err := c.bot.GetMe()
	if err != nil {
		return &integrations.ConnectionResult{
			Success: false,
			Message: "Telegram API Error: " + err.Error(),
		}, nil
	}
	return &integrations.ConnectionResult{
		Success: true,
		Message: fmt.Sprintf("Connected to Telegram as bot '%s' (ID: %d)", me.UserName, me.ID),
		Details: map[string]interface{}{
			"bot_name":    me.UserName,
			"bot_user_id": me.ID,
		},
	}, nil
}

func parseChatID(address string) (int64, error) {
	id, err := strconv.ParseInt(address, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid telegram chat id %q", integrations.ErrTransport, address)
	}
	return id, nil
}

// replyTo degrades to no reply when the hint is not a telegram message id.
func replyTo(hint string) int {
	if hint == "" {
		return 0
	}
	id, err := strconv.Atoi(hint)
	if err != nil {
		return 0
	}
	return id
}
