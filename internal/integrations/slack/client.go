// Package slack adapts the Slack Web API and Events API to the platform
// Client contract.
package slack

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"chatrelay-backend/internal/integrations"
	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/models"
)

// PlatformName is the registry key for this adapter.
const PlatformName = "slack"

// Config holds the bot credentials.
type Config struct {
	BotToken      string
	SigningSecret string
	APIURL        string // Overrides the Slack API base URL; empty for production
	MaxFileBytes  int64
}

// Client posts into Slack conversations as the bot user.
type Client struct {
	api          *slack.Client
	maxFileBytes int64
}

var _ integrations.Client = (*Client)(nil)

// New creates a Slack client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("slack bot token is required")
	}
	var opts []slack.Option
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}
	maxBytes := cfg.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = integrations.DefaultMaxDownload
	}
	return &Client{api: slack.New(cfg.BotToken, opts...), maxFileBytes: maxBytes}, nil
}

func (c *Client) Name() string { return PlatformName }

// SendText posts text to a conversation. A reply hint threads the message.
func (c *Client) SendText(ctx context.Context, address, text string, opts integrations.SendOptions) (string, error) {
	msgOptions := []slack.MsgOption{
		slack.MsgOptionText(text, false),
	}
	return c.post(ctx, address, opts.ReplyTo, msgOptions)
}

// SendAttachment posts media by URL: images render inline as an image block,
// other kinds as a link.
func (c *Client) SendAttachment(ctx context.Context, address string, att models.Attachment, opts integrations.SendOptions) (string, error) {
	label := att.Filename
	if label == "" {
		label = string(att.Type)
	}

	var msgOptions []slack.MsgOption
	switch att.Type {
	case models.AttachmentImage:
		var title *slack.TextBlockObject
		if opts.Caption != "" {
			title = slack.NewTextBlockObject(slack.PlainTextType, opts.Caption, false, false)
		}
		msgOptions = append(msgOptions,
			slack.MsgOptionText(label, false),
			slack.MsgOptionBlocks(slack.NewImageBlock(att.URL, label, "", title)),
		)
	case models.AttachmentVideo, models.AttachmentAudio, models.AttachmentFile:
		text := fmt.Sprintf("<%s|%s>", att.URL, label)
		if opts.Caption != "" {
			text = opts.Caption + "\n" + text
		}
		msgOptions = append(msgOptions, slack.MsgOptionText(text, false))
	default:
		return "", fmt.Errorf("%w: %q", integrations.ErrUnsupportedAttachment, att.Type)
	}
	return c.post(ctx, address, opts.ReplyTo, msgOptions)
}

func (c *Client) post(ctx context.Context, channelID, threadTs string, msgOptions []slack.MsgOption) (string, error) {
	if threadTs != "" {
		msgOptions = append(msgOptions, slack.MsgOptionTS(threadTs))
	}
	_, ts, err := c.api.PostMessageContext(ctx, channelID, msgOptions...)
	if err != nil {
		return "", fmt.Errorf("%w: failed to post message to Slack channel %s: %v", integrations.ErrTransport, channelID, err)
	}
	return ts, nil
}

func (c *Client) DeleteMessage(ctx context.Context, address, externalID string) error {
	if _, _, err := c.api.DeleteMessageContext(ctx, address, externalID); err != nil {
		return fmt.Errorf("%w: failed to delete Slack message %s: %v", integrations.ErrTransport, externalID, err)
	}
	return nil
}

// FetchFile downloads a private file URL with the bot token.
func (c *Client) FetchFile(ctx context.Context, fileRef string) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.api.GetFileContext(ctx, fileRef, &buf); err != nil {
		return nil, fmt.Errorf("%w: failed to download Slack file: %v", integrations.ErrTransport, err)
	}
	if int64(buf.Len()) > c.maxFileBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", integrations.ErrTransport, c.maxFileBytes)
	}
	return buf.Bytes(), nil
}

// EnrichSender fills display names from users.info. Events carry only the user id.
func (c *Client) EnrichSender(ctx context.Context, sender *models.EventSender) {
	if sender.ID == "" {
		return
	}
	user, err := c.api.GetUserInfoContext(ctx, sender.ID)
	if err != nil {
		logging.Warn().Err(err).Str("user", sender.ID).Msg("[Slack] users.info failed, falling back to user id")
		sender.FirstName = sender.ID
		return
	}
	sender.FirstName = user.Profile.FirstName
	sender.LastName = user.Profile.LastName
	sender.Username = user.Name
	if sender.FirstName == "" {
		sender.FirstName = firstNonEmpty(user.RealName, user.Profile.DisplayName, user.Name, sender.ID)
	}
}

// TestConnection verifies the bot token with auth.test.
func (c *Client) TestConnection(ctx context.Context) (*integrations.ConnectionResult, error) {
	authTestResponse, err := c.api.AuthTestContext(ctx)
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "invalid_auth") {
			return &integrations.ConnectionResult{
				Success: false,
				Message: "Slack API Error: Invalid authentication token (bot_token).",
			}, nil
		} else if strings.Contains(errStr, "not_authed") {
			return &integrations.ConnectionResult{
				Success: false,
				Message: "Slack API Error: Not authenticated (check token scopes?).",
			}, nil
		}
		logging.Error().Err(err).Msg("[Slack] TestConnection: Unhandled Slack API error")
		return nil, fmt.Errorf("failed during Slack connection test (AuthTest): %w", err)
	}

	return &integrations.ConnectionResult{
		Success: true,
		Message: fmt.Sprintf("Successfully connected to Slack workspace '%s' and verified token for Bot '%s' (ID: %s)", authTestResponse.Team, authTestResponse.User, authTestResponse.UserID),
		Details: map[string]interface{}{
			"bot_name":    authTestResponse.User,
			"bot_user_id": authTestResponse.UserID,
			"team_id":     authTestResponse.TeamID,
		},
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
