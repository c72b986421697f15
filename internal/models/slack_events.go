package models

// SlackEventPayload represents the overall structure of an event callback from Slack.
type SlackEventPayload struct {
	Token          string          `json:"token"`
	TeamID         string          `json:"team_id"`
	APIAppID       string          `json:"api_app_id"`
	Event          SlackEvent      `json:"event"`
	Type           string          `json:"type"` // e.g., "event_callback"
	EventID        string          `json:"event_id"`
	EventTime      int64           `json:"event_time"`
	Authorizations []Authorization `json:"authorizations"`
}

// SlackEvent represents the actual event details within the payload.
type SlackEvent struct {
	User        string      `json:"user"` // User ID of the sender
	Type        string      `json:"type"` // e.g., "message"
	Subtype     string      `json:"subtype,omitempty"`
	BotID       string      `json:"bot_id,omitempty"`
	Text        string      `json:"text"`
	Timestamp   string      `json:"ts"`
	ThreadTs    string      `json:"thread_ts,omitempty"`
	ClientMsgID string      `json:"client_msg_id"`
	Team        string      `json:"team"`
	Channel     string      `json:"channel"`
	EventTs     string      `json:"event_ts"`
	ChannelType string      `json:"channel_type"` // "im" for direct messages
	Files       []SlackFile `json:"files,omitempty"`
}

// SlackFile is a file shared in a message event.
type SlackFile struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Mimetype           string `json:"mimetype"`
	Filetype           string `json:"filetype"`
	Size               int64  `json:"size"`
	URLPrivateDownload string `json:"url_private_download"`
	OriginalW          int    `json:"original_w,omitempty"`
	OriginalH          int    `json:"original_h,omitempty"`
}

// Authorization represents an authorization entry in the Slack event payload.
type Authorization struct {
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"` // User ID of the bot/app
	IsBot  bool   `json:"is_bot"`
}

// SlackChallengeRequest is used for Slack's URL verification.
type SlackChallengeRequest struct {
	Token     string `json:"token"`
	Challenge string `json:"challenge"`
	Type      string `json:"type"` // "url_verification"
}
