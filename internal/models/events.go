package models

// PayloadKind classifies an inbound platform event.
type PayloadKind string

const (
	PayloadText     PayloadKind = "text"
	PayloadPhoto    PayloadKind = "photo"
	PayloadVideo    PayloadKind = "video"
	PayloadVoice    PayloadKind = "voice"
	PayloadDocument PayloadKind = "document"
)

// EventSender is the platform user behind an inbound event.
type EventSender struct {
	ID        string // Platform user id; empty when the platform did not supply one
	ChatID    string // Conversation the event arrived in
	FirstName string
	LastName  string
	Username  string
}

// MediaVariant is one rendition of an inbound media payload.
type MediaVariant struct {
	FileRef  string // Platform file reference passed back to FetchFile
	Width    int
	Height   int
	FileSize int64
}

// MediaRef points at the media payload of an inbound event.
type MediaRef struct {
	Variants []MediaVariant
	FileName string
	MimeType string
}

// Primary returns the largest variant: greatest pixel area, then byte size,
// then the last listed (platforms list renditions smallest first).
func (m *MediaRef) Primary() (MediaVariant, bool) {
	if m == nil || len(m.Variants) == 0 {
		return MediaVariant{}, false
	}
	best := m.Variants[0]
	for _, v := range m.Variants[1:] {
		area, bestArea := v.Width*v.Height, best.Width*best.Height
		switch {
		case area > bestArea:
			best = v
		case area == bestArea && v.FileSize >= best.FileSize:
			best = v
		}
	}
	return best, true
}

// InboundEvent is a platform event normalized for the inbound relay.
type InboundEvent struct {
	Platform  string
	MessageID string // Platform message id, becomes Message.ExternalID
	Sender    EventSender
	Kind      PayloadKind
	Command   string // Bot command without the leading slash, e.g. "start"
	Text      string // Message text, or the caption for media
	Media     *MediaRef
}
