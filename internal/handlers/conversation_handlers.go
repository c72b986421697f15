package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/models"
	"chatrelay-backend/internal/services"
	"chatrelay-backend/pkg/httputil"
)

// ConversationReader lists conversations for the console.
type ConversationReader interface {
	ListParticipants(ctx context.Context) ([]models.ParticipantSummary, error)
	ListMessages(ctx context.Context, participantID uuid.UUID) ([]models.Message, error)
}

// MessageSender relays admin messages to the platform.
type MessageSender interface {
	Send(ctx context.Context, in services.SendInput) (*services.SendResult, error)
}

// StateManager applies read and delete state changes.
type StateManager interface {
	MarkRead(ctx context.Context, participantID uuid.UUID) (int64, error)
	DeleteMessage(ctx context.Context, messageID uuid.UUID) (*models.Message, error)
}

// ConversationHandlers serves the admin conversation API.
type ConversationHandlers struct {
	reader ConversationReader
	sender MessageSender
	state  StateManager
}

func NewConversationHandlers(reader ConversationReader, sender MessageSender, state StateManager) *ConversationHandlers {
	return &ConversationHandlers{reader: reader, sender: sender, state: state}
}

// HandleListUsers handles GET /v1/users, most recently active first.
func (h *ConversationHandlers) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.reader.ListParticipants(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "Users not found")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, users)
}

// HandleListMessages handles GET /v1/users/{userID}/messages.
func (h *ConversationHandlers) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	msgs, err := h.reader.ListMessages(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "User not found")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, msgs)
}

// HandleSendMessage handles POST /v1/users/{userID}/messages. The message is
// stored even when delivery fails; the response then carries platformError.
func (h *ConversationHandlers) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	var req models.SendMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.sender.Send(r.Context(), services.SendInput{
		ParticipantID:    userID,
		Text:             req.Text,
		Attachments:      req.Attachments,
		ReplyToMessageID: req.ReplyToMessageID,
	})
	if err != nil {
		respondServiceError(w, r, err, "User not found")
		return
	}

	resp := models.SendMessageResponse{Message: res.Message}
	if !res.Delivered() {
		resp.PlatformError = res.TransportError.Error()
	}
	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleMarkRead handles PUT /v1/users/{userID}/read.
func (h *ConversationHandlers) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	n, err := h.state.MarkRead(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "User not found")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.MarkReadResponse{Success: true, Count: n})
}

// HandleDeleteMessage handles DELETE /v1/messages/{messageID} and the
// PUT /v1/users/message/{messageID} alias.
func (h *ConversationHandlers) HandleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID, ok := uuidParam(w, r, "messageID")
	if !ok {
		return
	}
	if _, err := h.state.DeleteMessage(r.Context(), messageID); err != nil {
		respondServiceError(w, r, err, "Message not found")
		return
	}
	logging.Debug().Str("message_id", messageID.String()).Msg("[ConversationHandlers] Message deleted")
	httputil.RespondJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}
