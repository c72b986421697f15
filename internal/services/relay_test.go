package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay-backend/internal/blob"
	"chatrelay-backend/internal/integrations"
	"chatrelay-backend/internal/models"
	"chatrelay-backend/internal/store"
	"chatrelay-backend/internal/store/memory"
)

type harness struct {
	conv     *ConversationService
	platform *fakePlatform
	blobs    *fakeBlobs
	live     *fakeLive
	inbound  *InboundRelay
	outbound *OutboundRelay
	state    *StateService
}

func newHarness() *harness {
	h := &harness{
		conv:     NewConversationService(memory.New()),
		platform: newFakePlatform(),
		blobs:    &fakeBlobs{},
		live:     newFakeLive(),
	}
	h.inbound = NewInboundRelay(h.conv, h.platform, h.blobs, h.live, InboundConfig{
		ImageMaxDimension: 1000,
		Greeting:          "Hello %s!",
		EventTimeout:      time.Second,
	})
	h.outbound = NewOutboundRelay(h.conv, h.platform, h.live)
	h.state = NewStateService(h.conv, h.platform, h.live)
	return h
}

func textEvent(sender, messageID, text string) models.InboundEvent {
	return models.InboundEvent{
		Platform:  "telegram",
		MessageID: messageID,
		Sender:    models.EventSender{ID: sender, ChatID: sender, FirstName: "Ann"},
		Kind:      models.PayloadText,
		Text:      text,
	}
}

func onlyParticipant(t *testing.T, h *harness) models.ParticipantSummary {
	t.Helper()
	list, err := h.conv.ListParticipants(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func TestInboundTextCreatesParticipantAndUnreadMessage(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	h.inbound.HandleEvent(ctx, textEvent("12345", "1", "Hello"))

	p := onlyParticipant(t, h)
	assert.Equal(t, "12345", p.Identity)
	assert.Equal(t, int64(1), p.UnreadCount)

	msgs, err := h.conv.ListMessages(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello", msgs[0].Body())
	assert.False(t, msgs[0].IsFromAdmin)
	assert.False(t, msgs[0].Read)
	require.NotNil(t, msgs[0].ExternalID)
	assert.Equal(t, "1", *msgs[0].ExternalID)

	assert.Empty(t, h.platform.texts, "no acknowledgement on success")
	require.Len(t, h.live.created, 1)

	h.inbound.HandleEvent(ctx, textEvent("12345", "2", "Again"))
	p2 := onlyParticipant(t, h)
	assert.Equal(t, p.ID, p2.ID)
	assert.Equal(t, int64(2), p2.UnreadCount)
}

func TestInboundWithoutIdentityApologizes(t *testing.T) {
	h := newHarness()
	ev := textEvent("", "1", "anon")
	ev.Sender.ChatID = "999"

	h.inbound.HandleEvent(context.Background(), ev)

	list, err := h.conv.ListParticipants(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	require.Len(t, h.platform.texts, 1)
	assert.Equal(t, "999", h.platform.texts[0].Address)
	assert.Equal(t, apologyRequest, h.platform.texts[0].Text)
}

func TestInboundPhotoUsesLargestVariant(t *testing.T) {
	h := newHarness()
	h.platform.files["large"] = []byte("big-jpeg")
	ev := textEvent("12345", "7", "caption")
	ev.Kind = models.PayloadPhoto
	ev.Media = &models.MediaRef{Variants: []models.MediaVariant{
		{FileRef: "small", Width: 90, Height: 90, FileSize: 1200},
		{FileRef: "large", Width: 1280, Height: 960, FileSize: 98000},
		{FileRef: "medium", Width: 320, Height: 240, FileSize: 9000},
	}}

	h.inbound.HandleEvent(context.Background(), ev)

	assert.Equal(t, []string{"large"}, h.platform.fetched)
	require.Len(t, h.blobs.calls, 1)
	assert.Equal(t, blob.KindImage, h.blobs.calls[0].Kind)
	assert.Equal(t, 1000, h.blobs.calls[0].Opts.MaxDimension)
	assert.Equal(t, []byte("big-jpeg"), h.blobs.calls[0].Data)

	p := onlyParticipant(t, h)
	msgs, err := h.conv.ListMessages(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Attachments, 1)
	att := msgs[0].Attachments[0]
	assert.Equal(t, models.AttachmentImage, att.Type)
	assert.Equal(t, int64(98000), att.FileSize)
	assert.Equal(t, "caption", msgs[0].Body())
}

func TestInboundMediaFailureApologizesOnce(t *testing.T) {
	tests := []struct {
		name    string
		kind    models.PayloadKind
		breakIt func(h *harness)
		apology string
	}{
		{"upload fails", models.PayloadPhoto, func(h *harness) { h.blobs.err = blob.ErrUpload }, apologyPhoto},
		{"fetch fails", models.PayloadVideo, func(h *harness) { h.platform.fetchErr = integrations.ErrTransport }, apologyVideo},
		{"no variants", models.PayloadDocument, func(h *harness) {}, apologyDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.platform.files["f"] = []byte("x")
			tt.breakIt(h)
			ev := textEvent("12345", "1", "")
			ev.Kind = tt.kind
			ev.Media = &models.MediaRef{Variants: []models.MediaVariant{{FileRef: "f"}}}
			if tt.name == "no variants" {
				ev.Media = &models.MediaRef{}
			}

			h.inbound.HandleEvent(context.Background(), ev)

			require.Len(t, h.platform.texts, 1)
			assert.Equal(t, tt.apology, h.platform.texts[0].Text)
			assert.Equal(t, "12345", h.platform.texts[0].Address)
			p := onlyParticipant(t, h)
			msgs, err := h.conv.ListMessages(context.Background(), p.ID)
			require.NoError(t, err)
			assert.Empty(t, msgs)
			assert.Empty(t, h.live.created)
		})
	}
}

func TestInboundMediaOptionsByKind(t *testing.T) {
	tests := []struct {
		kind     models.PayloadKind
		mime     string
		resource blob.Kind
		attKind  models.AttachmentKind
		check    func(t *testing.T, opts blob.UploadOptions)
	}{
		{models.PayloadVoice, "audio/ogg", blob.KindVideo, models.AttachmentAudio, func(t *testing.T, o blob.UploadOptions) { assert.Equal(t, "mp3", o.Format) }},
		{models.PayloadVideo, "video/mp4", blob.KindVideo, models.AttachmentVideo, func(t *testing.T, o blob.UploadOptions) { assert.Equal(t, "mp4", o.EagerFormat) }},
		{models.PayloadDocument, "image/png", blob.KindImage, models.AttachmentImage, func(t *testing.T, o blob.UploadOptions) { assert.Equal(t, 1000, o.MaxDimension) }},
		{models.PayloadDocument, "application/pdf", blob.KindRaw, models.AttachmentFile, func(t *testing.T, o blob.UploadOptions) { assert.Equal(t, "report.pdf", o.FileName) }},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+" "+tt.mime, func(t *testing.T) {
			h := newHarness()
			h.platform.files["f"] = []byte("data")
			ev := textEvent("1", "1", "")
			ev.Kind = tt.kind
			ev.Media = &models.MediaRef{Variants: []models.MediaVariant{{FileRef: "f"}}, MimeType: tt.mime, FileName: "report.pdf"}

			h.inbound.HandleEvent(context.Background(), ev)

			require.Len(t, h.blobs.calls, 1)
			assert.Equal(t, tt.resource, h.blobs.calls[0].Kind)
			tt.check(t, h.blobs.calls[0].Opts)
			require.Len(t, h.live.created, 1)
			assert.Equal(t, tt.attKind, h.live.created[0].Attachments[0].Type)
		})
	}
}

func TestStartCommandGreetsWithoutStoring(t *testing.T) {
	h := newHarness()
	ev := textEvent("12345", "1", "/start")
	ev.Command = "start"
	ev.Sender.LastName = "Lee"

	h.inbound.HandleEvent(context.Background(), ev)

	p := onlyParticipant(t, h)
	assert.Nil(t, p.LatestMessage)
	require.Len(t, h.platform.texts, 1)
	assert.Equal(t, "Hello Ann Lee!", h.platform.texts[0].Text)
}

func TestOutboundStoresEvenWhenPlatformFails(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p, err := h.conv.FindOrCreateParticipant(ctx, "12345", ParticipantProfile{FirstName: "Ann"})
	require.NoError(t, err)
	h.platform.sendErr = errors.New("bot was blocked by the user")

	res, err := h.outbound.Send(ctx, SendInput{ParticipantID: p.ID, Text: "Hi"})
	require.NoError(t, err)
	require.NotNil(t, res.Message)
	assert.False(t, res.Delivered())
	assert.ErrorIs(t, res.TransportError, integrations.ErrTransport)
	assert.True(t, res.Message.IsFromAdmin)
	assert.Nil(t, res.Message.ExternalID)

	msgs, err := h.conv.ListMessages(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hi", msgs[0].Body())
}

func TestOutboundTextThenAttachmentsWithReplyHint(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p, err := h.conv.FindOrCreateParticipant(ctx, "12345", ParticipantProfile{FirstName: "Ann", ChatID: "chat-9"})
	require.NoError(t, err)
	target, err := h.conv.CreateMessage(ctx, store.CreateMessageParams{ParticipantID: p.ID, Text: strPtr("question"), ExternalID: strPtr("55")})
	require.NoError(t, err)

	res, err := h.outbound.Send(ctx, SendInput{
		ParticipantID: p.ID,
		Text:          "answer",
		Attachments: []models.Attachment{
			{Type: models.AttachmentImage, URL: "https://cdn.example/1.jpg"},
			{Type: models.AttachmentFile, URL: "https://cdn.example/2.pdf", Filename: "2.pdf"},
		},
		ReplyToMessageID: &target.ID,
	})
	require.NoError(t, err)
	assert.True(t, res.Delivered())

	require.Len(t, h.platform.texts, 1)
	assert.Equal(t, "chat-9", h.platform.texts[0].Address)
	assert.Equal(t, "55", h.platform.texts[0].Opts.ReplyTo)
	require.Len(t, h.platform.attachments, 2)
	assert.Equal(t, models.AttachmentImage, h.platform.attachments[0].Attachment.Type)
	assert.Equal(t, models.AttachmentFile, h.platform.attachments[1].Attachment.Type)

	require.NotNil(t, res.Message.ExternalID)
	assert.Equal(t, "1001", *res.Message.ExternalID, "first platform id wins")
	require.Len(t, h.live.created, 1)

	msgs, err := h.conv.ListMessages(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, msgs[1].ReplyTo)
	assert.Equal(t, target.ID, msgs[1].ReplyTo.ID)
}

func TestOutboundValidationAndLookup(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p, err := h.conv.FindOrCreateParticipant(ctx, "1", ParticipantProfile{})
	require.NoError(t, err)

	_, err = h.outbound.Send(ctx, SendInput{ParticipantID: p.ID, Text: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = h.outbound.Send(ctx, SendInput{ParticipantID: p.ID, Attachments: []models.Attachment{{Type: "image", URL: "not a url"}}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = h.outbound.Send(ctx, SendInput{ParticipantID: uuid.New(), Text: "Hi"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	missing := uuid.New()
	res, err := h.outbound.Send(ctx, SendInput{ParticipantID: p.ID, Text: "Hi", ReplyToMessageID: &missing})
	require.NoError(t, err, "absent reply target degrades silently")
	assert.Empty(t, h.platform.texts[0].Opts.ReplyTo)
	assert.Nil(t, res.Message.ReplyToID, "unknown reply target is not stored")
	assert.Empty(t, h.platform.attachments)
}

func TestDeleteNotifiesOrDeletesExactlyOnce(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p, err := h.conv.FindOrCreateParticipant(ctx, "12345", ParticipantProfile{FirstName: "Ann"})
	require.NoError(t, err)

	local, err := h.conv.CreateMessage(ctx, store.CreateMessageParams{ParticipantID: p.ID, Text: strPtr("this message is definitely longer than thirty characters")})
	require.NoError(t, err)
	echoed, err := h.conv.CreateMessage(ctx, store.CreateMessageParams{ParticipantID: p.ID, Text: strPtr("hi"), ExternalID: strPtr("77")})
	require.NoError(t, err)
	adminLocal, err := h.conv.CreateMessage(ctx, store.CreateMessageParams{ParticipantID: p.ID, Text: strPtr("undelivered"), IsFromAdmin: true})
	require.NoError(t, err)

	_, err = h.state.DeleteMessage(ctx, local.ID)
	require.NoError(t, err)
	require.Len(t, h.platform.texts, 1)
	assert.Equal(t, `Admin deleted a message: "this message is definitely lon..."`, h.platform.texts[0].Text)
	assert.Empty(t, h.platform.deletes)

	_, err = h.state.DeleteMessage(ctx, echoed.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"12345/77"}, h.platform.deletes)
	assert.Len(t, h.platform.texts, 1)

	_, err = h.state.DeleteMessage(ctx, adminLocal.ID)
	require.NoError(t, err)
	assert.Len(t, h.platform.texts, 1)
	assert.Len(t, h.platform.deletes, 1)

	_, err = h.state.DeleteMessage(ctx, local.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Len(t, h.live.deleted, 3)

	msgs, err := h.conv.ListMessages(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestDeleteSucceedsWhenPlatformFails(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p, err := h.conv.FindOrCreateParticipant(ctx, "1", ParticipantProfile{})
	require.NoError(t, err)
	m, err := h.conv.CreateMessage(ctx, store.CreateMessageParams{ParticipantID: p.ID, Text: strPtr("x"), ExternalID: strPtr("5")})
	require.NoError(t, err)
	h.platform.deleteErr = integrations.ErrTransport

	snap, err := h.state.DeleteMessage(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, snap.ID)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.inbound.HandleEvent(ctx, textEvent("1", "1", "a"))
	h.inbound.HandleEvent(ctx, textEvent("1", "2", "b"))
	p := onlyParticipant(t, h)
	_, err := h.outbound.Send(ctx, SendInput{ParticipantID: p.ID, Text: "reply"})
	require.NoError(t, err)

	n, err := h.state.MarkRead(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = h.state.MarkRead(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, int64(2), h.live.reads[p.ID.String()])

	msgs, err := h.conv.ListMessages(ctx, p.ID)
	require.NoError(t, err)
	for _, m := range msgs {
		if m.IsFromAdmin {
			assert.False(t, m.Read)
		} else {
			assert.True(t, m.Read)
		}
	}

	_, err = h.state.MarkRead(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeletionNotice(t *testing.T) {
	assert.Equal(t, `Admin deleted a message: "short"`, DeletionNotice(&models.Message{Text: strPtr("short")}))
	assert.Equal(t, `Admin deleted a message: "[image]"`, DeletionNotice(&models.Message{Attachments: []models.Attachment{{Type: models.AttachmentImage}}}))
}

func TestBestEffortSwallowsErrors(t *testing.T) {
	assert.True(t, BestEffort(context.Background(), "test_ok", func(context.Context) error { return nil }))
	assert.False(t, BestEffort(context.Background(), "test_fail", func(context.Context) error { return errors.New("boom") }))
}
