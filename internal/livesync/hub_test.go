package livesync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay-backend/internal/models"
)

func runHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func register(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := NewClient(h, nil)
	h.Register <- c
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case m, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		return m
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case m := <-c.send:
		t.Fatalf("unexpected message %q", m.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastNewMessageReachesEverySession(t *testing.T) {
	h := runHub(t)
	a, b := register(t, h), register(t, h)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	msg := &models.Message{ID: uuid.New(), ParticipantID: uuid.New()}
	h.BroadcastNewMessage(msg)

	for _, c := range []*Client{a, b} {
		got := receive(t, c)
		assert.Equal(t, MessageTypeNewMessage, got.Type)
		assert.Same(t, msg, got.Data)
	}
}

func TestRoomBroadcastIsScoped(t *testing.T) {
	h := runHub(t)
	room := uuid.New().String()
	inRoom, outside := register(t, h), register(t, h)

	inRoom.handle([]byte(`{"type":"join-chat","data":"` + room + `"}`))
	require.Eventually(t, func() bool { return h.RoomSize(room) == 1 }, time.Second, 5*time.Millisecond)

	h.BroadcastMessagesRead(room, 3)
	got := receive(t, inRoom)
	assert.Equal(t, MessageTypeMessagesRead, got.Type)
	assert.Equal(t, MessagesRead{ParticipantID: room, Count: 3}, got.Data)
	assertNothing(t, outside)

	// Joining another room leaves the first one.
	other := uuid.New().String()
	inRoom.handle([]byte(`{"type":"join-chat","data":"` + other + `"}`))
	require.Eventually(t, func() bool { return h.RoomSize(room) == 0 && h.RoomSize(other) == 1 }, time.Second, 5*time.Millisecond)
}

func TestJoinChatRejectsInvalidRoom(t *testing.T) {
	h := runHub(t)
	c := register(t, h)
	c.handle([]byte(`{"type":"join-chat","data":"not-a-uuid"}`))
	c.handle([]byte(`{"type":"join-chat","data":42}`))
	c.handle([]byte(`garbage`))
	assertNothing(t, c)
}

func TestPingAnsweredWithPong(t *testing.T) {
	h := runHub(t)
	c := register(t, h)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	c.handle([]byte(`{"type":"ping"}`))
	assert.Equal(t, MessageTypePong, receive(t, c).Type)
}

func TestPingAfterSlowSessionDropped(t *testing.T) {
	h := runHub(t)
	c := register(t, h)

	// Nobody drains c.send, so the hub eventually drops the session.
	require.Eventually(t, func() bool {
		h.BroadcastNewMessage(&models.Message{})
		return h.ClientCount() == 0
	}, 5*time.Second, time.Millisecond)

	assert.NotPanics(t, func() {
		c.handle([]byte(`{"type":"ping"}`))
	})
	assert.False(t, h.reply(c, Message{Type: MessageTypePong}))
}

func TestUnregisterClosesSession(t *testing.T) {
	h := runHub(t)
	c := register(t, h)
	h.Unregister <- c
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-c.send
	assert.False(t, ok)
}

func TestBroadcastNeverBlocksWithoutRunningHub(t *testing.T) {
	h := NewHub()
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(h.broadcast)+10; i++ {
			h.BroadcastNewMessage(&models.Message{})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked")
	}
}

func TestWebsocketEndToEnd(t *testing.T) {
	h := runHub(t)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(h, conn)
		h.Register <- c
		c.Start()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	text := "Hello"
	h.BroadcastNewMessage(&models.Message{ID: uuid.New(), ParticipantID: uuid.New(), Text: &text, Attachments: []models.Attachment{}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Type string `json:"type"`
		Data struct {
			Text string `json:"text"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "newMessage", got.Type)
	assert.Equal(t, "Hello", got.Data.Text)
}
