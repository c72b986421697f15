// Package livesync pushes stored messages to connected admin console sessions
// over websockets. Delivery is fire-and-forget: sessions that miss an event
// recover by listing messages again.
package livesync

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/metrics"
	"chatrelay-backend/internal/models"
)

// Message types exchanged with the console.
const (
	MessageTypeNewMessage     = "newMessage"
	MessageTypeMessageDeleted = "messageDeleted"
	MessageTypeMessagesRead   = "messagesRead"
	MessageTypeJoinChat       = "join-chat"
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
)

// Message is the server to client envelope.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// inbound is the client to server envelope; data stays raw until the type is known.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MessageDeleted tells room members a message is gone.
type MessageDeleted struct {
	ID            string `json:"_id"`
	ParticipantID string `json:"user"`
}

// MessagesRead tells room members how many messages were marked read.
type MessagesRead struct {
	ParticipantID string `json:"user"`
	Count         int64  `json:"count"`
}

type envelope struct {
	room string // Empty for every session
	msg  Message
}

type joinRequest struct {
	client *Client
	room   string
}

// Hub tracks sessions and the per-participant room each one has joined.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	broadcast  chan envelope
	Register   chan *Client
	Unregister chan *Client
	join       chan joinRequest
	done       chan struct{}
	doneOnce   sync.Once
	mu         sync.RWMutex
}

// NewHub creates a hub; RunWithContext must be running for it to deliver.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		join:       make(chan joinRequest, 64),
		done:       make(chan struct{}),
	}
}

// RunWithContext processes registrations and broadcasts until ctx is cancelled,
// then closes every session.
func (h *Hub) RunWithContext(ctx context.Context) error {
	defer h.doneOnce.Do(func() { close(h.done) })
	for {
		select {
		case <-ctx.Done():
			n := h.ClientCount()
			h.closeAllClients()
			logging.Info().Str("component", "livesync-hub").Int("clients_closed", n).Msg("[LiveSync] Hub stopped")
			return ctx.Err()

		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.LiveSessions.Set(float64(total))
			logging.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("[LiveSync] Admin session connected")

		case client := <-h.Unregister:
			h.mu.Lock()
			h.removeLocked(client)
			total := len(h.clients)
			h.mu.Unlock()
			metrics.LiveSessions.Set(float64(total))
			logging.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("[LiveSync] Admin session disconnected")

		case req := <-h.join:
			h.mu.Lock()
			if h.clients[req.client] {
				h.leaveLocked(req.client)
				members, ok := h.rooms[req.room]
				if !ok {
					members = make(map[*Client]bool)
					h.rooms[req.room] = members
				}
				members[req.client] = true
				req.client.room = req.room
			}
			h.mu.Unlock()
			logging.Debug().Uint64("client_id", req.client.id).Str("room", req.room).Msg("[LiveSync] Session joined chat")

		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

// deliver sends to the room, or to every session when room is empty. Sessions
// whose buffers are full are dropped.
func (h *Hub) deliver(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var targets map[*Client]bool
	if env.room == "" {
		targets = h.clients
	} else {
		targets = h.rooms[env.room]
	}

	clients := make([]*Client, 0, len(targets))
	for client := range targets {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- env.msg:
		default:
			toRemove = append(toRemove, client)
		}
	}
	for _, client := range toRemove {
		logging.Warn().Uint64("client_id", client.id).Msg("[LiveSync] Session too slow, disconnecting")
		h.removeLocked(client)
	}
	if len(toRemove) > 0 {
		metrics.LiveSessions.Set(float64(len(h.clients)))
	}
}

func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	h.leaveLocked(client)
	delete(h.clients, client)
	close(client.send)
}

func (h *Hub) leaveLocked(client *Client) {
	if client.room == "" {
		return
	}
	if members, ok := h.rooms[client.room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, client.room)
		}
	}
	client.room = ""
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.removeLocked(client)
	}
	metrics.LiveSessions.Set(0)
}

// ClientCount returns the number of connected sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of sessions in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Attach registers client and starts its pumps. It returns false once the hub
// has stopped.
func (h *Hub) Attach(client *Client) bool {
	select {
	case h.Register <- client:
		client.Start()
		return true
	case <-h.done:
		return false
	}
}

// Join moves client into the room for a participant.
func (h *Hub) Join(client *Client, room string) {
	select {
	case h.join <- joinRequest{client: client, room: room}:
	case <-h.done:
	}
}

// reply queues msg for client alone. Dropped sessions have a closed send
// channel, so membership is checked under the lock that guards the close.
func (h *Hub) reply(client *Client, msg Message) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return false
	}
	select {
	case client.send <- msg:
		return true
	default:
		return false
	}
}

// unregister tolerates a stopped hub.
func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) publish(env envelope) {
	select {
	case h.broadcast <- env:
		metrics.LiveBroadcasts.WithLabelValues(env.msg.Type, "queued").Inc()
	default:
		metrics.LiveBroadcasts.WithLabelValues(env.msg.Type, "dropped").Inc()
		logging.Warn().Str("message_type", env.msg.Type).Str("room", env.room).Msg("[LiveSync] Broadcast channel full, dropping event")
	}
}

// BroadcastNewMessage pushes a stored message to every session. It never blocks.
func (h *Hub) BroadcastNewMessage(m *models.Message) {
	h.publish(envelope{msg: Message{Type: MessageTypeNewMessage, Data: m}})
}

// BroadcastToRoom pushes an event to sessions that joined room. It never blocks.
func (h *Hub) BroadcastToRoom(room, messageType string, data interface{}) {
	h.publish(envelope{room: room, msg: Message{Type: messageType, Data: data}})
}

// BroadcastMessageDeleted notifies sessions viewing the participant's chat.
func (h *Hub) BroadcastMessageDeleted(m *models.Message) {
	room := m.ParticipantID.String()
	h.BroadcastToRoom(room, MessageTypeMessageDeleted, MessageDeleted{ID: m.ID.String(), ParticipantID: room})
}

// BroadcastMessagesRead notifies sessions viewing the participant's chat.
func (h *Hub) BroadcastMessagesRead(participantID string, count int64) {
	h.BroadcastToRoom(participantID, MessageTypeMessagesRead, MessagesRead{ParticipantID: participantID, Count: count})
}
