// Package memory is an in-process Store used by the memory driver and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatrelay-backend/internal/models"
	"chatrelay-backend/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps participants and messages in maps guarded by one mutex.
type Store struct {
	mu           sync.RWMutex
	participants map[uuid.UUID]*models.Participant
	byIdentity   map[string]uuid.UUID
	messages     map[uuid.UUID]*models.Message
	seq          int64
	now          func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		participants: make(map[uuid.UUID]*models.Participant),
		byIdentity:   make(map[string]uuid.UUID),
		messages:     make(map[uuid.UUID]*models.Message),
		now:          time.Now,
	}
}

// WithClock replaces the time source; tests use it to force createdAt ties.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) GetParticipant(_ context.Context, id uuid.UUID) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetParticipantByIdentity(_ context.Context, identity string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byIdentity[identity]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s.participants[id]
	return &cp, nil
}

func (s *Store) CreateParticipant(_ context.Context, arg store.CreateParticipantParams) (*models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byIdentity[arg.Identity]; exists {
		return nil, store.ErrConflict
	}
	now := s.now()
	active := arg.ActiveAt
	if active.IsZero() {
		active = now
	}
	p := &models.Participant{
		ID:           uuid.New(),
		Identity:     arg.Identity,
		ChatID:       arg.ChatID,
		FirstName:    arg.FirstName,
		LastName:     arg.LastName,
		Username:     arg.Username,
		LastActiveAt: active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.participants[p.ID] = p
	s.byIdentity[p.Identity] = p.ID
	cp := *p
	return &cp, nil
}

func (s *Store) UpdateParticipantProfile(_ context.Context, id uuid.UUID, arg store.ProfileParams) (*models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if arg.ChatID != "" {
		p.ChatID = arg.ChatID
	}
	if arg.FirstName != "" {
		p.FirstName = arg.FirstName
	}
	p.LastName = arg.LastName
	p.Username = arg.Username
	if !arg.ActiveAt.IsZero() {
		p.LastActiveAt = arg.ActiveAt
	}
	p.UpdatedAt = s.now()
	cp := *p
	return &cp, nil
}

func (s *Store) ListParticipantsByRecency(_ context.Context) ([]models.ParticipantSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[uuid.UUID]*models.Message)
	unread := make(map[uuid.UUID]int64)
	for _, m := range s.messages {
		if cur, ok := latest[m.ParticipantID]; !ok || after(m, cur) {
			latest[m.ParticipantID] = m
		}
		if !m.Read && !m.IsFromAdmin {
			unread[m.ParticipantID]++
		}
	}

	out := make([]models.ParticipantSummary, 0, len(s.participants))
	for id, p := range s.participants {
		sum := models.ParticipantSummary{Participant: *p, UnreadCount: unread[id]}
		if m, ok := latest[id]; ok {
			cp := copyMessage(m)
			sum.LatestMessage = &cp
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.LastActiveAt.Equal(b.LastActiveAt) {
			return a.LastActiveAt.After(b.LastActiveAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return out, nil
}

func (s *Store) CreateMessage(_ context.Context, arg store.CreateMessageParams) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[arg.ParticipantID]; !ok {
		return nil, store.ErrNotFound
	}
	s.seq++
	now := s.now()
	attachments := append([]models.Attachment{}, arg.Attachments...)
	m := &models.Message{
		ID:            uuid.New(),
		Seq:           s.seq,
		ParticipantID: arg.ParticipantID,
		ExternalID:    arg.ExternalID,
		IsFromAdmin:   arg.IsFromAdmin,
		Text:          arg.Text,
		Attachments:   attachments,
		Read:          arg.Read,
		ReplyToID:     arg.ReplyToID,
		Reactions:     []models.Reaction{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.messages[m.ID] = m
	out := copyMessage(m)
	return &out, nil
}

func (s *Store) GetMessage(_ context.Context, id uuid.UUID) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := copyMessage(m)
	return &out, nil
}

func (s *Store) ListMessages(_ context.Context, participantID uuid.UUID) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []*models.Message
	for _, m := range s.messages {
		if m.ParticipantID == participantID {
			items = append(items, m)
		}
	}
	sort.Slice(items, func(i, j int) bool { return after(items[j], items[i]) })

	out := make([]models.Message, 0, len(items))
	for _, m := range items {
		cp := copyMessage(m)
		if m.ReplyToID != nil {
			if target, ok := s.messages[*m.ReplyToID]; ok {
				rt := copyMessage(target)
				cp.ReplyTo = &rt
			}
		}
		out = append(out, cp)
	}
	return out, nil
}

func (s *Store) MarkParticipantMessagesRead(_ context.Context, participantID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := s.now()
	for _, m := range s.messages {
		if m.ParticipantID == participantID && !m.IsFromAdmin && !m.Read {
			m.Read = true
			m.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteMessage(_ context.Context, id uuid.UUID) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(s.messages, id)
	out := copyMessage(m)
	return &out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

// after reports whether a sorts after b by createdAt, then sequence.
func after(a, b *models.Message) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.Seq > b.Seq
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func copyMessage(m *models.Message) models.Message {
	cp := *m
	cp.Attachments = append([]models.Attachment{}, m.Attachments...)
	cp.Reactions = append([]models.Reaction{}, m.Reactions...)
	cp.ReplyTo = nil
	return cp
}
