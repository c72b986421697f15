package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay-backend/internal/store"
)

// These tests need a disposable database; they are skipped unless
// TEST_DATABASE_URL is set.
func openTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := Connect(ctx, url)
	require.NoError(t, err)
	_, err = s.db.Exec(ctx, `TRUNCATE messages, participants`)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestPostgresParticipantConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateParticipant(ctx, store.CreateParticipantParams{Identity: "12345", FirstName: "Ann"})
	require.NoError(t, err)
	_, err = s.CreateParticipant(ctx, store.CreateParticipantParams{Identity: "12345", FirstName: "Ann"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestPostgresMessageLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, err := s.CreateParticipant(ctx, store.CreateParticipantParams{Identity: "1", FirstName: "Ann"})
	require.NoError(t, err)
	text := "hello"
	first, err := s.CreateMessage(ctx, store.CreateMessageParams{ParticipantID: p.ID, Text: &text})
	require.NoError(t, err)
	reply := "re"
	_, err = s.CreateMessage(ctx, store.CreateMessageParams{ParticipantID: p.ID, Text: &reply, IsFromAdmin: true, ReplyToID: &first.ID})
	require.NoError(t, err)

	msgs, err := s.ListMessages(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.NotNil(t, msgs[1].ReplyTo)
	assert.Equal(t, first.ID, msgs[1].ReplyTo.ID)

	n, err := s.MarkParticipantMessagesRead(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.MarkParticipantMessagesRead(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	summaries, err := s.ListParticipantsByRecency(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Zero(t, summaries[0].UnreadCount)
	require.NotNil(t, summaries[0].LatestMessage)
	assert.Equal(t, "re", summaries[0].LatestMessage.Body())

	_, err = s.DeleteMessage(ctx, first.ID)
	require.NoError(t, err)
	_, err = s.DeleteMessage(ctx, first.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
