package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/models"
	"chatrelay-backend/internal/store"
)

//go:embed schema.sql
var schema string

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect opens a pool, verifies it with a ping and applies the schema.
func Connect(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	s := NewPostgresStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates tables and indexes that do not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("database error applying schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

// --- Participant Methods ---

const participantColumns = `id, identity, chat_id, first_name, last_name, username, last_active_at, created_at, updated_at`

func scanParticipant(row pgx.Row) (*models.Participant, error) {
	p := &models.Participant{}
	err := row.Scan(
		&p.ID,
		&p.Identity,
		&p.ChatID,
		&p.FirstName,
		&p.LastName,
		&p.Username,
		&p.LastActiveAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning participant: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetParticipant(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`
	return scanParticipant(s.db.QueryRow(ctx, query, id))
}

func (s *PostgresStore) GetParticipantByIdentity(ctx context.Context, identity string) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE identity = $1`
	return scanParticipant(s.db.QueryRow(ctx, query, identity))
}

// CreateParticipant inserts a participant. A concurrent insert for the same
// identity surfaces as store.ErrConflict.
func (s *PostgresStore) CreateParticipant(ctx context.Context, arg store.CreateParticipantParams) (*models.Participant, error) {
	activeAt := arg.ActiveAt
	if activeAt.IsZero() {
		activeAt = time.Now()
	}
	query := `
		INSERT INTO participants (id, identity, chat_id, first_name, last_name, username, last_active_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + participantColumns

	p, err := scanParticipant(s.db.QueryRow(ctx, query,
		uuid.New(),
		arg.Identity,
		arg.ChatID,
		arg.FirstName,
		arg.LastName,
		arg.Username,
		activeAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			logging.Debug().Str("identity", arg.Identity).Msg("[PostgresStore] CreateParticipant: identity already exists")
			return nil, store.ErrConflict
		}
		logging.Error().Err(err).Str("identity", arg.Identity).Msg("[PostgresStore] CreateParticipant failed")
		return nil, fmt.Errorf("database error creating participant: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) UpdateParticipantProfile(ctx context.Context, id uuid.UUID, arg store.ProfileParams) (*models.Participant, error) {
	activeAt := arg.ActiveAt
	if activeAt.IsZero() {
		activeAt = time.Now()
	}
	query := `
		UPDATE participants
		SET chat_id = COALESCE(NULLIF($2, ''), chat_id),
		    first_name = COALESCE(NULLIF($3, ''), first_name),
		    last_name = $4,
		    username = $5,
		    last_active_at = $6,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + participantColumns

	return scanParticipant(s.db.QueryRow(ctx, query, id, arg.ChatID, arg.FirstName, arg.LastName, arg.Username, activeAt))
}

// ListParticipantsByRecency returns participants by lastActiveAt desc, each with
// its latest message and unread participant-authored count.
func (s *PostgresStore) ListParticipantsByRecency(ctx context.Context) ([]models.ParticipantSummary, error) {
	rows, err := s.db.Query(ctx, `SELECT `+participantColumns+` FROM participants ORDER BY last_active_at DESC, created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("error querying participants: %w", err)
	}
	defer rows.Close()

	var items []models.ParticipantSummary
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		index[p.ID] = len(items)
		items = append(items, models.ParticipantSummary{Participant: *p})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}
	if len(items) == 0 {
		return []models.ParticipantSummary{}, nil
	}

	countRows, err := s.db.Query(ctx, `
		SELECT participant_id, COUNT(*)
		FROM messages
		WHERE read = FALSE AND is_from_admin = FALSE
		GROUP BY participant_id`)
	if err != nil {
		return nil, fmt.Errorf("error querying unread counts: %w", err)
	}
	defer countRows.Close()
	for countRows.Next() {
		var id uuid.UUID
		var n int64
		if err := countRows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("error scanning unread count: %w", err)
		}
		if i, ok := index[id]; ok {
			items[i].UnreadCount = n
		}
	}
	if err = countRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unread counts: %w", err)
	}

	latestRows, err := s.db.Query(ctx, `
		SELECT DISTINCT ON (participant_id) `+messageColumns+`
		FROM messages
		ORDER BY participant_id, created_at DESC, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("error querying latest messages: %w", err)
	}
	defer latestRows.Close()
	for latestRows.Next() {
		m, err := scanMessage(latestRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[m.ParticipantID]; ok {
			items[i].LatestMessage = m
		}
	}
	if err = latestRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating latest messages: %w", err)
	}

	return items, nil
}

// --- Message Methods ---

const messageColumns = `id, seq, participant_id, external_id, is_from_admin, text, attachments, read, reply_to_id, reactions, deleted, created_at, updated_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	m := &models.Message{}
	err := row.Scan(
		&m.ID,
		&m.Seq,
		&m.ParticipantID,
		&m.ExternalID,
		&m.IsFromAdmin,
		&m.Text,
		&m.Attachments,
		&m.Read,
		&m.ReplyToID,
		&m.Reactions,
		&m.Deleted,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning message: %w", err)
	}
	if m.Attachments == nil {
		m.Attachments = []models.Attachment{}
	}
	if m.Reactions == nil {
		m.Reactions = []models.Reaction{}
	}
	return m, nil
}

func (s *PostgresStore) CreateMessage(ctx context.Context, arg store.CreateMessageParams) (*models.Message, error) {
	attachments := arg.Attachments
	if attachments == nil {
		attachments = []models.Attachment{}
	}
	query := `
		INSERT INTO messages (id, participant_id, external_id, is_from_admin, text, attachments, read, reply_to_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + messageColumns

	m, err := scanMessage(s.db.QueryRow(ctx, query,
		uuid.New(),
		arg.ParticipantID,
		arg.ExternalID,
		arg.IsFromAdmin,
		arg.Text,
		attachments,
		arg.Read,
		arg.ReplyToID,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, store.ErrNotFound
		}
		logging.Error().Err(err).Str("participant_id", arg.ParticipantID.String()).Msg("[PostgresStore] CreateMessage failed")
		return nil, fmt.Errorf("database error creating message: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	return scanMessage(s.db.QueryRow(ctx, query, id))
}

func (s *PostgresStore) ListMessages(ctx context.Context, participantID uuid.UUID) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE participant_id = $1 ORDER BY created_at ASC, seq ASC`
	rows, err := s.db.Query(ctx, query, participantID)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	items := []models.Message{}
	local := make(map[uuid.UUID]int)
	var missing []string
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		local[m.ID] = len(items)
		items = append(items, *m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	// Resolve reply targets; most live in the same conversation.
	for i := range items {
		rt := items[i].ReplyToID
		if rt == nil {
			continue
		}
		if j, ok := local[*rt]; ok {
			target := items[j]
			target.ReplyTo = nil
			items[i].ReplyTo = &target
		} else {
			missing = append(missing, rt.String())
		}
	}
	if len(missing) == 0 {
		return items, nil
	}

	foreign, err := s.messagesByID(ctx, missing)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ReplyTo == nil && items[i].ReplyToID != nil {
			if target, ok := foreign[*items[i].ReplyToID]; ok {
				items[i].ReplyTo = target
			}
		}
	}
	return items, nil
}

func (s *PostgresStore) messagesByID(ctx context.Context, ids []string) (map[uuid.UUID]*models.Message, error) {
	rows, err := s.db.Query(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("error querying reply targets: %w", err)
	}
	defer rows.Close()
	out := make(map[uuid.UUID]*models.Message)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out[m.ID] = m
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reply targets: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MarkParticipantMessagesRead(ctx context.Context, participantID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE messages
		SET read = TRUE, updated_at = NOW()
		WHERE participant_id = $1 AND is_from_admin = FALSE AND read = FALSE`, participantID)
	if err != nil {
		return 0, fmt.Errorf("error executing mark read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	query := `DELETE FROM messages WHERE id = $1 RETURNING ` + messageColumns
	return scanMessage(s.db.QueryRow(ctx, query, id))
}
