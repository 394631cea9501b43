package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// conversationCols is the standard SELECT column list for scanConversation.
const conversationCols = `id, token, title, user_id, corpus_label, created_at, updated_at`

// Store persists conversations and messages in PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db     querier
	logger *slog.Logger
}

// NewStore creates a conversation Store. db is typically a *pgxpool.Pool.
func NewStore(db querier, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}, nil
}

// FindOrCreate resolves a conversation token to exactly one row.
//
// When no conversation matches the token, one is created with a title
// derived from firstQuestion, the (nullable) user, and the corpus label.
// When a match exists it is returned unchanged: title and owner are
// never mutated on later turns.
//
// The lookup-or-create is a single upsert against the unique token
// constraint. ON CONFLICT DO UPDATE with an identity assignment makes
// RETURNING yield the existing row, so two concurrent first turns both
// resolve to the same conversation without a read-then-write race.
func (s *Store) FindOrCreate(ctx context.Context, token string, userID *string, firstQuestion, corpusLabel string) (*Conversation, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingIdentity
	}

	title := TitleFromQuestion(firstQuestion)

	row := s.db.QueryRow(ctx,
		`INSERT INTO conversations (token, title, user_id, corpus_label)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (token) DO UPDATE SET token = EXCLUDED.token
		 RETURNING `+conversationCols,
		token, title, userID, corpusLabel,
	)

	conv, err := scanConversation(row)
	if err != nil {
		return nil, fmt.Errorf("resolving conversation %q: %w", token, err)
	}

	s.logger.Debug("resolved conversation",
		"token", token,
		"id", conv.ID,
	)
	return conv, nil
}

// Get looks up a conversation by token without creating one.
// Returns ErrNotFound when no conversation matches.
func (s *Store) Get(ctx context.Context, token string) (*Conversation, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingIdentity
	}

	row := s.db.QueryRow(ctx,
		`SELECT `+conversationCols+` FROM conversations WHERE token = $1`,
		token,
	)

	conv, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation %q: %w", token, err)
	}
	return conv, nil
}

// SaveExchange records one completed human/AI exchange. Called exactly
// once per finished stream, and from the explicit save endpoint.
func (s *Store) SaveExchange(ctx context.Context, conversationID uuid.UUID, humanMessage, aiMessage string) error {
	if strings.TrimSpace(humanMessage) == "" {
		return ErrEmptyQuestion
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO messages (conversation_id, human_message, ai_message)
		 VALUES ($1, $2, $3)`,
		conversationID, humanMessage, aiMessage,
	)
	if err != nil {
		return fmt.Errorf("saving exchange for conversation %s: %w", conversationID, err)
	}
	return nil
}

// Messages returns the exchanges of a conversation ordered by creation
// time (oldest first). limit <= 0 means no limit.
func (s *Store) Messages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*Message, error) {
	query := `SELECT id, conversation_id, human_message, ai_message, created_at
	 FROM messages
	 WHERE conversation_id = $1
	 ORDER BY created_at, id`
	args := []any{conversationID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing messages for conversation %s: %w", conversationID, err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.HumanMessage, &m.AIMessage, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return messages, nil
}

// ListByUser returns a user's conversations, most recently created first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*Conversation, error) {
	if userID == "" {
		return []*Conversation{}, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+conversationCols+`
		 FROM conversations
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversations for user %q: %w", userID, err)
	}
	defer rows.Close()

	var conversations []*Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	return conversations, nil
}

// scanConversation reads a Conversation from a row with conversationCols.
func scanConversation(row pgx.Row) (*Conversation, error) {
	c := &Conversation{}
	if err := row.Scan(&c.ID, &c.Token, &c.Title, &c.UserID, &c.CorpusLabel, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}
