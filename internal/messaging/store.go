package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists conversations and messages in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.pool.Begin(ctx)
}

// CreateConversation inserts a new thread row.
func (s *Store) CreateConversation(ctx context.Context, q Querier, conv Conversation) error {
	if q == nil {
		q = s.pool
	}
	query := `
		INSERT INTO conversations (id, title, kind, status, tenant_id, group_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.Exec(ctx, query, conv.ID, conv.Title, conv.Kind, conv.Status, conv.TenantID, conv.GroupID)
	if err != nil {
		return fmt.Errorf("messaging: insert conversation: %w", err)
	}
	return nil
}

// TouchConversation bumps a thread's activity timestamp.
func (s *Store) TouchConversation(ctx context.Context, q Querier, conversationID uuid.UUID) error {
	if q == nil {
		q = s.pool
	}
	query := `
		UPDATE conversations
		SET updated_at = now()
		WHERE id = $1
	`
	_, err := q.Exec(ctx, query, conversationID)
	if err != nil {
		return fmt.Errorf("messaging: touch conversation: %w", err)
	}
	return nil
}

// InsertMessage appends one message row and returns its id.
func (s *Store) InsertMessage(ctx context.Context, q Querier, msg Message) (uuid.UUID, error) {
	if q == nil {
		q = s.pool
	}
	query := `
		INSERT INTO messages (
			provider_message_id, direction, from_number, to_number, body,
			status, person_id, conversation_id, tenant_id, delivered_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`
	var id uuid.UUID
	if err := q.QueryRow(ctx, query,
		msg.ProviderMessageID, msg.Direction, msg.FromNumber, msg.ToNumber, msg.Body,
		msg.Status, msg.PersonID, msg.ConversationID, msg.TenantID, msg.DeliveredAt,
	).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("messaging: insert message: %w", err)
	}
	return id, nil
}

// SaveInbound persists one inbound envelope atomically: the conversation row
// when the thread is new, the message row, and the activity bump when the
// thread already existed.
func (s *Store) SaveInbound(ctx context.Context, conv *Conversation, createConv bool, msg *Message) (uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("messaging: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if createConv {
		if err := s.CreateConversation(ctx, tx, *conv); err != nil {
			return uuid.Nil, err
		}
	}
	msgID, err := s.InsertMessage(ctx, tx, *msg)
	if err != nil {
		return uuid.Nil, err
	}
	if !createConv {
		if err := s.TouchConversation(ctx, tx, msg.ConversationID); err != nil {
			return uuid.Nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("messaging: commit inbound tx: %w", err)
	}
	return msgID, nil
}

// HasProviderMessage checks whether a message with the provider message id exists.
func (s *Store) HasProviderMessage(ctx context.Context, providerMessageID string) (bool, error) {
	providerMessageID = strings.TrimSpace(providerMessageID)
	if providerMessageID == "" {
		return false, nil
	}
	query := `
		SELECT 1 FROM messages
		WHERE provider_message_id = $1
		LIMIT 1
	`
	var exists int
	if err := s.pool.QueryRow(ctx, query, providerMessageID).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("messaging: check provider message: %w", err)
	}
	return true, nil
}

// LatestConversationForPerson finds the active thread whose newest message
// from this person is most recent. The MAX aggregate keeps the tie-break in
// the database instead of loading candidate messages client-side.
func (s *Store) LatestConversationForPerson(ctx context.Context, personID uuid.UUID) (uuid.UUID, error) {
	query := `
		SELECT m.conversation_id
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.status = 'active' AND m.person_id = $1
		GROUP BY m.conversation_id
		ORDER BY MAX(m.created_at) DESC
		LIMIT 1
	`
	var id uuid.UUID
	if err := s.pool.QueryRow(ctx, query, personID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNoConversation
		}
		return uuid.Nil, fmt.Errorf("messaging: latest conversation for person: %w", err)
	}
	return id, nil
}

// LatestConversationForNumbers finds the active thread with the newest
// message sent from or to any of the given number strings.
func (s *Store) LatestConversationForNumbers(ctx context.Context, numbers []string) (uuid.UUID, error) {
	if len(numbers) == 0 {
		return uuid.Nil, ErrNoConversation
	}
	args := make([]any, 0, len(numbers))
	argNum := 1
	fromIn := appendInFilter("m.from_number", numbers, &args, &argNum)
	toIn := appendInFilter("m.to_number", numbers, &args, &argNum)
	query := fmt.Sprintf(`
		SELECT m.conversation_id
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.status = 'active' AND (%s OR %s)
		GROUP BY m.conversation_id
		ORDER BY MAX(m.created_at) DESC
		LIMIT 1
	`, fromIn, toIn)
	var id uuid.UUID
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNoConversation
		}
		return uuid.Nil, fmt.Errorf("messaging: latest conversation for numbers: %w", err)
	}
	return id, nil
}

// LatestConversationForDigits compares message numbers digit-for-digit over a
// bounded window of recently updated active threads.
func (s *Store) LatestConversationForDigits(ctx context.Context, digits []string, window int) (uuid.UUID, error) {
	if len(digits) == 0 {
		return uuid.Nil, ErrNoConversation
	}
	if window <= 0 {
		window = DefaultScanWindow
	}
	args := []any{window}
	argNum := 2
	fromIn := appendInFilter(`regexp_replace(m.from_number, '\D', '', 'g')`, digits, &args, &argNum)
	toIn := appendInFilter(`regexp_replace(m.to_number, '\D', '', 'g')`, digits, &args, &argNum)
	query := fmt.Sprintf(`
		SELECT m.conversation_id
		FROM messages m
		JOIN (
			SELECT id FROM conversations
			WHERE status = 'active'
			ORDER BY updated_at DESC
			LIMIT $1
		) c ON c.id = m.conversation_id
		WHERE %s OR %s
		GROUP BY m.conversation_id
		ORDER BY MAX(m.created_at) DESC
		LIMIT 1
	`, fromIn, toIn)
	var id uuid.UUID
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNoConversation
		}
		return uuid.Nil, fmt.Errorf("messaging: latest conversation for digits: %w", err)
	}
	return id, nil
}

// ConversationTenant returns a conversation's tenant and group refs.
func (s *Store) ConversationTenant(ctx context.Context, conversationID uuid.UUID) (*uuid.UUID, *uuid.UUID, error) {
	query := `
		SELECT tenant_id, group_id
		FROM conversations
		WHERE id = $1
	`
	var tenantID, groupID *uuid.UUID
	if err := s.pool.QueryRow(ctx, query, conversationID).Scan(&tenantID, &groupID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNoConversation
		}
		return nil, nil, fmt.Errorf("messaging: conversation tenant: %w", err)
	}
	return tenantID, groupID, nil
}

// LatestActiveTenant returns the tenant of the most recently updated
// conversation that has one.
func (s *Store) LatestActiveTenant(ctx context.Context) (uuid.UUID, error) {
	query := `
		SELECT tenant_id
		FROM conversations
		WHERE tenant_id IS NOT NULL
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var tenantID uuid.UUID
	if err := s.pool.QueryRow(ctx, query).Scan(&tenantID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNoConversation
		}
		return uuid.Nil, fmt.Errorf("messaging: latest active tenant: %w", err)
	}
	return tenantID, nil
}

func appendInFilter(columnExpr string, values []string, args *[]any, argNum *int) string {
	placeholders := make([]string, 0, len(values))
	for _, v := range values {
		placeholders = append(placeholders, fmt.Sprintf("$%d", *argNum))
		*args = append(*args, v)
		*argNum++
	}
	return fmt.Sprintf("%s IN (%s)", columnExpr, strings.Join(placeholders, ","))
}
