package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zhouzirui/ragdesk/backend/internal/model/chat"
)

// Repository implements chat.Store on the chats/messages tables.
// The tables carry no updated_at column; a session's UpdatedAt is the
// creation time of its newest message, or of the chat itself.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewRepository wraps an open pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: time.Now}
}

const listChats = `
SELECT c.id, c.title, c.created_at, COALESCE(MAX(m.created_at), c.created_at) AS updated_at
FROM chats c
LEFT JOIN messages m ON m.chat_id = c.id
GROUP BY c.id, c.title, c.created_at
ORDER BY updated_at DESC, c.created_at DESC`

func (r *Repository) List(ctx context.Context) ([]chat.Session, error) {
	rows, err := r.pool.Query(ctx, listChats)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	sessions := make([]chat.Session, 0)
	for rows.Next() {
		var row chatRow
		if err := rows.Scan(&row.ID, &row.Title, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		sessions = append(sessions, row.toSession(nil))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return sessions, nil
}

func (r *Repository) Get(ctx context.Context, id string) (chat.Session, error) {
	var row chatRow
	err := r.pool.QueryRow(ctx, `SELECT id, title, created_at FROM chats WHERE id = $1`, id).
		Scan(&row.ID, &row.Title, &row.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return chat.Session{}, chat.ErrSessionNotFound
	}
	if err != nil {
		return chat.Session{}, fmt.Errorf("get chat: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT role, content, sources, created_at FROM messages WHERE chat_id = $1 ORDER BY created_at, id`, id)
	if err != nil {
		return chat.Session{}, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var messages []messageRow
	for rows.Next() {
		var m messageRow
		if err := rows.Scan(&m.Role, &m.Content, &m.Sources, &m.CreatedAt); err != nil {
			return chat.Session{}, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return chat.Session{}, fmt.Errorf("load messages: %w", err)
	}

	row.UpdatedAt = row.CreatedAt
	if n := len(messages); n > 0 && messages[n-1].CreatedAt.After(row.UpdatedAt) {
		row.UpdatedAt = messages[n-1].CreatedAt
	}
	return row.toSession(messages), nil
}

func (r *Repository) Create(ctx context.Context, title string) (chat.Session, error) {
	if title == "" {
		title = chat.DefaultTitle
	}
	row := chatRow{ID: uuid.NewString(), Title: title}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO chats (id, title, created_at) VALUES ($1, $2, $3) RETURNING created_at`,
		row.ID, row.Title, r.now().UTC()).Scan(&row.CreatedAt)
	if err != nil {
		return chat.Session{}, fmt.Errorf("create chat: %w", err)
	}
	row.UpdatedAt = row.CreatedAt
	return row.toSession(nil), nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE chat_id = $1`, id); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete chat: %w", err)
		}
		return nil
	})
}

func (r *Repository) Rename(ctx context.Context, id, title string) (chat.Session, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE chats SET title = $2 WHERE id = $1`, id, title)
	if err != nil {
		return chat.Session{}, fmt.Errorf("rename chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return chat.Session{}, chat.ErrSessionNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repository) AppendMessage(ctx context.Context, id string, msg chat.Message) (chat.Message, error) {
	createdAt := r.now().UTC()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, chat_id, role, content, sources, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), id, string(msg.Role), msg.Content, msg.Sources, createdAt)
	if isForeignKeyViolation(err) {
		return chat.Message{}, chat.ErrSessionNotFound
	}
	if err != nil {
		return chat.Message{}, fmt.Errorf("insert message: %w", err)
	}
	msg.Timestamp = createdAt.UnixMilli()
	return msg, nil
}

func (r *Repository) Clear(ctx context.Context) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM messages`); err != nil {
			return fmt.Errorf("clear messages: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM chats`); err != nil {
			return fmt.Errorf("clear chats: %w", err)
		}
		return nil
	})
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
