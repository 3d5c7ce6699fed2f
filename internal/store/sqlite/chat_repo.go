package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"localchat/internal/domain"
)

type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

var _ domain.ChatStore = (*ChatRepo)(nil)

func (r *ChatRepo) Create(ctx context.Context, c *domain.Chat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO chats (created_at, last_message, last_message_time)
		VALUES (?, NULL, NULL)
	`, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id

	for _, uid := range c.Participants {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_participants (chat_id, user_id)
			VALUES (?, ?)
		`, id, uid); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *ChatRepo) GetByID(ctx context.Context, id int64) (*domain.Chat, error) {
	chats, err := r.queryChats(ctx, `WHERE c.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return nil, nil
	}
	return chats[0], nil
}

func (r *ChatRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.Chat, error) {
	return r.queryChats(ctx, `
		WHERE c.id IN (SELECT chat_id FROM chat_participants WHERE user_id = ?)
	`, userID)
}

func (r *ChatRepo) FindByPair(ctx context.Context, userA, userB int64) (*domain.Chat, error) {
	// Find the chat that both users participate in.
	var id int64
	err := r.db.QueryRowContext(ctx, `
		SELECT c.id
		FROM chats c
		JOIN chat_participants p1 ON p1.chat_id = c.id AND p1.user_id = ?
		JOIN chat_participants p2 ON p2.chat_id = c.id AND p2.user_id = ?
		LIMIT 1
	`, userA, userB).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find chat by pair: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *ChatRepo) UpdateLastMessage(ctx context.Context, chatID int64, body string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE chats SET last_message = ?, last_message_time = ? WHERE id = ?
	`, body, at, chatID)
	if err != nil {
		return fmt.Errorf("update last message: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("chat %d: %w", chatID, domain.ErrNotFound)
	}
	return nil
}

// queryChats selects chats matching the given WHERE clause, one row per
// participant, and folds the rows back into chat records.
func (r *ChatRepo) queryChats(ctx context.Context, where string, args ...any) ([]*domain.Chat, error) {
	query := `
		SELECT c.id, c.created_at, c.last_message, c.last_message_time, p.user_id
		FROM chats c
		JOIN chat_participants p ON p.chat_id = c.id
	` + where + `
		ORDER BY c.id ASC, p.user_id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer rows.Close()

	var (
		res    []*domain.Chat
		byID   = map[int64]*domain.Chat{}
		filled = map[int64]int{}
	)
	for rows.Next() {
		var (
			id        int64
			createdAt time.Time
			lastMsg   sql.NullString
			lastTime  sql.NullTime
			userID    int64
		)
		if err := rows.Scan(&id, &createdAt, &lastMsg, &lastTime, &userID); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		c, ok := byID[id]
		if !ok {
			c = &domain.Chat{ID: id, CreatedAt: createdAt}
			if lastMsg.Valid {
				s := lastMsg.String
				c.LastMessage = &s
			}
			if lastTime.Valid {
				t := lastTime.Time
				c.LastMessageTime = &t
			}
			byID[id] = c
			res = append(res, c)
		}
		if filled[id] < len(c.Participants) {
			c.Participants[filled[id]] = userID
			filled[id]++
		}
	}
	return res, rows.Err()
}
