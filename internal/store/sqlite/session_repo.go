package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"localchat/internal/domain"
)

type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

var _ domain.SessionStore = (*SessionRepo)(nil)

// Put overwrites the single session slot with the given user snapshot.
func (r *SessionRepo) Put(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT OR REPLACE INTO session (id, user_id, username, password, email, photo_url, created_at, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	u := s.User
	_, err := r.db.ExecContext(ctx, query,
		domain.SessionKey,
		u.ID,
		u.Username,
		u.Password,
		u.Email,
		u.PhotoURL,
		u.CreatedAt,
		u.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context) (*domain.Session, error) {
	query := `
		SELECT user_id, username, password, email, photo_url, created_at, last_seen
		FROM session
		WHERE id = ?
	`
	s := &domain.Session{ID: domain.SessionKey}
	err := r.db.QueryRowContext(ctx, query, domain.SessionKey).Scan(
		&s.User.ID,
		&s.User.Username,
		&s.User.Password,
		&s.User.Email,
		&s.User.PhotoURL,
		&s.User.CreatedAt,
		&s.User.LastSeen,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// Delete clears the session slot. Deleting an absent session is not an error.
func (r *SessionRepo) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session WHERE id = ?`, domain.SessionKey); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
