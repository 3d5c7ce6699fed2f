package domain

import (
	"context"
	"time"
)

// UserStore defines persistence operations for users.
//
// Get methods return (nil, nil) when no matching row exists; callers decide
// whether absence is an error.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	UpdateLastSeen(ctx context.Context, id int64, at time.Time) error
}

// ChatStore defines persistence operations for chat threads.
type ChatStore interface {
	Create(ctx context.Context, c *Chat) error
	GetByID(ctx context.Context, id int64) (*Chat, error)
	ListForUser(ctx context.Context, userID int64) ([]*Chat, error)
	// FindByPair returns the chat containing both users regardless of
	// argument order, or (nil, nil) if none exists.
	FindByPair(ctx context.Context, userA, userB int64) (*Chat, error)
	UpdateLastMessage(ctx context.Context, chatID int64, body string, at time.Time) error
}

// MessageStore defines persistence operations for messages.
type MessageStore interface {
	Create(ctx context.Context, m *Message) error
	// ListForChat returns the chat's messages ordered by ascending
	// timestamp, ties broken by ascending id.
	ListForChat(ctx context.Context, chatID int64) ([]*Message, error)
	// MarkRead flips Read on every unread message in the chat not sent by
	// viewerID and returns how many rows changed.
	MarkRead(ctx context.Context, chatID, viewerID int64) (int64, error)
}

// SessionStore persists the single session slot.
type SessionStore interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context) (*Session, error)
	Delete(ctx context.Context) error
}

// Store aggregates the per-collection stores of one backend.
type Store struct {
	Users    UserStore
	Chats    ChatStore
	Messages MessageStore
	Sessions SessionStore
}
