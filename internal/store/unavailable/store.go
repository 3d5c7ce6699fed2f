// Package unavailable implements the record store for environments without a
// persistent-storage capability. Reads behave as an empty database; writes
// fail with domain.ErrStorageUnavailable.
package unavailable

import (
	"context"
	"time"

	"localchat/internal/domain"
)

// NewStore returns a store whose collections hold no data and accept none.
func NewStore() domain.Store {
	return domain.Store{
		Users:    users{},
		Chats:    chats{},
		Messages: messages{},
		Sessions: sessions{},
	}
}

type users struct{}

var _ domain.UserStore = users{}

func (users) Create(ctx context.Context, _ *domain.User) error {
	return domain.ErrStorageUnavailable
}

func (users) GetByID(ctx context.Context, _ int64) (*domain.User, error) {
	return nil, nil
}

func (users) GetByUsername(ctx context.Context, _ string) (*domain.User, error) {
	return nil, nil
}

func (users) List(ctx context.Context) ([]*domain.User, error) {
	return nil, nil
}

func (users) UpdateLastSeen(ctx context.Context, _ int64, _ time.Time) error {
	return domain.ErrStorageUnavailable
}

type chats struct{}

var _ domain.ChatStore = chats{}

func (chats) Create(ctx context.Context, _ *domain.Chat) error {
	return domain.ErrStorageUnavailable
}

func (chats) GetByID(ctx context.Context, _ int64) (*domain.Chat, error) {
	return nil, nil
}

func (chats) ListForUser(ctx context.Context, _ int64) ([]*domain.Chat, error) {
	return nil, nil
}

func (chats) FindByPair(ctx context.Context, _, _ int64) (*domain.Chat, error) {
	return nil, nil
}

func (chats) UpdateLastMessage(ctx context.Context, _ int64, _ string, _ time.Time) error {
	return domain.ErrStorageUnavailable
}

type messages struct{}

var _ domain.MessageStore = messages{}

func (messages) Create(ctx context.Context, _ *domain.Message) error {
	return domain.ErrStorageUnavailable
}

func (messages) ListForChat(ctx context.Context, _ int64) ([]*domain.Message, error) {
	return nil, nil
}

func (messages) MarkRead(ctx context.Context, _, _ int64) (int64, error) {
	return 0, domain.ErrStorageUnavailable
}

type sessions struct{}

var _ domain.SessionStore = sessions{}

func (sessions) Put(ctx context.Context, _ *domain.Session) error {
	return domain.ErrStorageUnavailable
}

func (sessions) Get(ctx context.Context) (*domain.Session, error) {
	return nil, nil
}

func (sessions) Delete(ctx context.Context) error {
	return nil
}
