package bolt

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"localchat/internal/domain"
)

type ChatRepo struct {
	db *bbolt.DB
}

func NewChatRepo(db *bbolt.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

var _ domain.ChatStore = (*ChatRepo)(nil)

func (r *ChatRepo) Create(ctx context.Context, c *domain.Chat) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		chats := tx.Bucket(chatsBucket)
		seq, err := chats.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		c.ID = int64(seq)
		data, err := encodeRecord(c)
		if err != nil {
			return err
		}
		if err := chats.Put(itob(c.ID), data); err != nil {
			return fmt.Errorf("put chat: %w", err)
		}
		return nil
	})
}

func (r *ChatRepo) GetByID(ctx context.Context, id int64) (*domain.Chat, error) {
	var c *domain.Chat
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(chatsBucket).Get(itob(id))
		if data == nil {
			return nil
		}
		c = &domain.Chat{}
		return decodeRecord(data, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ChatRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.Chat, error) {
	var res []*domain.Chat
	err := r.db.View(func(tx *bbolt.Tx) error {
		// Keys are big-endian ids, so the cursor yields id order.
		c := tx.Bucket(chatsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			chat := &domain.Chat{}
			if err := decodeRecord(v, chat); err != nil {
				return err
			}
			if chat.Has(userID) {
				res = append(res, chat)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *ChatRepo) FindByPair(ctx context.Context, userA, userB int64) (*domain.Chat, error) {
	var found *domain.Chat
	err := r.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(chatsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			chat := &domain.Chat{}
			if err := decodeRecord(v, chat); err != nil {
				return err
			}
			if chat.Has(userA) && chat.Has(userB) {
				found = chat
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r *ChatRepo) UpdateLastMessage(ctx context.Context, chatID int64, body string, at time.Time) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		chats := tx.Bucket(chatsBucket)
		data := chats.Get(itob(chatID))
		if data == nil {
			return fmt.Errorf("chat %d: %w", chatID, domain.ErrNotFound)
		}
		chat := &domain.Chat{}
		if err := decodeRecord(data, chat); err != nil {
			return err
		}
		chat.LastMessage = &body
		t := at
		chat.LastMessageTime = &t
		updated, err := encodeRecord(chat)
		if err != nil {
			return err
		}
		return chats.Put(itob(chatID), updated)
	})
}
