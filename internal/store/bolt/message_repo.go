package bolt

import (
	"context"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"localchat/internal/domain"
)

type MessageRepo struct {
	db *bbolt.DB
}

func NewMessageRepo(db *bbolt.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageStore = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		messages := tx.Bucket(messagesBucket)
		seq, err := messages.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		m.ID = int64(seq)
		data, err := encodeRecord(m)
		if err != nil {
			return err
		}
		if err := messages.Put(itob(m.ID), data); err != nil {
			return fmt.Errorf("put message: %w", err)
		}
		return nil
	})
}

func (r *MessageRepo) ListForChat(ctx context.Context, chatID int64) ([]*domain.Message, error) {
	var res []*domain.Message
	err := r.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(messagesBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			m := &domain.Message{}
			if err := decodeRecord(v, m); err != nil {
				return err
			}
			if m.ChatID == chatID {
				res = append(res, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Timestamp.Equal(res[j].Timestamp) {
			return res[i].ID < res[j].ID
		}
		return res[i].Timestamp.Before(res[j].Timestamp)
	})
	return res, nil
}

func (r *MessageRepo) MarkRead(ctx context.Context, chatID, viewerID int64) (int64, error) {
	var flipped int64
	err := r.db.Update(func(tx *bbolt.Tx) error {
		messages := tx.Bucket(messagesBucket)
		c := messages.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			m := &domain.Message{}
			if err := decodeRecord(v, m); err != nil {
				return err
			}
			if m.ChatID != chatID || m.SenderID == viewerID || m.Read {
				continue
			}
			m.Read = true
			data, err := encodeRecord(m)
			if err != nil {
				return err
			}
			if err := messages.Put(itob(m.ID), data); err != nil {
				return fmt.Errorf("put message: %w", err)
			}
			flipped++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return flipped, nil
}
