package bolt

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"localchat/internal/domain"
)

type SessionRepo struct {
	db *bbolt.DB
}

func NewSessionRepo(db *bbolt.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

var _ domain.SessionStore = (*SessionRepo)(nil)

// Put overwrites the single session slot with the given user snapshot.
func (r *SessionRepo) Put(ctx context.Context, s *domain.Session) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		data, err := encodeRecord(s)
		if err != nil {
			return err
		}
		if err := tx.Bucket(sessionBucket).Put([]byte(domain.SessionKey), data); err != nil {
			return fmt.Errorf("put session: %w", err)
		}
		return nil
	})
}

func (r *SessionRepo) Get(ctx context.Context) (*domain.Session, error) {
	var s *domain.Session
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(sessionBucket).Get([]byte(domain.SessionKey))
		if data == nil {
			return nil
		}
		s = &domain.Session{}
		return decodeRecord(data, s)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Delete clears the session slot. Deleting an absent session is not an error.
func (r *SessionRepo) Delete(ctx context.Context) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete([]byte(domain.SessionKey))
	})
}
