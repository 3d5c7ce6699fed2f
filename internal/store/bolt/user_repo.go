package bolt

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"localchat/internal/domain"
)

type UserRepo struct {
	db *bbolt.DB
}

func NewUserRepo(db *bbolt.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserStore = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		users := tx.Bucket(usersBucket)
		index := tx.Bucket(usersByNameBucket)

		if index.Get([]byte(u.Username)) != nil {
			return fmt.Errorf("username %q: %w", u.Username, domain.ErrConflict)
		}

		seq, err := users.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		u.ID = int64(seq)

		data, err := encodeRecord(u)
		if err != nil {
			return err
		}
		if err := users.Put(itob(u.ID), data); err != nil {
			return fmt.Errorf("put user: %w", err)
		}
		if err := index.Put([]byte(u.Username), itob(u.ID)); err != nil {
			return fmt.Errorf("put username index: %w", err)
		}
		return nil
	})
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var u *domain.User
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(usersBucket).Get(itob(id))
		if data == nil {
			return nil
		}
		u = &domain.User{}
		return decodeRecord(data, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u *domain.User
	err := r.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket(usersByNameBucket).Get([]byte(username))
		if key == nil {
			return nil
		}
		data := tx.Bucket(usersBucket).Get(key)
		if data == nil {
			return nil
		}
		u = &domain.User{}
		return decodeRecord(data, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) List(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	err := r.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(usersBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			u := &domain.User{}
			if err := decodeRecord(v, u); err != nil {
				return err
			}
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (r *UserRepo) UpdateLastSeen(ctx context.Context, id int64, at time.Time) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		users := tx.Bucket(usersBucket)
		data := users.Get(itob(id))
		if data == nil {
			return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
		}
		u := &domain.User{}
		if err := decodeRecord(data, u); err != nil {
			return err
		}
		u.LastSeen = at
		updated, err := encodeRecord(u)
		if err != nil {
			return err
		}
		return users.Put(itob(id), updated)
	})
}
