// Package bolt implements the record store on bbolt, as an alternative to
// the sqlite backend. Records are gob-encoded; store-assigned ids come from
// bucket sequences.
package bolt

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"localchat/internal/domain"
)

var (
	usersBucket       = []byte("users")
	usersByNameBucket = []byte("users_by_username")
	chatsBucket       = []byte("chats")
	messagesBucket    = []byte("messages")
	sessionBucket     = []byte("session")
)

// Open opens (creating on first run) the database file and ensures all
// collection buckets exist.
func Open(path string) (*bbolt.DB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{usersBucket, usersByNameBucket, chatsBucket, messagesBucket, sessionBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return db, nil
}

// NewStore wires all collection repositories over one database handle.
func NewStore(db *bbolt.DB) domain.Store {
	return domain.Store{
		Users:    NewUserRepo(db),
		Chats:    NewChatRepo(db),
		Messages: NewMessageRepo(db),
		Sessions: NewSessionRepo(db),
	}
}

// itob encodes an id as a big-endian key so that byte order matches id order.
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func encodeRecord(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}
