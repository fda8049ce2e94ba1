package notify

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var pendingBucket = []byte("outbox")

// Store is the durable outbox. A cursor walk over the pending bucket yields
// in-app items before email, each band oldest due first.
type Store struct {
	db *bolt.DB
}

// Open creates the BoltDB file, its directory and the pending bucket.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("outbox: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("outbox: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pendingBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("outbox: %w", err)
	}
	return &Store{db: db}, nil
}

// key is the priority digit, the due time as big-endian nanoseconds, then the
// id. Byte order of keys is therefore delivery order.
func (i Item) key() []byte {
	k := make([]byte, 0, 10+len(i.ID))
	k = append(k, byte('0'+i.Priority))
	k = binary.BigEndian.AppendUint64(k, uint64(i.Due.UnixNano()))
	k = append(k, '/')
	return append(k, i.ID...)
}

// Put records a new side effect.
func (s *Store) Put(item Item) error {
	if item.Kind != KindEmail && item.Kind != KindInApp {
		return fmt.Errorf("outbox: unknown item kind %q", item.Kind)
	}
	item.normalize()
	return s.write(item)
}

// Pending returns up to limit items in delivery order. Entries that no
// longer decode are skipped.
func (s *Store) Pending(limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 50
	}
	items := make([]Item, 0, limit)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(pendingBucket).Cursor()
		for k, v := c.First(); k != nil && len(items) < limit; k, v = c.Next() {
			var item Item
			if json.Unmarshal(v, &item) == nil {
				items = append(items, item)
			}
		}
		return nil
	})
	return items, err
}

// Ack forgets a delivered or dropped item.
func (s *Store) Ack(item Item) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingBucket).Delete(item.key())
	})
}

// Retry moves item to the back of its band, due at the given time, keeping
// its retry count and creation time.
func (s *Store) Retry(item Item, due time.Time) error {
	old := item.key()
	item.Due = due
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(pendingBucket)
		if err := b.Delete(old); err != nil {
			return err
		}
		return b.Put(item.key(), payload)
	})
}

// Len counts pending items.
func (s *Store) Len() (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(pendingBucket).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) write(item Item) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingBucket).Put(item.key(), payload)
	})
}
