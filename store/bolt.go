package store

import (
	"fmt"

	"go.etcd.io/bbolt"
)

var bucketName = []byte("walletbridge")

// Bolt is a Store backed by a BBolt database, used for records that
// should survive a bridge restart (the current session).
type Bolt struct {
	db *bbolt.DB
}

var _ Store = (*Bolt)(nil)

// NewBolt returns a Store backed by the given BBolt database.
func NewBolt(db *bbolt.DB) (*Bolt, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating bucket: %w", err)
	}
	return &Bolt{db: db}, nil
}

// NewBoltFromFile opens a BBolt database at the given path and returns a
// new Store.
func NewBoltFromFile(path string, options *bbolt.Options) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewBolt(db)
}

// Close closes the underlying BBolt database.
func (s *Bolt) Close() error {
	return s.db.Close()
}

func (s *Bolt) Get(key string) ([]byte, bool) {
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketName).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		value = make([]byte, len(data))
		copy(value, data)
		return nil
	})
	if err != nil {
		return nil, false
	}
	return value, true
}

func (s *Bolt) Put(key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), value)
	})
}

func (s *Bolt) Delete(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}
