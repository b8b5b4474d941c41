package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/cloudtun/cloudtun/pkg/types"
)

var (
	bucketState = []byte("state")
	keyRecord   = []byte("record")
)

// BoltStore implements Store using BoltDB. Bolt commits are transactional,
// which gives every Save the crash safety the state record requires: a
// reader never observes a half-written record.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the state database under dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "cloudtun.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketState)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create state bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Load returns the persisted record, or an empty record when none exists.
func (s *BoltStore) Load() (*types.StateRecord, error) {
	record := &types.StateRecord{}
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketState).Get(keyRecord)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, record)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load state record: %w", err)
	}
	return record, nil
}

// Save replaces the persisted record.
func (s *BoltStore) Save(record *types.StateRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketState).Put(keyRecord, data)
	})
}
