package kv

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
)

type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (s *BadgerStore) Get(key []byte) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (s *BadgerStore) SetBatch(pairs []KVPair) error {
	batch := s.db.NewWriteBatch()
	defer batch.Cancel()

	for _, pair := range pairs {
		if err := batch.Set(pair.Key, pair.Value); err != nil {
			return err
		}
	}
	return batch.Flush()
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
