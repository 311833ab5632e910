package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/marcopiovanello/songify/server/internal"
	bolt "go.etcd.io/bbolt"
)

var bucket = []byte("batches")

var ErrNotFound = errors.New("no batch found for the given key")

// Store keeps the history of the batches, keyed by batch id.
type Store struct {
	db *bolt.DB
}

func NewStore(db *bolt.DB) (*Store, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Record stores snap, replacing the previous snapshot of the same batch.
func (s *Store) Record(snap internal.BatchSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(snap.Id), data)
	})
}

func (s *Store) Get(id string) (*internal.BatchSnapshot, error) {
	var snap internal.BatchSnapshot

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(v, &snap)
	})
	if err != nil {
		return nil, err
	}

	return &snap, nil
}

// List returns every stored batch, most recent first.
func (s *Store) List() ([]internal.BatchSnapshot, error) {
	batches := make([]internal.BatchSnapshot, 0)

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, v []byte) error {
			var snap internal.BatchSnapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return err
			}
			batches = append(batches, snap)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(batches, func(a, b internal.BatchSnapshot) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	return batches, nil
}

func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return b.Delete([]byte(id))
	})
}

// Interrupted marks the batches still running when the process stopped. It
// is meant to be called once at startup, before any batch can start.
func (s *Store) Interrupted() (int, error) {
	var n int

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)

		var stale []internal.BatchSnapshot
		err := b.ForEach(func(k, v []byte) error {
			var snap internal.BatchSnapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return err
			}
			if snap.Status == internal.BatchRunning {
				stale = append(stale, snap)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, snap := range stale {
			snap.Status = internal.BatchFailed
			snap.Reason = "interrupted"

			data, err := json.Marshal(snap)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(snap.Id), data); err != nil {
				return err
			}
		}

		n = len(stale)
		return nil
	})

	return n, err
}
