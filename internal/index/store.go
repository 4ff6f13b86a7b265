// Package index keeps the built content graph in bbolt: pages by canonical
// slug, legacy paths by alias, and date-ordered listings.
package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

type Store struct {
	db *bolt.DB
}

type OpenOptions struct {
	Path string // e.g. ".thinblog/index.db"
	// Timeout bounds the wait for the file lock; zero means one second.
	Timeout time.Duration
}

func Open(opt OpenOptions) (*Store, error) {
	if opt.Path == "" {
		return nil, errors.New("index: missing path")
	}
	if opt.Timeout <= 0 {
		opt.Timeout = time.Second
	}
	if err := os.MkdirAll(filepath.Dir(opt.Path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(opt.Path, 0o600, &bolt.Options{Timeout: opt.Timeout})
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, fmt.Errorf("index: %s is locked by another process: %w", opt.Path, err)
	}
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Count returns the number of indexed pages.
func (s *Store) Count() (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bPages); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
