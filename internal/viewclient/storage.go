package viewclient

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio"
	bolt "go.etcd.io/bbolt"
)

// Storage persists opaque values by key. Get returns nil, nil for a key that
// was never written.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

var bClient = []byte("viewclient")

type BoltStorage struct {
	db *bolt.DB
}

func OpenBolt(path string) (*BoltStorage, error) {
	if path == "" {
		return nil, errors.New("viewclient: missing storage path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	return &BoltStorage{db: db}, nil
}

func (s *BoltStorage) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bClient)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

func (s *BoltStorage) Put(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bClient)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
}

func (s *BoltStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// FileStorage keeps one JSON file per key in a directory. Writes are atomic.
type FileStorage struct {
	dir string
}

func OpenFile(dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, errors.New("viewclient: missing storage dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStorage{dir: dir}, nil
}

func (s *FileStorage) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStorage) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return b, err
}

func (s *FileStorage) Put(_ context.Context, key string, value []byte) error {
	if err := renameio.WriteFile(s.path(key), value, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *FileStorage) Close() error { return nil }

// MemoryStorage is a process-local Storage.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStorage) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStorage) Close() error { return nil }
