// Package counter is a small self-hosted page counter that speaks the
// `/counter/<path>.json` protocol the views resolver reads.
package counter

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db   *sql.DB
	salt string
	now  func() time.Time
}

// NewStore opens (or creates) the sqlite database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("counter: missing database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open counter db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if s.salt, err = s.loadSalt(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load salt: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS hits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL,
			visitor TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_hits_path ON hits(path);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// loadSalt returns the per-database visitor salt, creating it on first use.
func (s *Store) loadSalt() (string, error) {
	var salt string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = 'salt'`).Scan(&salt)
	if err == nil {
		return salt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	salt = hex.EncodeToString(buf)
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO settings (key, value) VALUES ('salt', ?)`, salt); err != nil {
		return "", err
	}
	// another process may have won the insert
	err = s.db.QueryRow(`SELECT value FROM settings WHERE key = 'salt'`).Scan(&salt)
	return salt, err
}

// VisitorID hashes ip and user agent with the store salt. The raw values are
// never stored.
func (s *Store) VisitorID(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(s.salt + "|" + ip + "|" + userAgent))
	return hex.EncodeToString(sum[:16])
}

// Record stores one hit on path. path is kept exactly as given.
func (s *Store) Record(ctx context.Context, path, visitor string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hits (path, visitor, created_at) VALUES (?, ?, ?)`,
		path, visitor, s.now().UTC(),
	)
	return err
}

// Count returns total and unique hits on path.
func (s *Store) Count(ctx context.Context, path string) (total, unique int64, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT visitor) FROM hits WHERE path = ?`, path,
	).Scan(&total, &unique)
	return total, unique, err
}
