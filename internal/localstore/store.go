// Package localstore persists the CLI's client-side state (the visitor token
// and the admin bearer token) in a small SQLite key/value table.
package localstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	msqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	zlog "github.com/rs/zerolog/log"
)

const (
	KeyVisitorToken = "raw_visitor_token"
	KeyAdminToken   = "raw_token"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	db *sqlx.DB
}

// DefaultPath is where rawctl keeps its state when STATE_DB is unset.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "rawctl.db"
	}
	return filepath.Join(home, ".config", "rawsite", "rawctl.db")
}

// Open opens or creates the database at path and applies migrations.
// Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	// one connection keeps ":memory:" a single database
	db.SetMaxOpenConns(1)

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	driver, err := msqlite.WithInstance(db, &msqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	zlog.Debug().Uint("version", version).Bool("dirty", dirty).Msg("State db ready")
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns "" for a missing key.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.Get(&value, `SELECT value FROM kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Entry is one stored key with its last write time.
type Entry struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *Store) List() ([]Entry, error) {
	var out []Entry
	if err := s.db.Select(&out, `SELECT key, value, updated_at FROM kv ORDER BY key`); err != nil {
		return nil, fmt.Errorf("list state: %w", err)
	}
	return out, nil
}

func (s *Store) VisitorToken() (string, error)    { return s.Get(KeyVisitorToken) }
func (s *Store) SetVisitorToken(tok string) error { return s.Set(KeyVisitorToken, tok) }

func (s *Store) AdminToken() (string, error)    { return s.Get(KeyAdminToken) }
func (s *Store) SetAdminToken(tok string) error { return s.Set(KeyAdminToken, tok) }
func (s *Store) ClearAdminToken() error         { return s.Delete(KeyAdminToken) }
