package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Badr133ne/sim-charge-guardian/internal/store"
)

// SQLiteStore keeps the state snapshot as a single keyed row.
type SQLiteStore struct {
	db  *sql.DB
	key string
}

func NewSQLiteStore(dbPath, key string) (*SQLiteStore, error) {
	if key == "" {
		return nil, errors.New("state key is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, key: key}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (store.State, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM app_state WHERE state_key = ?`, s.key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return store.State{}, store.ErrNoState
	}
	if err != nil {
		return store.State{}, fmt.Errorf("select state: %w", err)
	}

	st, err := store.Decode([]byte(payload))
	if err != nil {
		return store.State{}, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}

func (s *SQLiteStore) Save(ctx context.Context, st store.State) error {
	payload, err := store.Encode(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_state (state_key, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(state_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		s.key, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
