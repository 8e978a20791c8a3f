package annotations

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const sqliteAnnotationsSchemaV1 = `
CREATE TABLE IF NOT EXISTS annotation_states (
    store_key TEXT PRIMARY KEY,
    payload_json TEXT NOT NULL,
    updated_at_ms INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteStore keeps one JSON payload per store key, so several annotation
// documents can share a database.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	key    string
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dsn string, key string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite annotation store: empty dsn")
	}
	if key == "" {
		key = DefaultStoreKey
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db, key: key}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload_json FROM annotation_states WHERE store_key = ?`, s.key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return NewState(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "sqlite annotation store: load")
	}
	return DecodeState([]byte(payload))
}

func (s *SQLiteStore) Save(ctx context.Context, state *State) error {
	payload, err := EncodeState(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO annotation_states (store_key, payload_json, updated_at_ms)
VALUES (?, ?, ?)
ON CONFLICT(store_key) DO UPDATE SET payload_json = excluded.payload_json, updated_at_ms = excluded.updated_at_ms`,
		s.key,
		string(payload),
		time.Now().UnixMilli(),
	)
	return errors.Wrap(err, "sqlite annotation store: save")
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(sqliteAnnotationsSchemaV1); err != nil {
		return errors.Wrap(err, "sqlite annotation store: migrate")
	}
	return nil
}

func SQLiteDSNForFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("sqlite annotation store: empty path")
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path), nil
}
