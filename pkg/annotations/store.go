package annotations

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// DefaultStoreKey names the annotation document inside shared backends.
const DefaultStoreKey = "cgpt_nav_meta_v1"

// Store persists the whole annotation state at once.
type Store interface {
	// Load returns the stored state, an empty state when nothing was saved
	// yet.
	Load(ctx context.Context) (*State, error)
	// Save replaces the stored state.
	Save(ctx context.Context, s *State) error
	Close() error
}

// Kind selects a Store backend.
type Kind string

const (
	KindMemory Kind = "memory"
	KindFile   Kind = "file"
	KindSQLite Kind = "sqlite"
	KindRedis  Kind = "redis"
)

// Config describes which backend to open.
type Config struct {
	Kind Kind
	// Path is the JSON file or SQLite database path.
	Path string
	// RedisURL is a redis:// URL.
	RedisURL string
	// Key names the document within SQLite and Redis.
	Key string
}

// Open builds the Store described by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	key := strings.TrimSpace(cfg.Key)
	if key == "" {
		key = DefaultStoreKey
	}

	switch Kind(strings.ToLower(string(cfg.Kind))) {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindFile:
		return NewFileStore(cfg.Path)
	case KindSQLite:
		dsn, err := SQLiteDSNForFile(cfg.Path)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(dsn, key)
	case KindRedis:
		return NewRedisStore(ctx, cfg.RedisURL, key)
	default:
		return nil, errors.Wrapf(ErrUnknownStoreKind, "%q", cfg.Kind)
	}
}
