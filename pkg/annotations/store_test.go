package annotations

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatnav/pkg/identity"
)

type storeFactory struct {
	name string
	// open returns a store and a function reopening the same backing data
	open func(t *testing.T) (Store, func() Store)
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{name: "memory", open: func(t *testing.T) (Store, func() Store) {
			s := NewMemoryStore()
			return s, func() Store { return s }
		}},
		{name: "file", open: func(t *testing.T) (Store, func() Store) {
			path := filepath.Join(t.TempDir(), "nested", "annotations.json")
			s, err := NewFileStore(path)
			require.NoError(t, err)
			return s, func() Store {
				reopened, err := NewFileStore(path)
				require.NoError(t, err)
				return reopened
			}
		}},
		{name: "sqlite", open: func(t *testing.T) (Store, func() Store) {
			dsn, err := SQLiteDSNForFile(filepath.Join(t.TempDir(), "annotations.db"))
			require.NoError(t, err)
			s, err := NewSQLiteStore(dsn, "")
			require.NoError(t, err)
			return s, func() Store {
				require.NoError(t, s.Close())
				reopened, err := NewSQLiteStore(dsn, "")
				require.NoError(t, err)
				t.Cleanup(func() { _ = reopened.Close() })
				return reopened
			}
		}},
		{name: "redis", open: func(t *testing.T) (Store, func() Store) {
			mr := miniredis.RunT(t)
			s, err := NewRedisStore(context.Background(), "redis://"+mr.Addr(), "")
			require.NoError(t, err)
			return s, func() Store {
				require.NoError(t, s.Close())
				reopened, err := NewRedisStore(context.Background(), "redis://"+mr.Addr(), "")
				require.NoError(t, err)
				t.Cleanup(func() { _ = reopened.Close() })
				return reopened
			}
		}},
	}
}

func TestStores_EmptyLoad(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			s, _ := f.open(t)
			state, err := s.Load(context.Background())
			require.NoError(t, err)
			require.NotNil(t, state)
			require.Empty(t, state.Items)
		})
	}
}

func TestStores_SaveAndReload(t *testing.T) {
	ctx := context.Background()
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			s, reopen := f.open(t)

			state := NewState()
			state.Apply(identity.Key("known:m-1|r:user"), SetName("intro"))
			state.Apply(identity.Key("h:a9026922|r:user|i:0"), SetFavorite(true))
			require.NoError(t, s.Save(ctx, state))

			loaded, err := reopen().Load(ctx)
			require.NoError(t, err)
			require.Len(t, loaded.Items, 2)
			require.Equal(t, "intro", loaded.Get("known:m-1|r:user").DisplayName())
			require.True(t, loaded.Get("h:a9026922|r:user|i:0").IsFavorite())
		})
	}
}

func TestStores_SaveReplacesWholeState(t *testing.T) {
	ctx := context.Background()
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			s, _ := f.open(t)

			first := NewState()
			first.Apply("a", SetName("a"))
			require.NoError(t, s.Save(ctx, first))

			second := NewState()
			second.Apply("b", SetName("b"))
			require.NoError(t, s.Save(ctx, second))

			loaded, err := s.Load(ctx)
			require.NoError(t, err)
			require.Len(t, loaded.Items, 1)
			require.Equal(t, "b", loaded.Get("b").DisplayName())
		})
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())
	_, err := s.Load(context.Background())
	require.ErrorIs(t, err, ErrStoreClosed)
	require.ErrorIs(t, s.Save(context.Background(), NewState()), ErrStoreClosed)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotations.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := NewFileStore(path)
	require.NoError(t, err)
	_, err = s.Load(context.Background())
	require.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Config{Kind: KindFile, Path: filepath.Join(t.TempDir(), "a.json")})
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, Config{Kind: "SQLite", Path: filepath.Join(t.TempDir(), "a.db")})
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Kind: "mongo"})
	require.ErrorIs(t, err, ErrUnknownStoreKind)

	_, err = Open(ctx, Config{Kind: KindFile})
	require.Error(t, err)
}
