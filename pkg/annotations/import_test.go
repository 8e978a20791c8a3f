package annotations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatnav/pkg/identity"
)

func TestValidatePayload(t *testing.T) {
	require.NoError(t, ValidatePayload([]byte(`{"items":{"k":{"name":"a","fav":true,"color":"red"}},"version":2}`)))
	require.NoError(t, ValidatePayload([]byte(`{}`)))

	err := ValidatePayload([]byte(`{"items":{"k":{"fav":"yes"}}}`))
	require.ErrorIs(t, err, ErrInvalidPayload)
	require.Contains(t, err.Error(), "fav")

	require.ErrorIs(t, ValidatePayload([]byte(`[1,2]`)), ErrInvalidPayload)
	require.ErrorIs(t, ValidatePayload([]byte(`{not json`)), ErrInvalidPayload)
}

func TestRegistry_Import(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := NewRegistry(store)
	r.Load(ctx)

	existing := identity.Key("known:a|r:user")
	_, err := r.Patch(ctx, existing, SetName("kept"))
	require.NoError(t, err)

	s, err := ParseImport([]byte(`{"items":{
		"known:a|r:user":{"fav":true},
		"known:b|r:assistant":{"name":"Answer"},
		"known:c|r:user":{"color":"red"}
	}}`))
	require.NoError(t, err)

	n, err := r.Import(ctx, s)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	a := r.Get(existing)
	require.Equal(t, "kept", a.DisplayName())
	require.True(t, a.IsFavorite())
	require.Equal(t, "Answer", r.Get("known:b|r:assistant").DisplayName())

	reloaded := NewRegistry(store)
	reloaded.Load(ctx)
	require.Equal(t, []identity.Key{existing}, reloaded.Favorites())
}

func TestRegistry_Match(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(NewMemoryStore())
	r.Load(ctx)
	for _, k := range []identity.Key{"known:a|r:user", "known:b|r:assistant", "h:1f|r:user|i:0"} {
		_, err := r.ToggleFavorite(ctx, k)
		require.NoError(t, err)
	}

	keys, err := r.Match("known:*")
	require.NoError(t, err)
	require.Equal(t, []identity.Key{"known:a|r:user", "known:b|r:assistant"}, keys)

	keys, err = r.Match("*|r:user*")
	require.NoError(t, err)
	require.Equal(t, []identity.Key{"h:1f|r:user|i:0", "known:a|r:user"}, keys)

	keys, err = r.Match("")
	require.NoError(t, err)
	require.Len(t, keys, 3)
}
