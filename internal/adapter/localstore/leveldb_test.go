package localstore_test

import (
	"context"
	"testing"

	"github.com/niksmo/storefront/internal/adapter/localstore"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	s, err := localstore.OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	ctx := t.Context()

	_, err = s.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	require.NoError(t, s.Set(ctx, "k", "v2"))

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Remove(ctx, "k"))
	require.NoError(t, s.Remove(ctx, "k"))

	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreCanceledContext(t *testing.T) {
	s, err := localstore.OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	require.ErrorIs(t, s.Set(ctx, "k", "v"), context.Canceled)
}

func TestStorePersistsHistory(t *testing.T) {
	dir := t.TempDir()

	s, err := localstore.Open(dir)
	require.NoError(t, err)

	_, err = history.New(s).Save(t.Context(), "earbuds")
	require.NoError(t, err)
	s.Close()

	s, err = localstore.Open(dir)
	require.NoError(t, err)
	defer s.Close()

	terms, err := history.New(s).Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"earbuds"}, terms)
}
