// Package storagetest checks that a ports.KeyValueStore honours the contract
// the session store relies on.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumeforge/tailor-client/internal/core/ports"
)

// Run exercises store. The store must start empty for the keys used here.
func Run(t *testing.T, store ports.KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, store.Ping(ctx))
	})

	t.Run("absent keys are omitted", func(t *testing.T) {
		got, err := store.Get(ctx, "token", "username")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("set writes every entry", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, map[string]string{"token": "abc", "username": "ada"}))
		got, err := store.Get(ctx, "token", "username", "other")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"token": "abc", "username": "ada"}, got)
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, map[string]string{"token": "def"}))
		got, err := store.Get(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, "def", got["token"])
	})

	t.Run("delete removes every key and is idempotent", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "token", "username"))
		require.NoError(t, store.Delete(ctx, "token", "username"))
		got, err := store.Get(ctx, "token", "username")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("no keys", func(t *testing.T) {
		got, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
		require.NoError(t, store.Delete(ctx))
	})
}
