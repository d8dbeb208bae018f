package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "k", "v1"))
	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", value)

	require.NoError(t, store.Set(ctx, "k", "v2"))
	value, _ = store.Get(ctx, "k")
	assert.Equal(t, "v2", value)

	require.NoError(t, store.Remove(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Removing an absent key is not an error.
	assert.NoError(t, store.Remove(ctx, "k"))
}

func TestWithNamespaceIsolatesDevices(t *testing.T) {
	shared := NewMemoryStore()
	ctx := context.Background()

	deviceA := WithNamespace(shared, "device:a")
	deviceB := WithNamespace(shared, "device:b")

	require.NoError(t, deviceA.Set(ctx, KeyCart, "cart-a"))
	require.NoError(t, deviceB.Set(ctx, KeyCart, "cart-b"))

	valueA, err := deviceA.Get(ctx, KeyCart)
	require.NoError(t, err)
	assert.Equal(t, "cart-a", valueA)

	require.NoError(t, deviceA.Remove(ctx, KeyCart))
	_, err = deviceA.Get(ctx, KeyCart)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	valueB, err := deviceB.Get(ctx, KeyCart)
	require.NoError(t, err)
	assert.Equal(t, "cart-b", valueB, "removing one device's key leaves the other alone")
}
