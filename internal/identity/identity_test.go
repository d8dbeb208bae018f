package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tabletap/internal/storage"
)

func newStore() *Store {
	return NewStore(storage.NewMemoryStore(), zap.NewNop().Sugar())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		fullName string
		phone    string
		wantErr  error
	}{
		{"valid", "Alice", "0123456789", nil},
		{"valid_trimmed_name", "  Jo  ", "9876543210", nil},
		{"name_too_short", "A", "0123456789", ErrNameTooShort},
		{"name_only_spaces", "    ", "0123456789", ErrNameTooShort},
		{"phone_too_short", "Alice", "123456789", ErrInvalidPhone},
		{"phone_too_long", "Alice", "01234567890", ErrInvalidPhone},
		{"phone_letters", "Alice", "01234abcde", ErrInvalidPhone},
		{"phone_with_dashes", "Alice", "012-345-67", ErrInvalidPhone},
		{"phone_empty", "Alice", "", ErrInvalidPhone},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			err := Validate(testCase.fullName, testCase.phone)
			assert.ErrorIs(t, err, testCase.wantErr)
		})
	}
}

func TestStore_SaveAndCurrent(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "  Alice  ", "0123456789"))

	current, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice", current.Name, "name should be persisted trimmed")
	assert.Equal(t, "0123456789", current.Phone)
	assert.True(t, store.IsValid(ctx))
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.Save(ctx, "A", "0123456789"), ErrNameTooShort)
	assert.ErrorIs(t, store.Save(ctx, "Alice", "123"), ErrInvalidPhone)
	assert.False(t, store.IsValid(ctx))
}

func TestStore_SaveOverwrites(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "Alice", "0123456789"))
	require.NoError(t, store.Save(ctx, "Bob", "5555555555"))

	current, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bob", current.Name)
	assert.Equal(t, "5555555555", current.Phone)
}

func TestStore_Clear(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "Alice", "0123456789"))
	require.NoError(t, store.Clear(ctx))

	_, err := store.Current(ctx)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
	assert.False(t, store.IsValid(ctx))
}
