package menu

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tabletap/internal/backend"
	"tabletap/internal/domain"
)

type fakeBackend struct {
	categories []backend.MenuCategory
	err        error
	calls      int
}

func (f *fakeBackend) FetchMenu(context.Context, string) ([]backend.MenuCategory, error) {
	f.calls++
	return f.categories, f.err
}

var wireMenu = []backend.MenuCategory{
	{
		ID:   "c1",
		Name: "Mains",
		Items: []backend.MenuItemPayload{
			{
				ID: "m1", Name: "Pizza", Price: 350, IsActive: true,
				CustomizationGroups: []backend.OptionGroupPayload{
					{
						ID: "size", Name: "Size", MinSelection: 1, MaxSelection: 1,
						Options: []backend.OptionPayload{{ID: "l", Name: "Large", PriceModifier: 50}},
					},
					{
						ID: "extras", Name: "Extras", MinSelection: 0, MaxSelection: 3,
						Options: []backend.OptionPayload{{ID: "cheese", Name: "Cheese", PriceModifier: 30}},
					},
				},
			},
			{ID: "m2", Name: "Sold Out Special", Price: 500, IsActive: false},
		},
	},
	{ID: "c2", Name: "Seasonal", Items: nil},
}

func TestNormalize(t *testing.T) {
	categories := Normalize(wireMenu)

	require.Len(t, categories, 2)
	assert.Empty(t, categories[1].Items, "empty categories are preserved")

	pizza := categories[0].Items[0]
	assert.True(t, pizza.IsAvailable, "isActive maps to IsAvailable")
	assert.False(t, categories[0].Items[1].IsAvailable)

	require.Len(t, pizza.CustomizationGroups, 2)
	assert.Equal(t, domain.SingleChoice, pizza.CustomizationGroups[0].Mode,
		"maxSelection 1 becomes an explicit single-choice group")
	assert.Equal(t, domain.MultiChoice, pizza.CustomizationGroups[1].Mode)
	assert.Equal(t, 50.0, pizza.CustomizationGroups[0].Options[0].PriceModifier)
}

func TestCache_LoadOnceAndLookup(t *testing.T) {
	fake := &fakeBackend{categories: wireMenu}
	cache := NewCache(fake, nil, zap.NewNop().Sugar())
	ctx := context.Background()

	require.NoError(t, cache.Load(ctx, "r1"))
	require.NoError(t, cache.Load(ctx, "r1"))
	assert.Equal(t, 1, fake.calls, "menu is immutable for the session, fetched once")

	item, ok := cache.Item("m1")
	require.True(t, ok)
	assert.Equal(t, "Pizza", item.Name)

	_, ok = cache.Item("nope")
	assert.False(t, ok)
}

func TestCache_FallbackOnFetchFailure(t *testing.T) {
	fake := &fakeBackend{err: errors.New("backend down")}
	cache := NewCache(fake, FallbackCategories(), zap.NewNop().Sugar())

	require.NoError(t, cache.Load(context.Background(), "r1"))
	categories, err := cache.Categories()
	require.NoError(t, err)
	assert.NotEmpty(t, categories)

	_, ok := cache.Item("fallback-margherita")
	assert.True(t, ok)
}

func TestCache_NoFallbackSurfacesError(t *testing.T) {
	fake := &fakeBackend{err: errors.New("backend down")}
	cache := NewCache(fake, nil, zap.NewNop().Sugar())

	assert.Error(t, cache.Load(context.Background(), "r1"))
	_, err := cache.Categories()
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestCache_Prime(t *testing.T) {
	cache := NewCache(&fakeBackend{}, nil, zap.NewNop().Sugar())
	cache.Prime(Normalize(wireMenu))

	assert.True(t, cache.Loaded())
	item, ok := cache.Item("m2")
	require.True(t, ok)
	assert.False(t, item.IsAvailable)
}
