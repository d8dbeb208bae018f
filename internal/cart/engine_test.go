package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tabletap/internal/domain"
	"tabletap/internal/storage"
)

var (
	plainItem = domain.MenuItem{
		ID:          "item-tea",
		Name:        "Masala Chai",
		Price:       50,
		IsAvailable: true,
	}

	pizzaItem = domain.MenuItem{
		ID:          "item-pizza",
		Name:        "Margherita",
		Price:       100,
		IsAvailable: true,
		CustomizationGroups: []domain.OptionGroup{
			{
				ID:           "size",
				Name:         "Size",
				Mode:         domain.SingleChoice,
				MinSelection: 1,
				MaxSelection: 1,
				Options: []domain.Option{
					{ID: "regular", Name: "Regular"},
					{ID: "large", Name: "Large", PriceModifier: 3},
				},
			},
			{
				ID:           "toppings",
				Name:         "Toppings",
				Mode:         domain.MultiChoice,
				MinSelection: 0,
				MaxSelection: 2,
				Options: []domain.Option{
					{ID: "olives", Name: "Olives", PriceModifier: 2},
					{ID: "mushrooms", Name: "Mushrooms", PriceModifier: 2},
				},
			},
		},
	}
)

func newEngine() *Engine {
	return NewEngine(storage.NewMemoryStore(), zap.NewNop().Sugar())
}

func TestEngine_AddMergesEquivalentLines(t *testing.T) {
	engine := newEngine()
	ctx := context.Background()

	first, err := engine.Add(ctx, plainItem, nil, "", 2)
	require.NoError(t, err)
	second, err := engine.Add(ctx, plainItem, nil, "", 3)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "same configuration must merge, not fork")
	lines := engine.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestEngine_AddKeepsDistinctConfigurationsApart(t *testing.T) {
	engine := newEngine()
	ctx := context.Background()

	_, err := engine.Add(ctx, plainItem, nil, "", 1)
	require.NoError(t, err)
	_, err = engine.Add(ctx, plainItem, nil, "no sugar", 1)
	require.NoError(t, err)

	assert.Len(t, engine.Lines(), 2, "differing instructions are a different line")
}

func TestEngine_OptionModifiersRaiseUnitPrice(t *testing.T) {
	engine := newEngine()
	ctx := context.Background()

	selected := map[string][]domain.Option{
		"size":     {{ID: "large", Name: "Large", PriceModifier: 3}},
		"toppings": {{ID: "olives", Name: "Olives", PriceModifier: 2}},
	}
	line, err := engine.Add(ctx, pizzaItem, selected, "", 1)
	require.NoError(t, err)

	assert.Equal(t, 100.0, line.BasePrice)
	assert.Equal(t, 105.0, line.FinalPrice)
}

func TestEngine_TotalAndItemCountRecompute(t *testing.T) {
	engine := newEngine()
	ctx := context.Background()

	itemA := domain.MenuItem{ID: "a", Name: "A", Price: 100, IsAvailable: true}
	itemB := domain.MenuItem{
		ID: "b", Name: "B", Price: 50, IsAvailable: true,
		CustomizationGroups: []domain.OptionGroup{
			{
				ID: "extras", Name: "Extras", Mode: domain.MultiChoice, MaxSelection: 1,
				Options: []domain.Option{{ID: "cheese", Name: "Cheese", PriceModifier: 10}},
			},
		},
	}

	_, err := engine.Add(ctx, itemA, nil, "", 2)
	require.NoError(t, err)
	lineB, err := engine.Add(ctx, itemB, map[string][]domain.Option{
		"extras": {{ID: "cheese", Name: "Cheese", PriceModifier: 10}},
	}, "", 1)
	require.NoError(t, err)

	assert.Equal(t, 260.0, engine.Total())
	assert.Equal(t, 3, engine.ItemCount())

	// Totals stay consistent through arbitrary mutation sequences.
	require.NoError(t, engine.AdjustQuantity(ctx, lineB.ID, 2))
	assert.Equal(t, 380.0, engine.Total())
	require.NoError(t, engine.Remove(ctx, lineB.ID))
	assert.Equal(t, 200.0, engine.Total())
	assert.Equal(t, 2, engine.ItemCount())
}

func TestEngine_DecrementRemovesAtZero(t *testing.T) {
	engine := newEngine()
	ctx := context.Background()

	line, err := engine.Add(ctx, plainItem, nil, "", 2)
	require.NoError(t, err)

	require.NoError(t, engine.AdjustQuantity(ctx, line.ID, -1))
	lines := engine.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)

	require.NoError(t, engine.AdjustQuantity(ctx, line.ID, -1))
	assert.Empty(t, engine.Lines())

	assert.ErrorIs(t, engine.AdjustQuantity(ctx, line.ID, 1), ErrLineNotFound)
}

func TestEngine_AddValidation(t *testing.T) {
	engine := newEngine()
	ctx := context.Background()

	_, err := engine.Add(ctx, plainItem, nil, "", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	unavailable := plainItem
	unavailable.IsAvailable = false
	_, err = engine.Add(ctx, unavailable, nil, "", 1)
	assert.ErrorIs(t, err, ErrItemUnavailable)

	// Required size group missing.
	_, err = engine.Add(ctx, pizzaItem, nil, "", 1)
	assert.ErrorIs(t, err, ErrSelectionMissing)
}

func TestEngine_QuickAddGate(t *testing.T) {
	engine := newEngine()
	ctx := context.Background()

	_, err := engine.QuickAdd(ctx, pizzaItem, 1)
	assert.ErrorIs(t, err, ErrConfigurationRequired)

	_, err = engine.QuickAdd(ctx, plainItem, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, engine.ItemCount())
}

func TestEngine_PersistsAndRehydrates(t *testing.T) {
	kv := storage.NewMemoryStore()
	ctx := context.Background()

	engine := NewEngine(kv, zap.NewNop().Sugar())
	_, err := engine.Add(ctx, plainItem, nil, "", 2)
	require.NoError(t, err)

	// A fresh engine over the same store sees the persisted cart.
	revived := NewEngine(kv, zap.NewNop().Sugar())
	require.NoError(t, revived.Hydrate(ctx))
	lines := revived.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "item-tea", lines[0].MenuItemID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 100.0, revived.Total())
}

func TestEngine_ClearEmptiesCartAndStorage(t *testing.T) {
	kv := storage.NewMemoryStore()
	ctx := context.Background()

	engine := NewEngine(kv, zap.NewNop().Sugar())
	_, err := engine.Add(ctx, plainItem, nil, "", 1)
	require.NoError(t, err)

	require.NoError(t, engine.Clear(ctx))
	assert.Empty(t, engine.Lines())

	revived := NewEngine(kv, zap.NewNop().Sugar())
	require.NoError(t, revived.Hydrate(ctx))
	assert.Empty(t, revived.Lines())
}
