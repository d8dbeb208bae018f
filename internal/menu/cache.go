package menu

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"tabletap/internal/backend"
	"tabletap/internal/domain"
)

var ErrNotLoaded = errors.New("menu not loaded")

type Backend interface {
	FetchMenu(ctx context.Context, restaurantID string) ([]backend.MenuCategory, error)
}

// Cache holds the menu for the duration of a session. It is read-only
// after load; a page reload is the only refresh path exposed to the
// user.
type Cache struct {
	backend  Backend
	logger   *zap.SugaredLogger
	fallback []domain.Category

	mu         sync.RWMutex
	categories []domain.Category
	byID       map[string]domain.MenuItem
	loaded     bool
}

func NewCache(b Backend, fallback []domain.Category, logger *zap.SugaredLogger) *Cache {
	return &Cache{backend: b, fallback: fallback, logger: logger}
}

// Load fetches and normalizes the menu once. When the fetch fails and a
// fallback dataset is configured, the fallback is served instead of an
// error.
func (c *Cache) Load(ctx context.Context, restaurantID string) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}

	wire, err := c.backend.FetchMenu(ctx, restaurantID)
	if err != nil {
		if c.fallback == nil {
			return fmt.Errorf("load menu: %w", err)
		}
		c.logger.Warnw("menu fetch failed, serving fallback dataset", "restaurant_id", restaurantID, "error", err)
		c.prime(c.fallback)
		return nil
	}

	c.prime(Normalize(wire))
	return nil
}

// Prime installs already-normalized categories, used when the combined
// table bootstrap delivered the menu alongside the session.
func (c *Cache) Prime(categories []domain.Category) {
	c.prime(categories)
}

func (c *Cache) prime(categories []domain.Category) {
	byID := make(map[string]domain.MenuItem)
	for _, category := range categories {
		for _, item := range category.Items {
			byID[item.ID] = item
		}
	}

	c.mu.Lock()
	c.categories = categories
	c.byID = byID
	c.loaded = true
	c.mu.Unlock()
}

func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Categories returns the normalized menu. Empty categories are
// preserved; the UI renders them as "no items."
func (c *Cache) Categories() ([]domain.Category, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return nil, ErrNotLoaded
	}
	out := make([]domain.Category, len(c.categories))
	copy(out, c.categories)
	return out, nil
}

func (c *Cache) Item(menuItemID string) (domain.MenuItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.byID[menuItemID]
	return item, ok
}

// Normalize maps wire payloads to domain types: isActive becomes
// IsAvailable and each option group gets an explicit choice mode
// instead of the implicit maxSelection==1 convention.
func Normalize(wire []backend.MenuCategory) []domain.Category {
	categories := make([]domain.Category, 0, len(wire))
	for _, category := range wire {
		items := make([]domain.MenuItem, 0, len(category.Items))
		for _, item := range category.Items {
			items = append(items, domain.MenuItem{
				ID:                  item.ID,
				Name:                item.Name,
				Description:         item.Description,
				Price:               item.Price,
				ImageURL:            item.Image,
				IsVegetarian:        item.IsVegetarian,
				IsSpicy:             item.IsSpicy,
				IsAvailable:         item.IsActive,
				CustomizationGroups: normalizeGroups(item.CustomizationGroups),
			})
		}
		categories = append(categories, domain.Category{
			ID:    category.ID,
			Name:  category.Name,
			Items: items,
		})
	}
	return categories
}

func normalizeGroups(wire []backend.OptionGroupPayload) []domain.OptionGroup {
	if len(wire) == 0 {
		return nil
	}
	groups := make([]domain.OptionGroup, 0, len(wire))
	for _, group := range wire {
		mode := domain.MultiChoice
		if group.MaxSelection == 1 {
			mode = domain.SingleChoice
		}
		options := make([]domain.Option, 0, len(group.Options))
		for _, option := range group.Options {
			options = append(options, domain.Option{
				ID:            option.ID,
				Name:          option.Name,
				PriceModifier: option.PriceModifier,
			})
		}
		groups = append(groups, domain.OptionGroup{
			ID:           group.ID,
			Name:         group.Name,
			Mode:         mode,
			MinSelection: group.MinSelection,
			MaxSelection: group.MaxSelection,
			Options:      options,
		})
	}
	return groups
}
