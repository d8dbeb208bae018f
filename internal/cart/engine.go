package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tabletap/internal/domain"
	"tabletap/internal/storage"
)

var (
	ErrItemUnavailable       = errors.New("menu item is not available")
	ErrInvalidQuantity       = errors.New("quantity must be at least 1")
	ErrLineNotFound          = errors.New("cart line not found")
	ErrConfigurationRequired = errors.New("item has required option groups, use the configuration flow")
)

var lineCounter uint64

func nextLineID() string {
	return fmt.Sprintf("line_%d_%d", time.Now().UnixNano(), atomic.AddUint64(&lineCounter, 1))
}

// Engine holds the cart lines for one device. Two adds with the same
// menu item, option configuration and instructions merge into a single
// line. Every mutation persists the full cart synchronously; hydration
// from storage happens once, before the first mutation is accepted.
type Engine struct {
	kv     storage.Store
	logger *zap.SugaredLogger

	mu       sync.Mutex
	lines    []domain.CartItem
	hydrated bool
}

func NewEngine(kv storage.Store, logger *zap.SugaredLogger) *Engine {
	return &Engine{kv: kv, logger: logger}
}

// RequiresConfiguration reports whether the item cannot be quick-added
// because some option group demands a selection.
func RequiresConfiguration(item domain.MenuItem) bool {
	for _, group := range item.CustomizationGroups {
		if group.Required() {
			return true
		}
	}
	return false
}

// Add resolves the unit price from the base price plus selected option
// modifiers and either merges into an equivalent line or appends a new
// one.
func (e *Engine) Add(ctx context.Context, item domain.MenuItem, selected map[string][]domain.Option, instructions string, quantity int) (domain.CartItem, error) {
	if quantity < 1 {
		return domain.CartItem{}, ErrInvalidQuantity
	}
	if !item.IsAvailable {
		return domain.CartItem{}, ErrItemUnavailable
	}
	if err := ValidateSelection(item, selected); err != nil {
		return domain.CartItem{}, err
	}

	unitPrice := item.Price
	for _, options := range selected {
		for _, option := range options {
			unitPrice += option.PriceModifier
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.hydrateLocked(ctx); err != nil {
		return domain.CartItem{}, err
	}

	key := lineKey(item.ID, selected, instructions)
	for i := range e.lines {
		line := e.lines[i]
		if lineKey(line.MenuItemID, line.SelectedOptions, line.Instructions) == key {
			e.lines[i].Quantity += quantity
			if err := e.persistLocked(ctx); err != nil {
				e.lines[i].Quantity -= quantity
				return domain.CartItem{}, err
			}
			return e.lines[i], nil
		}
	}

	line := domain.CartItem{
		ID:              nextLineID(),
		MenuItemID:      item.ID,
		Name:            item.Name,
		ImageURL:        item.ImageURL,
		BasePrice:       item.Price,
		FinalPrice:      unitPrice,
		Quantity:        quantity,
		SelectedOptions: selected,
		Instructions:    instructions,
	}
	e.lines = append(e.lines, line)
	if err := e.persistLocked(ctx); err != nil {
		e.lines = e.lines[:len(e.lines)-1]
		return domain.CartItem{}, err
	}
	return line, nil
}

// QuickAdd adds an item with no customization. Items with required
// groups are rejected and must go through the configuration flow.
func (e *Engine) QuickAdd(ctx context.Context, item domain.MenuItem, quantity int) (domain.CartItem, error) {
	if RequiresConfiguration(item) {
		return domain.CartItem{}, ErrConfigurationRequired
	}
	return e.Add(ctx, item, nil, "", quantity)
}

// AdjustQuantity applies a delta to a line; a result of zero or less
// removes the line.
func (e *Engine) AdjustQuantity(ctx context.Context, lineID string, delta int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.hydrateLocked(ctx); err != nil {
		return err
	}

	for i := range e.lines {
		if e.lines[i].ID != lineID {
			continue
		}
		if e.lines[i].Quantity+delta <= 0 {
			e.lines = append(e.lines[:i], e.lines[i+1:]...)
		} else {
			e.lines[i].Quantity += delta
		}
		return e.persistLocked(ctx)
	}
	return ErrLineNotFound
}

func (e *Engine) Remove(ctx context.Context, lineID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.hydrateLocked(ctx); err != nil {
		return err
	}

	for i := range e.lines {
		if e.lines[i].ID == lineID {
			e.lines = append(e.lines[:i], e.lines[i+1:]...)
			return e.persistLocked(ctx)
		}
	}
	return ErrLineNotFound
}

func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hydrated = true
	e.lines = nil
	return e.persistLocked(ctx)
}

// Total recomputes Σ(finalPrice × quantity) from the current lines on
// every call; nothing is cached, so it cannot drift.
func (e *Engine) Total() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var total float64
	for _, line := range e.lines {
		total += line.FinalPrice * float64(line.Quantity)
	}
	return total
}

func (e *Engine) ItemCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	var count int
	for _, line := range e.lines {
		count += line.Quantity
	}
	return count
}

func (e *Engine) Lines() []domain.CartItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.CartItem, len(e.lines))
	copy(out, e.lines)
	return out
}

// Hydrate loads the persisted cart. Safe to call eagerly; mutating
// operations hydrate lazily if it was skipped.
func (e *Engine) Hydrate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hydrateLocked(ctx)
}

func (e *Engine) hydrateLocked(ctx context.Context) error {
	if e.hydrated {
		return nil
	}
	blob, err := e.kv.Get(ctx, storage.KeyCart)
	if errors.Is(err, storage.ErrKeyNotFound) {
		e.hydrated = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	var lines []domain.CartItem
	if err := json.Unmarshal([]byte(blob), &lines); err != nil {
		// A corrupt blob should not brick the cart; start fresh.
		e.logger.Warnw("discarding unreadable persisted cart", "error", err)
		lines = nil
	}
	e.lines = lines
	e.hydrated = true
	return nil
}

func (e *Engine) persistLocked(ctx context.Context) error {
	blob, err := json.Marshal(e.lines)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := e.kv.Set(ctx, storage.KeyCart, string(blob)); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

// lineKey canonicalizes the merge identity of a line: menu item, the
// selected options per group in a stable order, and instructions.
func lineKey(menuItemID string, selected map[string][]domain.Option, instructions string) string {
	groupIDs := make([]string, 0, len(selected))
	for groupID, options := range selected {
		if len(options) == 0 {
			continue
		}
		groupIDs = append(groupIDs, groupID)
	}
	sort.Strings(groupIDs)

	var b strings.Builder
	b.WriteString(menuItemID)
	for _, groupID := range groupIDs {
		optionIDs := make([]string, 0, len(selected[groupID]))
		for _, option := range selected[groupID] {
			optionIDs = append(optionIDs, option.ID)
		}
		sort.Strings(optionIDs)
		b.WriteString("|")
		b.WriteString(groupID)
		b.WriteString("=")
		b.WriteString(strings.Join(optionIDs, ","))
	}
	b.WriteString("|")
	b.WriteString(instructions)
	return b.String()
}
