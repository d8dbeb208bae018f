package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tabletap/internal/backend"
	"tabletap/internal/domain"
)

var (
	ErrEmptyCart   = errors.New("cart is empty")
	ErrOrderClosed = errors.New("order has reached a terminal status")
)

type Backend interface {
	CreateOrder(ctx context.Context, req backend.CreateOrderRequest) (domain.Order, error)
	AddOrderItems(ctx context.Context, orderID string, items []backend.OrderItemRequest, additionalAmount float64) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	ListOrders(ctx context.Context, restaurantID, phone string) ([]domain.Order, error)
}

type Cart interface {
	Hydrate(ctx context.Context) error
	Lines() []domain.CartItem
	Total() float64
	Clear(ctx context.Context) error
}

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event domain.OrderEvent) error
}

// Service converts the cart into an order request and submits it. The
// cart is cleared only on success so a failed submission can be retried
// from the same state; a 409 duplicate is surfaced distinctly and never
// clears a second time.
type Service struct {
	backend   Backend
	cart      Cart
	publisher Publisher
	logger    *zap.SugaredLogger
}

func NewService(b Backend, cart Cart, publisher Publisher, logger *zap.SugaredLogger) *Service {
	return &Service{backend: b, cart: cart, publisher: publisher, logger: logger}
}

// Submit posts the current cart. Line prices are the unit final prices
// snapshotted at add-time; later menu changes never alter a placed
// order.
func (s *Service) Submit(ctx context.Context, session domain.Session) (domain.Order, error) {
	// A fresh engine after a restart has only the persisted cart.
	if err := s.cart.Hydrate(ctx); err != nil {
		return domain.Order{}, fmt.Errorf("hydrate cart: %w", err)
	}
	lines := s.cart.Lines()
	if len(lines) == 0 {
		return domain.Order{}, ErrEmptyCart
	}

	req := backend.CreateOrderRequest{
		Items:       toOrderItems(lines),
		TotalAmount: s.cart.Total(),
		TableID:     session.Table.ID,
	}

	placed, err := s.backend.CreateOrder(ctx, req)
	if errors.Is(err, backend.ErrDuplicateOrder) {
		s.logger.Infow("order already placed, keeping state", "table", session.Table.Number)
		return domain.Order{}, backend.ErrDuplicateOrder
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("submit order: %w", err)
	}

	if err := s.cart.Clear(ctx); err != nil {
		s.logger.Errorw("order placed but cart clear failed", "order_id", placed.ID, "error", err)
	}

	if s.publisher != nil {
		_ = s.publisher.PublishOrderPlaced(ctx, domain.OrderEvent{
			Type:         "order_placed",
			OrderID:      placed.ID,
			RestaurantID: session.Restaurant.ID,
			TableID:      session.Table.ID,
			TotalAmount:  placed.TotalAmount,
			ItemCount:    len(placed.Items),
			Timestamp:    time.Now(),
		})
	}

	s.logger.Infow("order placed", "order_id", placed.ID, "order_number", placed.OrderNumber, "total", placed.TotalAmount)
	return placed, nil
}

// AddItems extends a non-terminal order with more lines.
func (s *Service) AddItems(ctx context.Context, orderID string, lines []domain.CartItem) (domain.Order, error) {
	if len(lines) == 0 {
		return domain.Order{}, ErrEmptyCart
	}

	current, err := s.backend.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("check order status: %w", err)
	}
	if current.Status.Terminal() {
		return domain.Order{}, ErrOrderClosed
	}

	var additional float64
	for _, line := range lines {
		additional += line.FinalPrice * float64(line.Quantity)
	}

	updated, err := s.backend.AddOrderItems(ctx, orderID, toOrderItems(lines), additional)
	if err != nil {
		return domain.Order{}, err
	}
	s.logger.Infow("items added to order", "order_id", orderID, "additional", additional)
	return updated, nil
}

// History lists past orders for the identity on this device; a backend
// 404 is an empty history, not an error.
func (s *Service) History(ctx context.Context, restaurantID, phone string) ([]domain.Order, error) {
	return s.backend.ListOrders(ctx, restaurantID, phone)
}

func toOrderItems(lines []domain.CartItem) []backend.OrderItemRequest {
	items := make([]backend.OrderItemRequest, 0, len(lines))
	for _, line := range lines {
		items = append(items, backend.OrderItemRequest{
			MenuItemID: line.MenuItemID,
			Quantity:   line.Quantity,
			Price:      line.FinalPrice,
		})
	}
	return items
}
