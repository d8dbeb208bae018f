package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tabletap/internal/backend"
	"tabletap/internal/domain"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// OrderBackend mocks order.Backend.
type OrderBackend struct {
	mock.Mock
}

func NewOrderBackend(t testingT) *OrderBackend {
	m := &OrderBackend{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *OrderBackend) CreateOrder(ctx context.Context, req backend.CreateOrderRequest) (domain.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *OrderBackend) AddOrderItems(ctx context.Context, orderID string, items []backend.OrderItemRequest, additionalAmount float64) (domain.Order, error) {
	args := m.Called(ctx, orderID, items, additionalAmount)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *OrderBackend) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *OrderBackend) ListOrders(ctx context.Context, restaurantID, phone string) ([]domain.Order, error) {
	args := m.Called(ctx, restaurantID, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

// SessionBackend mocks session.Backend.
type SessionBackend struct {
	mock.Mock
}

func NewSessionBackend(t testingT) *SessionBackend {
	m := &SessionBackend{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *SessionBackend) InitSession(ctx context.Context, restaurantID, tableID string) (domain.Session, error) {
	args := m.Called(ctx, restaurantID, tableID)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *SessionBackend) BootstrapTable(ctx context.Context, tableID string) (domain.Session, []backend.MenuCategory, error) {
	args := m.Called(ctx, tableID)
	var categories []backend.MenuCategory
	if args.Get(1) != nil {
		categories = args.Get(1).([]backend.MenuCategory)
	}
	return args.Get(0).(domain.Session), categories, args.Error(2)
}

// OrderPublisher mocks order.Publisher.
type OrderPublisher struct {
	mock.Mock
}

func NewOrderPublisher(t testingT) *OrderPublisher {
	m := &OrderPublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *OrderPublisher) PublishOrderPlaced(ctx context.Context, event domain.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
