package order

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tabletap/internal/domain"
)

type StatusBackend interface {
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
}

// Tracker polls an order's status until it reaches a terminal value.
// Each subscription owns its goroutine and channel bound to the caller's
// context, so tearing a view down cancels its poll and a superseded
// subscription can never race a newer one.
type Tracker struct {
	backend  StatusBackend
	interval time.Duration
	logger   *zap.SugaredLogger
}

func NewTracker(b StatusBackend, interval time.Duration, logger *zap.SugaredLogger) *Tracker {
	return &Tracker{backend: b, interval: interval, logger: logger}
}

// Track polls immediately and then on the fixed interval, sending each
// fetched snapshot. Transient fetch failures are logged and skipped;
// only a terminal status or context cancellation stops the poll. The
// channel is closed when polling stops. The buffer holds one snapshot
// and drops the stale one when the consumer lags.
func (t *Tracker) Track(ctx context.Context, orderID string) <-chan domain.Order {
	updates := make(chan domain.Order, 1)

	go func() {
		defer close(updates)

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			order, err := t.backend.GetOrder(ctx, orderID)
			switch {
			case err != nil && ctx.Err() != nil:
				return
			case err != nil:
				t.logger.Warnw("order status poll failed", "order_id", orderID, "error", err)
			default:
				select {
				case updates <- order:
				default:
					select {
					case <-updates:
					default:
					}
					updates <- order
				}
				if order.Status.Terminal() {
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return updates
}
