package order

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tabletap/internal/domain"
)

// scriptedBackend returns each response in order, repeating the last
// one forever.
type scriptedBackend struct {
	calls    int32
	statuses []domain.OrderStatus
	failAt   map[int]error
}

func (s *scriptedBackend) GetOrder(_ context.Context, orderID string) (domain.Order, error) {
	call := int(atomic.AddInt32(&s.calls, 1))
	if err, ok := s.failAt[call]; ok {
		return domain.Order{}, err
	}
	idx := call - 1
	fails := 0
	for at := range s.failAt {
		if at <= call {
			fails++
		}
	}
	idx -= fails
	if idx >= len(s.statuses) {
		idx = len(s.statuses) - 1
	}
	return domain.Order{ID: orderID, Status: s.statuses[idx]}, nil
}

func collect(updates <-chan domain.Order) []domain.OrderStatus {
	var seen []domain.OrderStatus
	for snapshot := range updates {
		seen = append(seen, snapshot.Status)
	}
	return seen
}

func TestTracker_StopsAtTerminalStatus(t *testing.T) {
	scripted := &scriptedBackend{statuses: []domain.OrderStatus{
		domain.StatusReceived, domain.StatusPreparing, domain.StatusReady, domain.StatusServed,
	}}
	tracker := NewTracker(scripted, 2*time.Millisecond, zap.NewNop().Sugar())

	seen := collect(tracker.Track(context.Background(), "o1"))

	require.NotEmpty(t, seen)
	assert.Equal(t, domain.StatusServed, seen[len(seen)-1])
	assert.EqualValues(t, 4, atomic.LoadInt32(&scripted.calls),
		"exactly four polls before cessation")

	// No stray polls after the terminal status.
	time.Sleep(10 * time.Millisecond)
	assert.EqualValues(t, 4, atomic.LoadInt32(&scripted.calls))
}

func TestTracker_TwoPollFlow(t *testing.T) {
	scripted := &scriptedBackend{statuses: []domain.OrderStatus{
		domain.StatusReceived, domain.StatusServed,
	}}
	tracker := NewTracker(scripted, 2*time.Millisecond, zap.NewNop().Sugar())

	collect(tracker.Track(context.Background(), "o1"))
	assert.EqualValues(t, 2, atomic.LoadInt32(&scripted.calls))
}

func TestTracker_TransientFailureKeepsPolling(t *testing.T) {
	scripted := &scriptedBackend{
		statuses: []domain.OrderStatus{domain.StatusReceived, domain.StatusServed},
		failAt:   map[int]error{2: errors.New("network blip")},
	}
	tracker := NewTracker(scripted, 2*time.Millisecond, zap.NewNop().Sugar())

	seen := collect(tracker.Track(context.Background(), "o1"))
	assert.Equal(t, domain.StatusServed, seen[len(seen)-1],
		"a failed poll must not stop the interval")
	assert.EqualValues(t, 3, atomic.LoadInt32(&scripted.calls))
}

func TestTracker_CancellationStopsPolling(t *testing.T) {
	scripted := &scriptedBackend{statuses: []domain.OrderStatus{domain.StatusReceived}}
	tracker := NewTracker(scripted, 2*time.Millisecond, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	updates := tracker.Track(ctx, "o1")

	<-updates
	cancel()

	// The channel closes soon after cancellation.
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case _, open := <-updates:
			if !open {
				polled := atomic.LoadInt32(&scripted.calls)
				time.Sleep(10 * time.Millisecond)
				assert.Equal(t, polled, atomic.LoadInt32(&scripted.calls),
					"no polls after unsubscribe")
				return
			}
		case <-deadline:
			t.Fatal("tracker did not stop after cancellation")
		}
	}
}
