package events

import "sync"

// SessionExpired is broadcast when a session could not be recovered and
// all persisted device state has been cleared. Consumers should prompt
// the user to re-scan the table code.
type SessionExpired struct {
	Reason string
}

// Bus is a typed in-process broadcaster with explicit subscription
// lifecycle, replacing ambient global signaling.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan SessionExpired
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan SessionExpired)}
}

// Subscribe registers a listener and returns its channel plus an
// unsubscribe func. Unsubscribing closes the channel; callers must stop
// reading afterwards.
func (b *Bus) Subscribe() (<-chan SessionExpired, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan SessionExpired, 1)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking; a
// subscriber that has not drained its previous event misses this one.
func (b *Bus) Publish(event SessionExpired) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
