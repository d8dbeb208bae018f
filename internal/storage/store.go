package storage

import (
	"context"
	"errors"
)

var ErrKeyNotFound = errors.New("key not found")

// Store is the persistence contract for per-device client state. The
// core logic never talks to a concrete backend directly, so tests run
// against MemoryStore and production against RedisStore.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Well-known keys. Everything here is cleared together when a session
// expires beyond recovery.
const (
	KeyCustomerName  = "customer_name"
	KeyCustomerPhone = "customer_phone"
	KeySession       = "session"
	KeyCart          = "cart"
	KeyTableShortcut = "table_shortcut"
)

// SessionKeys lists every key wiped on session-expired recovery.
func SessionKeys() []string {
	return []string{KeyCustomerName, KeyCustomerPhone, KeySession, KeyCart, KeyTableShortcut}
}

type namespaced struct {
	inner  Store
	prefix string
}

// WithNamespace returns a view of s where every key is prefixed, giving
// each device its own key space on a shared backend.
func WithNamespace(s Store, prefix string) Store {
	return &namespaced{inner: s, prefix: prefix + ":"}
}

func (n *namespaced) Get(ctx context.Context, key string) (string, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key, value string) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Remove(ctx context.Context, key string) error {
	return n.inner.Remove(ctx, n.prefix+key)
}
