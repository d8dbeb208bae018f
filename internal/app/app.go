package app

import (
	"sync"

	"tabletap/internal/backend"
	"tabletap/internal/cart"
	"tabletap/internal/events"
	"tabletap/internal/identity"
	"tabletap/internal/menu"
	"tabletap/internal/order"
	"tabletap/internal/session"
)

// App is the full component set for one device: its own token-holding
// backend client, session manager, menu cache, cart and order service
// over a namespaced slice of the shared store.
type App struct {
	Backend  *backend.Client
	Bus      *events.Bus
	Identity *identity.Store
	Session  *session.Manager
	Menu     *menu.Cache
	Cart     *cart.Engine
	Orders   *order.Service
	Tracker  *order.Tracker

	// Close releases device-scoped resources such as bus subscriptions.
	// Called by Registry.Drop; may be nil.
	Close func()
}

// Registry maps device IDs to their App, creating on first sight.
type Registry struct {
	mu      sync.Mutex
	apps    map[string]*App
	factory func(deviceID string) *App
}

func NewRegistry(factory func(deviceID string) *App) *Registry {
	return &Registry{
		apps:    make(map[string]*App),
		factory: factory,
	}
}

func (r *Registry) Device(deviceID string) *App {
	r.mu.Lock()
	defer r.mu.Unlock()
	if app, ok := r.apps[deviceID]; ok {
		return app
	}
	app := r.factory(deviceID)
	r.apps[deviceID] = app
	return app
}

// Drop forgets a device's in-memory components and closes them;
// persisted state stays in the store until the session manager clears
// it.
func (r *Registry) Drop(deviceID string) {
	r.mu.Lock()
	app, ok := r.apps[deviceID]
	delete(r.apps, deviceID)
	r.mu.Unlock()

	if ok && app.Close != nil {
		app.Close()
	}
}
