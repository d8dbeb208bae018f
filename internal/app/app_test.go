package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_DeviceGetOrCreate(t *testing.T) {
	created := 0
	registry := NewRegistry(func(string) *App {
		created++
		return &App{}
	})

	first := registry.Device("d1")
	assert.Same(t, first, registry.Device("d1"))
	assert.Equal(t, 1, created)

	registry.Device("d2")
	assert.Equal(t, 2, created)
}

func TestRegistry_DropClosesDevice(t *testing.T) {
	closed := 0
	registry := NewRegistry(func(string) *App {
		return &App{Close: func() { closed++ }}
	})

	first := registry.Device("d1")
	registry.Drop("d1")
	assert.Equal(t, 1, closed, "dropping a device releases its resources")

	// The next request for the same ID gets a fresh bundle.
	assert.NotSame(t, first, registry.Device("d1"))
}

func TestRegistry_DropToleratesMissingDeviceAndNilClose(t *testing.T) {
	registry := NewRegistry(func(string) *App { return &App{} })

	require.NotPanics(t, func() { registry.Drop("never-seen") })

	registry.Device("d1")
	require.NotPanics(t, func() { registry.Drop("d1") })
}
