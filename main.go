package main

import (
	"net/http"

	"go.uber.org/zap"

	"tabletap/config"
	"tabletap/internal/analytics"
	httpapi "tabletap/internal/api/http"
	"tabletap/internal/app"
	"tabletap/internal/backend"
	"tabletap/internal/cart"
	"tabletap/internal/domain"
	"tabletap/internal/events"
	"tabletap/internal/identity"
	"tabletap/internal/menu"
	"tabletap/internal/order"
	"tabletap/internal/session"
	"tabletap/internal/storage"
)

func main() {
	cfg := config.Load()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	var store storage.Store
	if cfg.RedisAddr != "" {
		store = storage.NewRedisStore(config.MustInitRedis(cfg.RedisAddr), cfg.SessionTTL)
		logger.Infow("using redis store", "addr", cfg.RedisAddr)
	} else {
		store = storage.NewMemoryStore()
		logger.Infow("REDIS_HOST not set, device state is in-memory only")
	}

	var publisher order.Publisher
	if cfg.KafkaBroker != "" {
		writer := config.NewKafkaWriter(cfg.KafkaBroker, cfg.KafkaTopic)
		defer writer.Close()
		publisher = analytics.NewEventPublisher(writer)
		logger.Infow("publishing order events", "broker", cfg.KafkaBroker, "topic", cfg.KafkaTopic)
	}

	var fallback []domain.Category
	if cfg.MenuFallback {
		fallback = menu.FallbackCategories()
	}

	registry := app.NewRegistry(func(deviceID string) *app.App {
		kv := storage.WithNamespace(store, "device:"+deviceID)
		deviceLogger := logger.With("device", deviceID)

		bus := events.NewBus()
		client := backend.NewClient(cfg.BackendURL, nil, deviceLogger)
		ident := identity.NewStore(kv, deviceLogger)
		manager := session.NewManager(client, kv, bus, ident, deviceLogger)
		client.SetTokenSource(manager)

		engine := cart.NewEngine(kv, deviceLogger)
		orders := order.NewService(client, engine, publisher, deviceLogger)
		tracker := order.NewTracker(client, cfg.PollInterval, deviceLogger)

		// The one global listener per device: surfaces expiry in the
		// logs; the UI learns about it from the session state.
		expired, unsubscribe := bus.Subscribe()
		go func() {
			for event := range expired {
				deviceLogger.Warnw("session expired, re-scan required", "reason", event.Reason)
			}
		}()

		return &app.App{
			Backend:  client,
			Bus:      bus,
			Identity: ident,
			Session:  manager,
			Menu:     menu.NewCache(client, fallback, deviceLogger),
			Cart:     engine,
			Orders:   orders,
			Tracker:  tracker,
			Close:    unsubscribe,
		}
	})

	handler := httpapi.NewHandler(registry, cfg.PublicBaseURL, logger)
	router := httpapi.NewRouter(handler)

	logger.Infow("tabletap starting", "addr", cfg.ListenAddr, "backend", cfg.BackendURL)
	logger.Fatal(http.ListenAndServe(cfg.ListenAddr, router))
}
