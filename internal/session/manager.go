package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"tabletap/internal/backend"
	"tabletap/internal/domain"
	"tabletap/internal/events"
	"tabletap/internal/identity"
	"tabletap/internal/storage"
)

var (
	ErrScanRequired   = errors.New("no table identity available, scan required")
	ErrSessionExpired = errors.New("session expired")
	ErrBadQRPayload   = errors.New("qr payload is missing restaurant or table id")
)

// State is the resolution progress of the device session, with the
// identity sub-flow gating access to ordering.
type State string

const (
	StateUnresolved       State = "UNRESOLVED"
	StateScanning         State = "SCANNING"
	StateConfirming       State = "CONFIRMING"
	StateEstablished      State = "ESTABLISHED"
	StateIdentityRequired State = "IDENTITY_REQUIRED"
	StateReady            State = "READY"
)

type Backend interface {
	InitSession(ctx context.Context, restaurantID, tableID string) (domain.Session, error)
	BootstrapTable(ctx context.Context, tableID string) (domain.Session, []backend.MenuCategory, error)
}

// Resolution carries the table identity hints available at page load,
// in priority order: explicit IDs, an opaque path table id, then
// whatever was persisted from a previous visit.
type Resolution struct {
	RestaurantID string
	TableID      string
	PathTableID  string
}

// Manager exchanges table identity for a bearer-token session, persists
// it, and recovers from expiry with at most one re-bootstrap per
// request. It is the client's TokenSource.
type Manager struct {
	backend  Backend
	kv       storage.Store
	bus      *events.Bus
	identity *identity.Store
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	state   State
	session domain.Session
}

func NewManager(b Backend, kv storage.Store, bus *events.Bus, ident *identity.Store, logger *zap.SugaredLogger) *Manager {
	return &Manager{
		backend:  b,
		kv:       kv,
		bus:      bus,
		identity: ident,
		logger:   logger,
		state:    StateUnresolved,
	}
}

// ParseQRPayload extracts the restaurant and table IDs from a scanned
// QR code, which encodes a URL with restaurantId and tableId query
// parameters.
func ParseQRPayload(raw string) (restaurantID, tableID string, err error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse qr payload: %w", err)
	}
	query := parsed.Query()
	restaurantID = query.Get("restaurantId")
	tableID = query.Get("tableId")
	if restaurantID == "" || tableID == "" {
		return "", "", ErrBadQRPayload
	}
	return restaurantID, tableID, nil
}

// Resolve walks the source priority list. It returns menu categories
// only when the path-bootstrap variant supplied them in the same round
// trip.
func (m *Manager) Resolve(ctx context.Context, res Resolution) (domain.Session, []backend.MenuCategory, error) {
	if res.RestaurantID != "" && res.TableID != "" {
		session, err := m.Establish(ctx, res.RestaurantID, res.TableID)
		return session, nil, err
	}
	if res.PathTableID != "" {
		return m.ResolveByPath(ctx, res.PathTableID)
	}
	if session, err := m.restore(ctx); err == nil {
		return session, nil, nil
	}

	m.mu.Lock()
	m.state = StateScanning
	m.mu.Unlock()
	return domain.Session{}, nil, ErrScanRequired
}

// Establish exchanges a restaurant+table pair for a session token and
// persists the result.
func (m *Manager) Establish(ctx context.Context, restaurantID, tableID string) (domain.Session, error) {
	m.setState(StateConfirming)

	session, err := m.backend.InitSession(ctx, restaurantID, tableID)
	if err != nil {
		m.setState(StateScanning)
		return domain.Session{}, fmt.Errorf("establish session: %w", err)
	}
	if err := m.adopt(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

// ResolveByPath performs the combined session+menu bootstrap from a
// single opaque table identifier.
func (m *Manager) ResolveByPath(ctx context.Context, tableID string) (domain.Session, []backend.MenuCategory, error) {
	m.setState(StateConfirming)

	session, categories, err := m.backend.BootstrapTable(ctx, tableID)
	if err != nil {
		m.setState(StateScanning)
		return domain.Session{}, nil, fmt.Errorf("resolve by path: %w", err)
	}
	if err := m.adopt(ctx, session); err != nil {
		return domain.Session{}, nil, err
	}
	_ = m.kv.Set(ctx, storage.KeyTableShortcut, tableID)
	return session, categories, nil
}

func (m *Manager) adopt(ctx context.Context, session domain.Session) error {
	blob, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.kv.Set(ctx, storage.KeySession, string(blob)); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	m.mu.Lock()
	m.session = session
	m.state = StateEstablished
	m.mu.Unlock()

	m.logger.Infow("session established",
		"restaurant", session.Restaurant.Name, "table", session.Table.Number)
	return nil
}

func (m *Manager) restore(ctx context.Context) (domain.Session, error) {
	blob, err := m.kv.Get(ctx, storage.KeySession)
	if err != nil {
		return domain.Session{}, err
	}
	var session domain.Session
	if err := json.Unmarshal([]byte(blob), &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode persisted session: %w", err)
	}
	if session.Token == "" {
		return domain.Session{}, ErrScanRequired
	}

	m.mu.Lock()
	m.session = session
	m.state = StateEstablished
	m.mu.Unlock()
	return session, nil
}

// Token implements backend.TokenSource.
func (m *Manager) Token(ctx context.Context) string {
	m.mu.Lock()
	token := m.session.Token
	m.mu.Unlock()
	if token != "" {
		return token
	}
	// Cold start after a process restart: fall back to storage.
	session, err := m.restore(ctx)
	if err != nil {
		return ""
	}
	return session.Token
}

// Reauthenticate re-resolves the session from the last known table
// identity. On failure it clears all persisted device state and
// publishes a single SessionExpired event; it never retries, so a dead
// backend cannot cause a refresh loop.
func (m *Manager) Reauthenticate(ctx context.Context) (string, error) {
	m.mu.Lock()
	restaurantID := m.session.Restaurant.ID
	tableID := m.session.Table.ID
	m.mu.Unlock()

	if tableID == "" {
		if persisted, err := m.restore(ctx); err == nil {
			restaurantID = persisted.Restaurant.ID
			tableID = persisted.Table.ID
		}
	}

	if tableID != "" {
		var (
			session domain.Session
			err     error
		)
		if restaurantID != "" {
			session, err = m.backend.InitSession(ctx, restaurantID, tableID)
		} else {
			session, _, err = m.backend.BootstrapTable(ctx, tableID)
		}
		if err == nil {
			if err := m.adopt(ctx, session); err != nil {
				return "", err
			}
			m.logger.Infow("session refreshed", "table", session.Table.Number)
			return session.Token, nil
		}
		m.logger.Warnw("session refresh rejected", "table_id", tableID, "error", err)
	}

	m.expire(ctx, "re-authentication failed")
	return "", ErrSessionExpired
}

// Expire force-clears the session, e.g. when the user walks away.
func (m *Manager) Expire(ctx context.Context, reason string) {
	m.expire(ctx, reason)
}

func (m *Manager) expire(ctx context.Context, reason string) {
	for _, key := range storage.SessionKeys() {
		_ = m.kv.Remove(ctx, key)
	}

	m.mu.Lock()
	m.session = domain.Session{}
	m.state = StateScanning
	m.mu.Unlock()

	m.logger.Warnw("session expired", "reason", reason)
	m.bus.Publish(events.SessionExpired{Reason: reason})
}

// Current returns the active session, if any.
func (m *Manager) Current() (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.session.Token != ""
}

// State reports the resolution state folded with the identity gate: an
// established session without a valid identity is IDENTITY_REQUIRED.
func (m *Manager) State(ctx context.Context) State {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	if state != StateEstablished {
		return state
	}
	if m.identity != nil && !m.identity.IsValid(ctx) {
		return StateIdentityRequired
	}
	return StateReady
}

func (m *Manager) setState(state State) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}
