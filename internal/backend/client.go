package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"tabletap/internal/domain"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrDuplicateOrder = errors.New("order already placed")
	ErrUnauthorized   = errors.New("session token rejected")
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource supplies the bearer token for authenticated requests and
// re-resolves the session when the backend rejects it.
type TokenSource interface {
	Token(ctx context.Context) string
	Reauthenticate(ctx context.Context) (string, error)
}

// Client is the typed client for the customer REST API. A 401 on an
// authenticated request triggers exactly one re-authentication and a
// single retry; concurrent 401s share one in-flight refresh instead of
// each bootstrapping on their own.
type Client struct {
	baseURL string
	http    HTTPClient
	tokens  TokenSource
	logger  *zap.SugaredLogger

	refreshMu  sync.Mutex
	inflight   chan struct{}
	refreshed  string
	refreshErr error
}

func NewClient(baseURL string, httpClient HTTPClient, logger *zap.SugaredLogger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		logger:  logger,
	}
}

// SetTokenSource wires the session manager in after construction; the
// two depend on each other (the manager calls InitSession, the client
// calls back on 401).
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

func (c *Client) InitSession(ctx context.Context, restaurantID, tableID string) (domain.Session, error) {
	var out sessionInitResponse
	err := c.do(ctx, http.MethodPost, "/customer/session/init",
		sessionInitRequest{RestaurantID: restaurantID, TableID: tableID}, &out, false)
	if err != nil {
		return domain.Session{}, fmt.Errorf("init session: %w", err)
	}
	return domain.Session{
		Token:      out.Token,
		Restaurant: domain.Restaurant{ID: restaurantID, Name: out.RestaurantName},
		Table:      domain.Table{ID: tableID, Number: out.TableNumber},
	}, nil
}

func (c *Client) FetchMenu(ctx context.Context, restaurantID string) ([]MenuCategory, error) {
	var out menuResponse
	err := c.do(ctx, http.MethodGet, "/customer/menu/"+url.PathEscape(restaurantID), nil, &out, true)
	if err != nil {
		return nil, fmt.Errorf("fetch menu: %w", err)
	}
	return out.Categories, nil
}

// BootstrapTable is the combined session+menu exchange used by the
// QR-path routing variant: one round trip for token, table identity and
// the full menu.
func (c *Client) BootstrapTable(ctx context.Context, tableID string) (domain.Session, []MenuCategory, error) {
	var out tableBootstrapResponse
	err := c.do(ctx, http.MethodGet, "/customer/table/"+url.PathEscape(tableID), nil, &out, false)
	if err != nil {
		return domain.Session{}, nil, fmt.Errorf("bootstrap table: %w", err)
	}
	session := domain.Session{Token: out.Token, Restaurant: out.Restaurant, Table: out.Table}
	if session.Table.ID == "" {
		session.Table.ID = tableID
	}
	return session, out.Categories, nil
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (domain.Order, error) {
	var out orderResponse
	err := c.do(ctx, http.MethodPost, "/customer/orders", req, &out, true)
	if err != nil {
		return domain.Order{}, err
	}
	return out.Order, nil
}

func (c *Client) AddOrderItems(ctx context.Context, orderID string, items []OrderItemRequest, additionalAmount float64) (domain.Order, error) {
	var out orderResponse
	path := "/customer/orders/" + url.PathEscape(orderID) + "/add-items"
	err := c.do(ctx, http.MethodPost, path, addItemsRequest{Items: items, AdditionalAmount: additionalAmount}, &out, true)
	if err != nil {
		return domain.Order{}, fmt.Errorf("add order items: %w", err)
	}
	return out.Order, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	var out orderResponse
	err := c.do(ctx, http.MethodGet, "/customer/orders/"+url.PathEscape(orderID), nil, &out, true)
	if err != nil {
		return domain.Order{}, err
	}
	return out.Order, nil
}

// ListOrders returns the device's order history. A 404 means the
// backend knows of no orders yet and is reported as an empty list.
func (c *Client) ListOrders(ctx context.Context, restaurantID, phone string) ([]domain.Order, error) {
	query := url.Values{}
	query.Set("restaurantId", restaurantID)
	query.Set("phone", phone)

	var out ordersResponse
	err := c.do(ctx, http.MethodGet, "/customer/orders?"+query.Encode(), nil, &out, true)
	if errors.Is(err, ErrNotFound) {
		return []domain.Order{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out.Orders, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, authed bool) error {
	status, err := c.send(ctx, method, path, body, out, authed)
	if err != nil {
		return err
	}
	if status != http.StatusUnauthorized || !authed {
		return c.mapStatus(status, method, path)
	}

	// One re-bootstrap per request, then a single retry.
	if c.tokens == nil {
		return ErrUnauthorized
	}
	if _, err := c.refresh(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	status, err = c.send(ctx, method, path, body, out, authed)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return c.mapStatus(status, method, path)
}

func (c *Client) send(ctx context.Context, method, path string, body, out interface{}, authed bool) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed && c.tokens != nil {
		if token := c.tokens.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) mapStatus(status int, method, path string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrDuplicateOrder
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("%s %s: unexpected status %d", method, path, status)
	}
}

// refresh coalesces concurrent re-authentication attempts: the first
// caller performs the exchange, everyone else waits on the same result.
func (c *Client) refresh(ctx context.Context) (string, error) {
	c.refreshMu.Lock()
	if c.inflight != nil {
		done := c.inflight
		c.refreshMu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		c.refreshMu.Lock()
		token, err := c.refreshed, c.refreshErr
		c.refreshMu.Unlock()
		return token, err
	}
	done := make(chan struct{})
	c.inflight = done
	c.refreshMu.Unlock()

	token, err := c.tokens.Reauthenticate(ctx)
	if err != nil && c.logger != nil {
		c.logger.Warnw("session refresh failed", "error", err)
	}

	c.refreshMu.Lock()
	c.refreshed, c.refreshErr = token, err
	c.inflight = nil
	c.refreshMu.Unlock()
	close(done)

	return token, err
}
