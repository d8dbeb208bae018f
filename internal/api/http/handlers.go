package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"tabletap/internal/app"
	"tabletap/internal/backend"
	"tabletap/internal/cart"
	"tabletap/internal/domain"
	"tabletap/internal/identity"
	"tabletap/internal/menu"
	"tabletap/internal/order"
	"tabletap/internal/session"
)

const deviceCookie = "tabletap_device"

// Handler is the device-facing HTTP surface. Every request is bound to
// a device App via the X-Device-ID header or a generated cookie.
type Handler struct {
	registry      *app.Registry
	publicBaseURL string
	logger        *zap.SugaredLogger
}

func NewHandler(registry *app.Registry, publicBaseURL string, logger *zap.SugaredLogger) *Handler {
	return &Handler{registry: registry, publicBaseURL: publicBaseURL, logger: logger}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.health).Methods("GET")

	r.HandleFunc("/api/session", h.resolveSession).Methods("POST")
	r.HandleFunc("/api/session", h.getSession).Methods("GET")
	r.HandleFunc("/api/session", h.endSession).Methods("DELETE")
	r.HandleFunc("/api/session/table/{tableId}", h.bootstrapTable).Methods("POST")

	r.HandleFunc("/api/menu", h.getMenu).Methods("GET")

	r.HandleFunc("/api/identity", h.saveIdentity).Methods("PUT")
	r.HandleFunc("/api/identity", h.getIdentity).Methods("GET")
	r.HandleFunc("/api/identity", h.clearIdentity).Methods("DELETE")

	r.HandleFunc("/api/cart", h.getCart).Methods("GET")
	r.HandleFunc("/api/cart", h.clearCart).Methods("DELETE")
	r.HandleFunc("/api/cart/items", h.addCartItem).Methods("POST")
	r.HandleFunc("/api/cart/items/{itemId}", h.adjustCartItem).Methods("PATCH")
	r.HandleFunc("/api/cart/items/{itemId}", h.removeCartItem).Methods("DELETE")

	r.HandleFunc("/api/orders", h.submitOrder).Methods("POST")
	r.HandleFunc("/api/orders", h.orderHistory).Methods("GET")
	r.HandleFunc("/api/orders/{orderId}", h.getOrder).Methods("GET")
	r.HandleFunc("/api/orders/{orderId}/items", h.addOrderItems).Methods("POST")
	r.HandleFunc("/api/orders/{orderId}/events", h.streamOrderStatus).Methods("GET")

	r.HandleFunc("/api/table/{tableId}/qr.png", h.tableQRCode).Methods("GET")
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "tabletap"})
}

// deviceID identifies the calling device from the X-Device-ID header or
// cookie, minting a cookie when the browser shows up without one.
func (h *Handler) deviceID(w http.ResponseWriter, r *http.Request) string {
	deviceID := r.Header.Get("X-Device-ID")
	if deviceID == "" {
		if cookie, err := r.Cookie(deviceCookie); err == nil {
			deviceID = cookie.Value
		}
	}
	if deviceID == "" {
		deviceID = newDeviceID()
		http.SetCookie(w, &http.Cookie{
			Name:     deviceCookie,
			Value:    deviceID,
			Path:     "/",
			HttpOnly: true,
		})
	}
	return deviceID
}

// device resolves the per-device App.
func (h *Handler) device(w http.ResponseWriter, r *http.Request) *app.App {
	return h.registry.Device(h.deviceID(w, r))
}

func newDeviceID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "device-fallback"
	}
	return hex.EncodeToString(buf)
}

type resolveRequest struct {
	RestaurantID string `json:"restaurantId"`
	TableID      string `json:"tableId"`
	QRPayload    string `json:"qrPayload"`
}

type sessionResponse struct {
	State      session.State     `json:"state"`
	Session    *domain.Session   `json:"session,omitempty"`
	Categories []domain.Category `json:"categories,omitempty"`
}

func (h *Handler) resolveSession(w http.ResponseWriter, r *http.Request) {
	device := h.device(w, r)

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.QRPayload != "" {
		restaurantID, tableID, err := session.ParseQRPayload(req.QRPayload)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.RestaurantID, req.TableID = restaurantID, tableID
	}

	established, categories, err := device.Session.Resolve(r.Context(), session.Resolution{
		RestaurantID: req.RestaurantID,
		TableID:      req.TableID,
	})
	if errors.Is(err, session.ErrScanRequired) {
		writeJSON(w, http.StatusOK, sessionResponse{State: session.StateScanning})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	if len(categories) > 0 {
		device.Menu.Prime(menu.Normalize(categories))
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		State:   device.Session.State(r.Context()),
		Session: &established,
	})
}

func (h *Handler) bootstrapTable(w http.ResponseWriter, r *http.Request) {
	device := h.device(w, r)
	tableID := mux.Vars(r)["tableId"]

	established, wireCategories, err := device.Session.ResolveByPath(r.Context(), tableID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	categories := menu.Normalize(wireCategories)
	device.Menu.Prime(categories)

	writeJSON(w, http.StatusOK, sessionResponse{
		State:      device.Session.State(r.Context()),
		Session:    &established,
		Categories: categories,
	})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	device := h.device(w, r)
	response := sessionResponse{State: device.Session.State(r.Context())}
	if current, ok := device.Session.Current(); ok {
		response.Session = &current
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	deviceID := h.deviceID(w, r)
	device := h.registry.Device(deviceID)
	device.Session.Expire(r.Context(), "ended by user")
	h.registry.Drop(deviceID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getMenu(w http.ResponseWriter, r *http.Request) {
	device := h.device(w, r)

	if !device.Menu.Loaded() {
		current, ok := device.Session.Current()
		if !ok {
			http.Error(w, "no session", http.StatusConflict)
			return
		}
		if err := device.Menu.Load(r.Context(), current.Restaurant.ID); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
	}

	categories, err := device.Menu.Categories()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

type identityRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (h *Handler) saveIdentity(w http.ResponseWriter, r *http.Request) {
	device := h.device(w, r)

	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := device.Identity.Save(r.Context(), req.Name, req.Phone); err != nil {
		if errors.Is(err, identity.ErrNameTooShort) || errors.Is(err, identity.ErrInvalidPhone) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state": device.Session.State(r.Context()),
	})
}

func (h *Handler) getIdentity(w http.ResponseWriter, r *http.Request) {
	device := h.device(w, r)
	current, err := device.Identity.Current(r.Context())
	if err != nil {
		http.Error(w, "no identity", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (h *Handler) clearIdentity(w http.ResponseWriter, r *http.Request) {
	device := h.device(w, r)
	if err := device.Identity.Clear(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cartResponse struct {
	Lines     []domain.CartItem `json:"lines"`
	Total     float64           `json:"total"`
	ItemCount int               `json:"itemCount"`
}

func (h *Handler) cartState(device *app.App) cartResponse {
	return cartResponse{
		Lines:     device.Cart.Lines(),
		Total:     device.Cart.Total(),
		ItemCount: device.Cart.ItemCount(),
	}
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	device := h.device(w, r)
	if err := device.Cart.Hydrate(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.cartState(device))
}

type addCartItemRequest struct {
	MenuItemID   string              `json:"menuItemId"`
	Options      map[string][]string `json:"options"`
	Instructions string              `json:"instructions"`
	Quantity     int                 `json:"quantity"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	device := h.device(w, r)

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	item, ok := device.Menu.Item(req.MenuItemID)
	if !ok {
		http.Error(w, "menu item not found", http.StatusNotFound)
		return
	}

	var err error
	if len(req.Options) == 0 {
		_, err = device.Cart.QuickAdd(r.Context(), item, req.Quantity)
	} else {
		selection := cart.NewSelection(item)
		for groupID, optionIDs := range req.Options {
			for _, optionID := range optionIDs {
				if chooseErr := selection.Choose(groupID, optionID); chooseErr != nil {
					http.Error(w, chooseErr.Error(), http.StatusUnprocessableEntity)
					return
				}
			}
		}
		_, err = device.Cart.Add(r.Context(), item, selection.Options(), req.Instructions, req.Quantity)
	}
	if err != nil {
		status := http.StatusUnprocessableEntity
		if !errors.Is(err, cart.ErrConfigurationRequired) &&
			!errors.Is(err, cart.ErrItemUnavailable) &&
			!errors.Is(err, cart.ErrSelectionMissing) &&
			!errors.Is(err, cart.ErrTooManySelected) &&
			!errors.Is(err, cart.ErrInvalidQuantity) {
			status = http.StatusInternalServerError
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, h.cartState(device))
}

type adjustRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) adjustCartItem(w http.ResponseWriter, r *http.Request) {
	device := h.device(w, r)
	itemID := mux.Vars(r)["itemId"]

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := device.Cart.AdjustQuantity(r.Context(), itemID, req.Delta); err != nil {
		if errors.Is(err, cart.ErrLineNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.cartState(device))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	device := h.device(w, r)
	itemID := mux.Vars(r)["itemId"]

	if err := device.Cart.Remove(r.Context(), itemID); err != nil {
		if errors.Is(err, cart.ErrLineNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.cartState(device))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	device := h.device(w, r)
	if err := device.Cart.Clear(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) submitOrder(w http.ResponseWriter, r *http.Request) {
	device := h.device(w, r)

	current, ok := device.Session.Current()
	if !ok {
		http.Error(w, "no session", http.StatusConflict)
		return
	}

	placed, err := device.Orders.Submit(r.Context(), current)
	switch {
	case errors.Is(err, backend.ErrDuplicateOrder):
		// Success-adjacent: the kitchen already has this order.
		writeJSON(w, http.StatusConflict, map[string]interface{}{"alreadyPlaced": true})
	case errors.Is(err, order.ErrEmptyCart):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, backend.ErrUnauthorized):
		http.Error(w, "session expired", http.StatusUnauthorized)
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		writeJSON(w, http.StatusCreated, map[string]interface{}{"order": placed})
	}
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	device := h.device(w, r)
	orderID := mux.Vars(r)["orderId"]

	fetched, err := device.Backend.GetOrder(r.Context(), orderID)
	if errors.Is(err, backend.ErrNotFound) {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"order": fetched})
}

func (h *Handler) orderHistory(w http.ResponseWriter, r *http.Request) {
	device := h.device(w, r)

	current, ok := device.Session.Current()
	if !ok {
		http.Error(w, "no session", http.StatusConflict)
		return
	}
	ident, err := device.Identity.Current(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"orders": []domain.Order{}})
		return
	}

	orders, err := device.Orders.History(r.Context(), current.Restaurant.ID, ident.Phone)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

type addItemsAPIRequest struct {
	Lines []domain.CartItem `json:"lines"`
}

func (h *Handler) addOrderItems(w http.ResponseWriter, r *http.Request) {
	device := h.device(w, r)
	orderID := mux.Vars(r)["orderId"]

	var req addItemsAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	lines := req.Lines
	if len(lines) == 0 {
		if err := device.Cart.Hydrate(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		lines = device.Cart.Lines()
	}

	updated, err := device.Orders.AddItems(r.Context(), orderID, lines)
	switch {
	case errors.Is(err, order.ErrOrderClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, order.ErrEmptyCart):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, backend.ErrNotFound):
		http.Error(w, "order not found", http.StatusNotFound)
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		if len(req.Lines) == 0 {
			if err := device.Cart.Clear(r.Context()); err != nil {
				h.logger.Errorw("items added but cart clear failed", "order_id", orderID, "error", err)
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"order": updated})
	}
}

// streamOrderStatus pushes status snapshots over SSE until the order
// reaches a terminal state or the client disconnects; disconnecting
// cancels the underlying poll.
func (h *Handler) streamOrderStatus(w http.ResponseWriter, r *http.Request) {
	device := h.device(w, r)
	orderID := mux.Vars(r)["orderId"]

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for snapshot := range device.Tracker.Track(r.Context(), orderID) {
		payload, err := json.Marshal(snapshot)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "event: status\ndata: %s\n\n", payload)
		flusher.Flush()
	}
}

// tableQRCode renders the QR image a restaurant prints for a table; the
// payload is the URL the customer app resolves on scan.
func (h *Handler) tableQRCode(w http.ResponseWriter, r *http.Request) {
	tableID := mux.Vars(r)["tableId"]
	restaurantID := r.URL.Query().Get("restaurantId")
	if restaurantID == "" {
		http.Error(w, "restaurantId is required", http.StatusBadRequest)
		return
	}

	query := url.Values{}
	query.Set("restaurantId", restaurantID)
	query.Set("tableId", tableID)
	payload := h.publicBaseURL + "/?" + query.Encode()

	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
