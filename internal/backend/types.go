package backend

import "tabletap/internal/domain"

// Wire types for the customer REST contract. Menu payloads keep the
// backend's isActive flag; the menu cache maps it to IsAvailable.

type OptionPayload struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	PriceModifier float64 `json:"priceModifier"`
}

type OptionGroupPayload struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	MinSelection int             `json:"minSelection"`
	MaxSelection int             `json:"maxSelection"`
	Options      []OptionPayload `json:"options"`
}

type MenuItemPayload struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	Description         string               `json:"description"`
	Price               float64              `json:"price"`
	Image               string               `json:"image"`
	IsVegetarian        bool                 `json:"isVegetarian"`
	IsSpicy             bool                 `json:"isSpicy"`
	IsActive            bool                 `json:"isActive"`
	CustomizationGroups []OptionGroupPayload `json:"customizationGroups"`
}

type MenuCategory struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	Items []MenuItemPayload `json:"items"`
}

type OrderItemRequest struct {
	MenuItemID string  `json:"menuItemId"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
}

type CreateOrderRequest struct {
	Items       []OrderItemRequest `json:"items"`
	TotalAmount float64            `json:"totalAmount"`
	TableID     string             `json:"tableId,omitempty"`
}

type sessionInitRequest struct {
	RestaurantID string `json:"restaurantId"`
	TableID      string `json:"tableId"`
}

type sessionInitResponse struct {
	Success        bool   `json:"success"`
	Token          string `json:"token"`
	RestaurantName string `json:"restaurantName"`
	TableNumber    string `json:"tableNumber"`
	Message        string `json:"message"`
}

type menuResponse struct {
	Success    bool           `json:"success"`
	Categories []MenuCategory `json:"categories"`
	Message    string         `json:"message"`
}

type tableBootstrapResponse struct {
	Success    bool              `json:"success"`
	Token      string            `json:"token"`
	Restaurant domain.Restaurant `json:"restaurant"`
	Table      domain.Table      `json:"table"`
	Categories []MenuCategory    `json:"categories"`
	Message    string            `json:"message"`
}

type orderResponse struct {
	Success bool         `json:"success"`
	Order   domain.Order `json:"order"`
	Message string       `json:"message"`
}

type ordersResponse struct {
	Success bool           `json:"success"`
	Orders  []domain.Order `json:"orders"`
	Message string         `json:"message"`
}

type addItemsRequest struct {
	Items            []OrderItemRequest `json:"items"`
	AdditionalAmount float64            `json:"additionalAmount"`
}
