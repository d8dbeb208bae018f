package domain

import "time"

type Identity struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Restaurant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Table struct {
	ID     string `json:"id"`
	Number string `json:"number"`
}

// Session binds a device to a restaurant table for the duration of a visit.
// The token is a bearer credential with a server-enforced lifetime.
type Session struct {
	Token      string     `json:"token"`
	Restaurant Restaurant `json:"restaurant"`
	Table      Table      `json:"table"`
}

// ChoiceMode is the explicit selection behavior of an option group.
type ChoiceMode string

const (
	// SingleChoice groups behave like radio buttons: choosing an option
	// replaces any prior selection in the group.
	SingleChoice ChoiceMode = "single"
	// MultiChoice groups accept up to MaxSelection options.
	MultiChoice ChoiceMode = "multi"
)

type Option struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	PriceModifier float64 `json:"priceModifier"`
}

type OptionGroup struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Mode         ChoiceMode `json:"mode"`
	MinSelection int        `json:"minSelection"`
	MaxSelection int        `json:"maxSelection"`
	Options      []Option   `json:"options"`
}

// Required reports whether the group must have at least one selection
// before the item can be added to a cart.
func (g OptionGroup) Required() bool {
	return g.MinSelection > 0
}

type MenuItem struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	Description         string        `json:"description"`
	Price               float64       `json:"price"`
	ImageURL            string        `json:"image,omitempty"`
	IsVegetarian        bool          `json:"isVegetarian"`
	IsSpicy             bool          `json:"isSpicy"`
	IsAvailable         bool          `json:"isAvailable"`
	CustomizationGroups []OptionGroup `json:"customizationGroups,omitempty"`
}

type Category struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Items []MenuItem `json:"items"`
}

// CartItem is one distinct configuration of a menu item with an
// aggregated quantity. FinalPrice is the unit price including option
// modifiers, snapshotted at add-time.
type CartItem struct {
	ID              string              `json:"id"`
	MenuItemID      string              `json:"menuItemId"`
	Name            string              `json:"name"`
	ImageURL        string              `json:"image,omitempty"`
	BasePrice       float64             `json:"basePrice"`
	FinalPrice      float64             `json:"finalPrice"`
	Quantity        int                 `json:"quantity"`
	SelectedOptions map[string][]Option `json:"selectedOptions,omitempty"`
	Instructions    string              `json:"instructions,omitempty"`
}

type OrderStatus string

const (
	StatusReceived  OrderStatus = "RECEIVED"
	StatusPreparing OrderStatus = "PREPARING"
	StatusReady     OrderStatus = "READY"
	StatusServed    OrderStatus = "SERVED"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether no further kitchen-side transition is expected.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusServed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type OrderItem struct {
	MenuItemID string  `json:"menuItemId"`
	Name       string  `json:"name,omitempty"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
}

type Order struct {
	ID          string      `json:"id"`
	OrderNumber string      `json:"orderNumber"`
	Status      OrderStatus `json:"status"`
	TotalAmount float64     `json:"totalAmount"`
	CreatedAt   time.Time   `json:"createdAt"`
	Items       []OrderItem `json:"items"`
}

// OrderEvent is published to the analytics stream after a successful
// order placement.
type OrderEvent struct {
	Type         string    `json:"type"`
	OrderID      string    `json:"order_id"`
	RestaurantID string    `json:"restaurant_id"`
	TableID      string    `json:"table_id"`
	TotalAmount  float64   `json:"total_amount"`
	ItemCount    int       `json:"item_count"`
	Timestamp    time.Time `json:"timestamp"`
}
