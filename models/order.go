package models

import "time"

// OrderStatus represents the current progress of an order.
type OrderStatus string

const (
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// validNext encodes the order state machine. delivered and cancelled are
// terminal; cancelled is reachable from every non-terminal state.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusProcessing:     {OrderStatusConfirmed: true, OrderStatusCancelled: true},
	OrderStatusConfirmed:      {OrderStatusPreparing: true, OrderStatusOutForDelivery: true, OrderStatusCancelled: true},
	OrderStatusPreparing:      {OrderStatusOutForDelivery: true, OrderStatusCancelled: true},
	OrderStatusOutForDelivery: {OrderStatusDelivered: true, OrderStatusCancelled: true},
	OrderStatusDelivered:      {},
	OrderStatusCancelled:      {},
}

// IsValidOrderStatus reports whether s is one of the recognized statuses.
func IsValidOrderStatus(s OrderStatus) bool {
	_, ok := validNext[s]
	return ok
}

// CanTransition reports whether the state machine permits moving from one
// status to another.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// IsTerminal reports whether s admits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// DeliveryMethod selects how an order reaches the customer.
type DeliveryMethod string

const (
	DeliveryMethodStandard DeliveryMethod = "standard"
	DeliveryMethodExpress  DeliveryMethod = "express"
	DeliveryMethodPickup   DeliveryMethod = "pickup"
)

// IsValidDeliveryMethod reports whether m is one of the recognized methods.
func IsValidDeliveryMethod(m DeliveryMethod) bool {
	return m == DeliveryMethodStandard || m == DeliveryMethodExpress || m == DeliveryMethodPickup
}

// PaymentStatus tracks the payment side of an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Order represents a food order with a one-to-one relation to User via CustomerID.
// Items and StatusHistory live in their own tables and are loaded alongside.
type Order struct {
	ID             int64          `db:"id" json:"id"`
	CustomerID     int64          `db:"customer_id" json:"customer_id"`
	RestaurantID   *int64         `db:"restaurant_id" json:"restaurant_id,omitempty"`
	DeliveryMethod DeliveryMethod `db:"delivery_method" json:"delivery_method"`
	Status         OrderStatus    `db:"status" json:"status"`

	Items   []OrderItem   `json:"items"`
	History []StatusEntry `json:"status_history,omitempty"`

	Subtotal    float64 `db:"subtotal" json:"subtotal"`
	Tax         float64 `db:"tax" json:"tax"`
	DeliveryFee float64 `db:"delivery_fee" json:"delivery_fee"`
	Discount    float64 `db:"discount" json:"discount"`
	Total       float64 `db:"total" json:"total"`

	PaymentMethod string        `db:"payment_method" json:"payment_method"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`

	DeliveryAddress string `db:"delivery_address" json:"delivery_address,omitempty"`
	// Geo points use (0,0) to mean "not set"; the dispatch layer resolves
	// fallbacks before any distance math.
	PickupLat   float64 `db:"pickup_lat" json:"pickup_lat"`
	PickupLng   float64 `db:"pickup_lng" json:"pickup_lng"`
	DeliveryLat float64 `db:"delivery_lat" json:"delivery_lat"`
	DeliveryLng float64 `db:"delivery_lng" json:"delivery_lng"`

	// DeliveryAgentID is nil until an agent wins the order. It is set at most
	// once, via a conditional update keyed on it still being NULL.
	DeliveryAgentID       *int64     `db:"delivery_agent_id" json:"delivery_agent_id,omitempty"`
	EstimatedDeliveryTime *time.Time `db:"estimated_delivery_time" json:"estimated_delivery_time,omitempty"`
	ActualDeliveryTime    *time.Time `db:"actual_delivery_time" json:"actual_delivery_time,omitempty"`

	// Pickup credential fields are populated only when DeliveryMethod is pickup.
	PickupCode          *string    `db:"pickup_code" json:"pickup_code,omitempty"`
	PickupCodeExpiresAt *time.Time `db:"pickup_code_expires_at" json:"pickup_code_expires_at,omitempty"`
	IsPickupCompleted   bool       `db:"is_pickup_completed" json:"is_pickup_completed"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem is a line item with a name/price snapshot taken at order time.
type OrderItem struct {
	ID        int64   `db:"id" json:"id"`
	OrderID   int64   `db:"order_id" json:"order_id"`
	ProductID int64   `db:"product_id" json:"product_id"`
	Name      string  `db:"name" json:"name"`
	Quantity  int     `db:"quantity" json:"quantity"`
	UnitPrice float64 `db:"unit_price" json:"unit_price"`
}

// StatusEntry is one append-only row of an order's status history.
type StatusEntry struct {
	ID        int64       `db:"id" json:"id"`
	OrderID   int64       `db:"order_id" json:"order_id"`
	Status    OrderStatus `db:"status" json:"status"`
	Note      string      `db:"note" json:"note,omitempty"`
	Lat       *float64    `db:"lat" json:"lat,omitempty"`
	Lng       *float64    `db:"lng" json:"lng,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}
