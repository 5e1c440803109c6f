package models

import "time"

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusPaymentPending          OrderStatus = "payment_pending"
	StatusPendingRestaurantOnline OrderStatus = "pending_restaurant_online"
	StatusPending                 OrderStatus = "pending"
	StatusPreparing               OrderStatus = "preparing"
	StatusReady                   OrderStatus = "ready"
	StatusOnTheWay                OrderStatus = "on_the_way"
	StatusDelivered               OrderStatus = "delivered"
	StatusRejected                OrderStatus = "rejected"
	StatusCancelled               OrderStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusRejected || s == StatusCancelled
}

// PaymentStatus tracks payment settlement independently of the order lifecycle.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSuccess   PaymentStatus = "success"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Location accuracy tags for the delivery address.
const (
	LocationCoordinates = "coordinates"
	LocationAddressOnly = "address_only"
)

// Order represents one customer purchase from one restaurant.
// Customer name/phone are immutable snapshots taken at creation time.
type Order struct {
	ID               int64         `json:"id" db:"id"`
	RestaurantUID    string        `json:"restaurant_uid" db:"restaurant_uid"`
	CustomerUID      string        `json:"customer_uid" db:"customer_uid"`
	CustomerName     string        `json:"customer_name" db:"customer_name"`
	CustomerPhone    string        `json:"customer_phone" db:"customer_phone"`
	DeliveryAddress  string        `json:"delivery_address" db:"delivery_address"`
	Latitude         *float64      `json:"latitude,omitempty" db:"latitude"`
	Longitude        *float64      `json:"longitude,omitempty" db:"longitude"`
	LocationAccuracy string        `json:"location_accuracy" db:"location_accuracy"`
	PaymentMethod    string        `json:"payment_method" db:"payment_method"`
	Notes            *string       `json:"notes,omitempty" db:"notes"`
	Subtotal         float64       `json:"subtotal" db:"subtotal"`
	DeliveryFee      float64       `json:"delivery_fee" db:"delivery_fee"`
	PackingFee       float64       `json:"packing_fee" db:"packing_fee"`
	GSTAmount        float64       `json:"gst_amount" db:"gst_amount"`
	PlatformFee      float64       `json:"platform_fee" db:"platform_fee"`
	TotalAmount      float64       `json:"total_amount" db:"total_amount"`
	Status           OrderStatus   `json:"status" db:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status" db:"payment_status"`
	PaymentSessionID *string       `json:"payment_session_id,omitempty" db:"payment_session_id"`
	GatewayOrderID   *string       `json:"gateway_order_id,omitempty" db:"gateway_order_id"`
	ResponseDeadline *time.Time    `json:"response_deadline,omitempty" db:"response_deadline"`
	RejectionReason  *string       `json:"rejection_reason,omitempty" db:"rejection_reason"`
	AutoRejected     bool          `json:"auto_rejected" db:"auto_rejected"`
	Items            []OrderItem   `json:"items,omitempty"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// OrderItem is one line of an order. UnitPrice is the authoritative menu price
// snapshot at creation; later menu edits never change historical totals.
type OrderItem struct {
	ID         int64   `json:"id" db:"id"`
	OrderID    int64   `json:"order_id" db:"order_id"`
	MenuItemID int64   `json:"menu_item_id" db:"menu_item_id"`
	ItemName   string  `json:"item_name" db:"item_name"`
	Quantity   int     `json:"quantity" db:"quantity"`
	UnitPrice  float64 `json:"unit_price" db:"unit_price"`
	TotalPrice float64 `json:"total_price" db:"total_price"`
}

// OrderFilters defines the available filters for querying orders.
type OrderFilters struct {
	RestaurantUID *string `form:"restaurant_uid"`
	CustomerUID   *string `form:"customer_uid"`
	Status        *string `form:"status"`
	Page          int     `form:"page"`
	PageSize      int     `form:"page_size"`
}
