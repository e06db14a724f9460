package models

import "time"

// OrderStatus is the fulfilment status of an order.
type OrderStatus string

// PaymentStatus is the payment lifecycle status of an order, driven by the
// gateway callback or the success redirect.
type PaymentStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"

	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// OrderItem is a line of an order. Price is a snapshot of the unit price at
// order time and never changes afterwards, regardless of later catalogue edits.
type OrderItem struct {
	ID        string  `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string  `json:"order_id" gorm:"index;type:varchar(36)"`
	ProductID string  `json:"product_id" gorm:"type:varchar(36)"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order represents a customer order. OrderCode is the short public identifier
// shown to the customer; ID stays internal. PaymentID is the gateway's opaque
// order id, attached once the remote payment order has been created.
type Order struct {
	ID              string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderCode       string        `json:"order_code" gorm:"uniqueIndex;type:varchar(16)"`
	OwnerRef        string        `json:"-" gorm:"index;type:varchar(64)"`
	UserID          *string       `json:"user_id,omitempty" gorm:"type:varchar(36)"` // nil for guest checkout
	Items           []OrderItem   `json:"items"`
	Total           float64       `json:"total"`
	Currency        string        `json:"currency"`
	Status          OrderStatus   `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	PaymentID       *string       `json:"payment_id,omitempty" gorm:"type:varchar(64)"`
	ShippingAddress string        `json:"shipping_address"` // serialized Address
	BillingAddress  string        `json:"billing_address"`  // serialized Address
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Address is the structured shipping/billing address captured at checkout and
// serialized onto the order row.
type Address struct {
	FullName   string `json:"full_name" validate:"required,max=200"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"omitempty,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
	Phone      string `json:"phone,omitempty" validate:"omitempty,max=30"`
}
