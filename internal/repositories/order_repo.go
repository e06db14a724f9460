package repositories

import (
	"sunamo/internal/models"
)

// OrderRepository defines the interface for order data access.
//
// UpdateStatus and UpdatePaymentReference are deliberately dumb setters: no
// state-machine validation happens here, so the same methods serve the
// webhook reconciliation path and manual admin corrections alike. Both must
// be last-write-wins safe because a webhook retry and the success redirect
// can race for the same order.
type OrderRepository interface {
	// Create inserts the order row and then its item rows. The two inserts
	// are not wrapped in one transaction: an order row without items is an
	// accepted recoverable inconsistency, reconciled by operators, and is
	// preferred over losing the customer's basket snapshot.
	Create(order *models.Order) error
	GetByID(id string) (*models.Order, error)
	GetByCode(code string) (*models.Order, error)
	ExistsByCode(code string) (bool, error)
	// UpdateStatus is a partial update: paymentStatus is only touched when
	// non-nil. updated_at is refreshed either way.
	UpdateStatus(id string, status models.OrderStatus, paymentStatus *models.PaymentStatus) error
	// UpdatePaymentReference attaches the gateway's opaque payment id.
	UpdatePaymentReference(id string, paymentID string, paymentStatus models.PaymentStatus) error
}
