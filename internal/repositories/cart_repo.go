package repositories

import (
	"sunamo/internal/models"
)

// CartRepository defines the interface for cart line data access. All
// operations are scoped by the caller's opaque owner reference (guest session
// id or authenticated user id) so one identity can never touch another's cart.
type CartRepository interface {
	// Upsert inserts a line for (ownerRef, productID) or, when one already
	// exists, increments its quantity by line.Quantity. The increment must be
	// atomic at the storage layer (ON CONFLICT ... quantity + excluded) so
	// rapid repeat adds never lose an increment to a read-then-write race.
	Upsert(line *models.CartLine) (*models.CartLine, error)
	GetLines(ownerRef string) ([]models.CartLine, error)
	GetLine(ownerRef, lineID string) (*models.CartLine, error)
	SetQuantity(ownerRef, lineID string, quantity int) error
	// Remove and Clear are idempotent: a missing line or an empty cart is not
	// an error.
	Remove(ownerRef, lineID string) error
	Clear(ownerRef string) error
}
