package models

import "time"

// CartLine is one product entry in an owner's cart. OwnerRef is opaque: a
// guest session id or an authenticated user id, both served by the same table.
// The unique index on (owner_ref, product_id) is what makes repeat adds merge
// into a single line instead of duplicating it.
type CartLine struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OwnerRef  string    `json:"-" gorm:"uniqueIndex:idx_cart_owner_product;type:varchar(64)"`
	ProductID string    `json:"product_id" gorm:"uniqueIndex:idx_cart_owner_product;type:varchar(36)"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartLineView is a cart line joined with current product data for display.
type CartLineView struct {
	CartLine
	Product *Product `json:"product,omitempty"`
}
