package services

import (
	"errors"
	"fmt"

	"sunamo/internal/models"
	"sunamo/internal/repositories"
)

// CartService maintains the working set of to-be-purchased items for one
// owner identity. The owner reference is opaque: guest session ids and
// authenticated user ids get exactly the same contract.
type CartService struct {
	cartRepo    repositories.CartRepository
	productRepo repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(cartRepo repositories.CartRepository, productRepo repositories.ProductRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// AddItem adds quantity of a product to the owner's cart. A repeat add of a
// product already in the cart increments the existing line instead of
// creating a second one. Returns the merged line joined with current product
// data. No stock is reserved here.
func (s *CartService) AddItem(ownerRef, productID string, quantity int) (*models.CartLineView, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to resolve product %s: %w", productID, err)
	}

	line, err := s.cartRepo.Upsert(&models.CartLine{
		OwnerRef:  ownerRef,
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add item to cart: %w", err)
	}

	return &models.CartLineView{CartLine: *line, Product: product}, nil
}

// GetCart returns the owner's cart lines joined with current product data.
// Lines whose product has since been removed from the catalogue are returned
// without product details rather than dropped.
func (s *CartService) GetCart(ownerRef string) ([]models.CartLineView, error) {
	lines, err := s.cartRepo.GetLines(ownerRef)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	views := make([]models.CartLineView, 0, len(lines))
	for _, line := range lines {
		view := models.CartLineView{CartLine: line}
		if product, err := s.productRepo.GetByID(line.ProductID); err == nil {
			view.Product = product
		}
		views = append(views, view)
	}
	return views, nil
}

// SetQuantity replaces the quantity of one of the owner's lines. Quantities
// below 1 are rejected; callers must remove the line instead of zeroing it.
func (s *CartService) SetQuantity(ownerRef, lineID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	return s.cartRepo.SetQuantity(ownerRef, lineID, quantity)
}

// RemoveItem removes one line. Removing an absent line is not an error.
func (s *CartService) RemoveItem(ownerRef, lineID string) error {
	return s.cartRepo.Remove(ownerRef, lineID)
}

// Clear empties the owner's cart. Clearing an empty cart is not an error.
func (s *CartService) Clear(ownerRef string) error {
	return s.cartRepo.Clear(ownerRef)
}
