package services

import (
	"sunamo/internal/models"
	"sunamo/internal/repositories"
)

// OrderService exposes order lookups to the HTTP layer.
type OrderService struct {
	orderRepo repositories.OrderRepository
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
	}
}

// GetOrderByID retrieves a single order by its internal id. Used by internal
// callers (redirect handlers, diagnostics) with no visibility restriction.
func (s *OrderService) GetOrderByID(id string) (*models.Order, error) {
	return s.orderRepo.GetByID(id)
}

// GetOrderByCode retrieves an order by its public code for customer-facing
// display. Orders whose payment is not completed answer "not found" — not
// "forbidden" — so the existence of unpaid orders is never disclosed.
func (s *OrderService) GetOrderByCode(code string) (*models.Order, error) {
	order, err := s.orderRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != models.PaymentStatusCompleted {
		return nil, repositories.ErrNotFound
	}
	return order, nil
}
