package repositories

import (
	"sync"
	"time"

	"sunamo/internal/models"

	"github.com/google/uuid"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders map[string]models.Order
	codes  map[string]string // order_code -> order id
	mu     sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
		codes:  make(map[string]string),
	}
}

// Create adds a new order with its items.
func (r *MockOrderRepository) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
		order.Items[i].OrderID = order.ID
	}
	r.orders[order.ID] = *order
	r.codes[order.OrderCode] = order.ID
	return nil
}

// GetByID returns an order by its internal id.
func (r *MockOrderRepository) GetByID(id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &order, nil
}

// GetByCode returns an order by its public code.
func (r *MockOrderRepository) GetByCode(code string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.codes[code]
	if !ok {
		return nil, ErrNotFound
	}
	order := r.orders[id]
	return &order, nil
}

// ExistsByCode reports whether the code is already taken.
func (r *MockOrderRepository) ExistsByCode(code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.codes[code]
	return ok, nil
}

// UpdateStatus updates the status (and optionally payment status) of an order.
func (r *MockOrderRepository) UpdateStatus(id string, status models.OrderStatus, paymentStatus *models.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	if paymentStatus != nil {
		order.PaymentStatus = *paymentStatus
	}
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// UpdatePaymentReference attaches the gateway payment id to an order.
func (r *MockOrderRepository) UpdatePaymentReference(id string, paymentID string, paymentStatus models.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.PaymentID = &paymentID
	order.PaymentStatus = paymentStatus
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}
