package repositories

import (
	"errors"
	"fmt"
	"time"

	"sunamo/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// Create inserts the order row first and the item rows second, without a
// shared transaction. If the item insert fails the pending order row stays
// behind for operator reconciliation; the unique index on order_code is the
// authoritative uniqueness check against a concurrently generated code.
func (r *GORMOrderRepository) Create(order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	items := order.Items
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.New().String()
		}
		items[i].OrderID = order.ID
	}

	if err := r.db.Omit("Items").Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to create order items for order %s: %w", order.ID, err)
		}
	}
	return nil
}

// GetByID retrieves an order with its items by internal id.
func (r *GORMOrderRepository) GetByID(id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// GetByCode retrieves an order with its items by public order code. The
// completed-payment visibility rule is enforced one layer up, in the service.
func (r *GORMOrderRepository) GetByCode(code string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").First(&order, "order_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order by code %s: %w", code, err)
	}
	return &order, nil
}

// ExistsByCode reports whether any order already carries the given code.
func (r *GORMOrderRepository) ExistsByCode(code string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Order{}).Where("order_code = ?", code).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check order code %s: %w", code, err)
	}
	return count > 0, nil
}

// UpdateStatus applies a partial status update; paymentStatus only when supplied.
func (r *GORMOrderRepository) UpdateStatus(id string, status models.OrderStatus, paymentStatus *models.PaymentStatus) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if paymentStatus != nil {
		updates["payment_status"] = *paymentStatus
	}
	res := r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update status for order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePaymentReference stores the gateway's payment id against the order.
func (r *GORMOrderRepository) UpdatePaymentReference(id string, paymentID string, paymentStatus models.PaymentStatus) error {
	res := r.db.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"payment_id":     paymentID,
		"payment_status": paymentStatus,
		"updated_at":     time.Now(),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update payment reference for order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
