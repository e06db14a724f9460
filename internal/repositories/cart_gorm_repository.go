package repositories

import (
	"errors"
	"fmt"
	"time"

	"sunamo/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{
		db: db,
	}
}

// Upsert inserts the line or atomically increments the quantity of the
// existing (owner_ref, product_id) line. The increment happens in the
// database (excluded.quantity), not in application code, so concurrent adds
// for the same product cannot lose updates.
func (r *GORMCartRepository) Upsert(line *models.CartLine) (*models.CartLine, error) {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	now := time.Now()
	line.CreatedAt = now
	line.UpdatedAt = now

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_ref"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_lines.quantity + excluded.quantity"),
			"updated_at": now,
		}),
	}).Create(line).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert cart line: %w", err)
	}

	// Re-read to return the merged row (the conflict path keeps the original
	// id and the summed quantity).
	var merged models.CartLine
	if err := r.db.First(&merged, "owner_ref = ? AND product_id = ?", line.OwnerRef, line.ProductID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload cart line: %w", err)
	}
	return &merged, nil
}

// GetLines returns all cart lines for an owner, oldest first.
func (r *GORMCartRepository) GetLines(ownerRef string) ([]models.CartLine, error) {
	var lines []models.CartLine
	if err := r.db.Where("owner_ref = ?", ownerRef).Order("created_at").Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("failed to get cart lines: %w", err)
	}
	return lines, nil
}

// GetLine returns one cart line, scoped to the owner.
func (r *GORMCartRepository) GetLine(ownerRef, lineID string) (*models.CartLine, error) {
	var line models.CartLine
	if err := r.db.First(&line, "owner_ref = ? AND id = ?", ownerRef, lineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cart line %s: %w", lineID, err)
	}
	return &line, nil
}

// SetQuantity replaces the quantity of an existing line.
func (r *GORMCartRepository) SetQuantity(ownerRef, lineID string, quantity int) error {
	res := r.db.Model(&models.CartLine{}).
		Where("owner_ref = ? AND id = ?", ownerRef, lineID).
		Updates(map[string]interface{}{"quantity": quantity, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to set quantity for cart line %s: %w", lineID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes a line; deleting an absent line is not an error.
func (r *GORMCartRepository) Remove(ownerRef, lineID string) error {
	if err := r.db.Where("owner_ref = ? AND id = ?", ownerRef, lineID).Delete(&models.CartLine{}).Error; err != nil {
		return fmt.Errorf("failed to remove cart line %s: %w", lineID, err)
	}
	return nil
}

// Clear deletes all of an owner's lines; clearing an empty cart is not an error.
func (r *GORMCartRepository) Clear(ownerRef string) error {
	if err := r.db.Where("owner_ref = ?", ownerRef).Delete(&models.CartLine{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart for owner: %w", err)
	}
	return nil
}
