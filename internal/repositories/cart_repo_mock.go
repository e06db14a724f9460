package repositories

import (
	"sync"
	"time"

	"sunamo/internal/models"

	"github.com/google/uuid"
)

// MockCartRepository is an in-memory implementation of CartRepository. The
// single mutex gives the same atomic-increment behaviour the GORM upsert
// relies on the database for.
type MockCartRepository struct {
	lines map[string]models.CartLine // line id -> line
	mu    sync.RWMutex
}

// NewMockCartRepository creates a new instance of MockCartRepository.
func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{
		lines: make(map[string]models.CartLine),
	}
}

// Upsert inserts a line or increments the quantity of the existing
// (ownerRef, productID) line under the lock.
func (r *MockCartRepository) Upsert(line *models.CartLine) (*models.CartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.lines {
		if existing.OwnerRef == line.OwnerRef && existing.ProductID == line.ProductID {
			existing.Quantity += line.Quantity
			existing.UpdatedAt = time.Now()
			r.lines[id] = existing
			return &existing, nil
		}
	}

	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	now := time.Now()
	line.CreatedAt = now
	line.UpdatedAt = now
	r.lines[line.ID] = *line
	inserted := *line
	return &inserted, nil
}

// GetLines returns all lines for an owner.
func (r *MockCartRepository) GetLines(ownerRef string) ([]models.CartLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.CartLine
	for _, line := range r.lines {
		if line.OwnerRef == ownerRef {
			out = append(out, line)
		}
	}
	return out, nil
}

// GetLine returns one line scoped to the owner.
func (r *MockCartRepository) GetLine(ownerRef, lineID string) (*models.CartLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	line, ok := r.lines[lineID]
	if !ok || line.OwnerRef != ownerRef {
		return nil, ErrNotFound
	}
	return &line, nil
}

// SetQuantity replaces the quantity of an existing line.
func (r *MockCartRepository) SetQuantity(ownerRef, lineID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	line, ok := r.lines[lineID]
	if !ok || line.OwnerRef != ownerRef {
		return ErrNotFound
	}
	line.Quantity = quantity
	line.UpdatedAt = time.Now()
	r.lines[lineID] = line
	return nil
}

// Remove deletes a line; absent lines are ignored.
func (r *MockCartRepository) Remove(ownerRef, lineID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	line, ok := r.lines[lineID]
	if ok && line.OwnerRef == ownerRef {
		delete(r.lines, lineID)
	}
	return nil
}

// Clear deletes all of an owner's lines.
func (r *MockCartRepository) Clear(ownerRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, line := range r.lines {
		if line.OwnerRef == ownerRef {
			delete(r.lines, id)
		}
	}
	return nil
}
