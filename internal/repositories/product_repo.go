package repositories

import (
	"sunamo/internal/models"
)

// ProductRepository is the catalogue lookup contract the order/payment core
// depends on. Catalogue management beyond creation (seeding, back-office
// imports) lives outside this service.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
}
