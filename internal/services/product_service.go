package services

import (
	"sunamo/internal/models"
	"sunamo/internal/repositories"
)

// ProductService exposes the perfume catalogue to the storefront: listing and
// lookup for customers, creation for seeding. The checkout flow also reads
// through here for authoritative prices.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// GetAllProducts retrieves the full catalogue.
func (s *ProductService) GetAllProducts() ([]models.Product, error) {
	return s.repo.GetAll()
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(id string) (*models.Product, error) {
	return s.repo.GetByID(id)
}

// CreateProduct adds a product to the catalogue.
func (s *ProductService) CreateProduct(product *models.Product) error {
	return s.repo.Create(product)
}
