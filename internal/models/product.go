package models

import "gorm.io/gorm"

// Product represents a perfume in the catalogue.
type Product struct {
	ID          string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Brand       string  `json:"brand" validate:"omitempty,max=100"`
	Description string  `json:"description" validate:"omitempty,max=500"`
	Price       float64 `json:"price" validate:"required,gt=0"` // GEL
	VolumeML    int     `json:"volume_ml" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	gorm.Model          // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
