package handlers

import (
	"errors"
	"fmt"
	"log"

	"sunamo/internal/middleware"
	"sunamo/internal/repositories"
	"sunamo/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the cart. Every route is scoped by
// the owner reference the Identity middleware resolved, so guests and
// authenticated users share the same endpoints.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Patch("/items/:id", h.HandleSetQuantity)
	cartRoutes.Delete("/items/:id", h.HandleRemoveItem)
	cartRoutes.Delete("/", h.HandleClearCart)
}

// HandleGetCart returns the owner's cart lines with current product data.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	lines, err := h.service.GetCart(middleware.OwnerRef(c))
	if err != nil {
		log.Printf("Error loading cart: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not load cart",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{"items": lines})
}

// AddItemRequest is the add-to-cart request body.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// HandleAddItem adds a product to the cart, merging into the existing line
// when the product is already there.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing add-item request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	line, err := h.service.AddItem(middleware.OwnerRef(c), req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProductNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Product %s not found", req.ProductID),
			})
		case errors.Is(err, services.ErrInvalidQuantity):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Quantity must be at least 1",
			})
		default:
			log.Printf("Error adding item to cart: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not add item to cart",
				"error":   err.Error(),
			})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(line)
}

// SetQuantityRequest is the quantity-change request body.
type SetQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// HandleSetQuantity replaces the quantity of one cart line. Quantities below
// 1 are rejected; DELETE the line instead.
func (h *CartHandler) HandleSetQuantity(c *fiber.Ctx) error {
	lineID := c.Params("id")
	var req SetQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing set-quantity request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	err := h.service.SetQuantity(middleware.OwnerRef(c), lineID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidQuantity):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Quantity must be at least 1; remove the item instead of zeroing it",
			})
		case errors.Is(err, repositories.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Cart line %s not found", lineID),
			})
		default:
			log.Printf("Error setting quantity for cart line %s: %v", lineID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not update cart line",
				"error":   err.Error(),
			})
		}
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Cart line %s updated to quantity %d", lineID, req.Quantity),
	})
}

// HandleRemoveItem removes one cart line. Removing an absent line succeeds.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	lineID := c.Params("id")
	if err := h.service.RemoveItem(middleware.OwnerRef(c), lineID); err != nil {
		log.Printf("Error removing cart line %s: %v", lineID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not remove cart line",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{"message": "Item removed"})
}

// HandleClearCart empties the cart. Clearing an empty cart succeeds.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	if err := h.service.Clear(middleware.OwnerRef(c)); err != nil {
		log.Printf("Error clearing cart: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not clear cart",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{"message": "Cart cleared"})
}
