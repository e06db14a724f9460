package handlers

import (
	"errors"
	"fmt"
	"log"

	"sunamo/internal/middleware"
	"sunamo/internal/models"
	"sunamo/internal/repositories"
	"sunamo/internal/services"
	"sunamo/pkg/bog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// PaymentHandler handles HTTP requests for the payment lifecycle: initiation,
// the gateway's asynchronous callback, the customer's redirect returns, and
// public order lookup by code.
type PaymentHandler struct {
	paymentService *services.PaymentService
	orderService   *services.OrderService
	validate       *validator.Validate
	// shopBaseURL is the customer-facing storefront the redirect endpoints
	// bounce the browser back to.
	shopBaseURL string
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *services.PaymentService, orderService *services.OrderService, shopBaseURL string) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		orderService:   orderService,
		validate:       validator.New(),
		shopBaseURL:    shopBaseURL,
	}
}

// RegisterRoutes registers the payment and order routes with the Fiber app.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	paymentRoutes := router.Group("/payments")
	paymentRoutes.Post("/", h.HandleInitiatePayment)
	paymentRoutes.Post("/callback", h.HandleCallback)
	paymentRoutes.Get("/success", h.HandleSuccessRedirect)
	paymentRoutes.Get("/fail", h.HandleFailRedirect)

	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/code/:code", h.HandleGetOrderByCode)
}

// InitiatePaymentRequest is the checkout request body. Any client-supplied
// total is ignored; the server recomputes it from the catalogue.
type InitiatePaymentRequest struct {
	ShippingAddress models.Address        `json:"shipping_address" validate:"required"`
	BillingAddress  models.Address        `json:"billing_address" validate:"required"`
	Items           []services.BasketItem `json:"items" validate:"required,min=1,dive"`
	PaymentMethod   string                `json:"payment_method"`
}

// HandleInitiatePayment creates a pending order from the requested basket and
// returns the gateway redirect URL the customer should be sent to.
func (h *PaymentHandler) HandleInitiatePayment(c *fiber.Ctx) error {
	var req InitiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing initiate-payment request body: %v", err)
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

	result, err := h.paymentService.InitiatePayment(
		c.UserContext(),
		middleware.OwnerRef(c),
		middleware.UserID(c),
		req.ShippingAddress,
		req.BillingAddress,
		req.Items,
		bog.ParseMethod(req.PaymentMethod),
	)
	if err != nil {
		return h.initiateError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order_id":    result.OrderID,
		"order_code":  result.OrderCode,
		"payment_id":  result.PaymentID,
		"payment_url": result.PaymentURL,
		"status":      "created",
	})
}

// initiateError maps the service error taxonomy to HTTP responses. Gateway
// failures surface a generic retry prompt; the cart is untouched, so retrying
// does not require rebuilding the basket.
func (h *PaymentHandler) initiateError(c *fiber.Ctx, err error) error {
	var gatewayErr *bog.GatewayError
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "One of the requested products is no longer available",
			"code":    "product_not_found",
			"error":   err.Error(),
		})
	case errors.Is(err, services.ErrInvalidQuantity):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Each item must have a quantity of at least 1",
			"code":    "invalid_quantity",
		})
	case errors.Is(err, services.ErrCodeGenerationExhausted):
		log.Printf("Order code generation exhausted: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not create order, please try again",
			"code":    "order_code_exhausted",
		})
	case errors.As(err, &gatewayErr):
		log.Printf("Payment gateway failure: %v", gatewayErr)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"message": "Payment could not be started, please try again",
			"code":    "gateway_error",
		})
	default:
		log.Printf("Error initiating payment: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not initiate payment",
			"error":   err.Error(),
		})
	}
}

// HandleCallback receives the gateway's asynchronous payment callback. It
// always acknowledges with 200: the gateway retries non-2xx responses, and a
// retry storm is worse than a missed update, which operators can still fix
// through the stored payment id.
func (h *PaymentHandler) HandleCallback(c *fiber.Ctx) error {
	var payload bog.CallbackPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing payment callback body: %v", err)
		return c.JSON(fiber.Map{"message": "received"})
	}

	if err := h.paymentService.HandleCallback(payload); err != nil {
		log.Printf("Error processing payment callback for order %s: %v", payload.ExternalOrderID, err)
	}
	return c.JSON(fiber.Map{"message": "received"})
}

// HandleSuccessRedirect is where the gateway sends the customer's browser
// after a successful payment, carrying our order id and the gateway's own
// payment order id. The order is optimistically confirmed (the webhook stays
// authoritative) only when the payment id matches the stored gateway
// reference; without that check anyone holding an order id could confirm an
// unpaid order. On success the browser is bounced to the storefront
// confirmation page with the public order code.
func (h *PaymentHandler) HandleSuccessRedirect(c *fiber.Ctx) error {
	orderID := c.Query("order_id")
	paymentID := c.Query("payment_id")
	if orderID == "" || paymentID == "" {
		return c.Redirect(h.shopBaseURL+"/checkout/fail", fiber.StatusFound)
	}

	order, err := h.paymentService.HandleSuccessRedirect(orderID, paymentID)
	if err != nil {
		log.Printf("Error confirming order %s on success redirect: %v", orderID, err)
		return c.Redirect(h.shopBaseURL+"/checkout/fail", fiber.StatusFound)
	}

	return c.Redirect(fmt.Sprintf("%s/checkout/success?order_code=%s", h.shopBaseURL, order.OrderCode), fiber.StatusFound)
}

// HandleFailRedirect is where the gateway sends the customer's browser after
// a failed or abandoned payment. No state changes here — the authoritative
// failure arrives via the webhook — the customer just lands on the retry page
// with the cart still intact.
func (h *PaymentHandler) HandleFailRedirect(c *fiber.Ctx) error {
	return c.Redirect(h.shopBaseURL+"/checkout/fail", fiber.StatusFound)
}

// HandleGetOrderByCode returns an order with its items by public order code.
// Orders without a completed payment answer 404, never 403, so unpaid orders
// are not discoverable.
func (h *PaymentHandler) HandleGetOrderByCode(c *fiber.Ctx) error {
	code := c.Params("code")
	order, err := h.orderService.GetOrderByCode(code)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Order with code %s not found", code),
			})
		}
		log.Printf("Error getting order by code %s: %v", code, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve order",
			"error":   err.Error(),
		})
	}
	return c.JSON(order)
}
