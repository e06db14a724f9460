package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"sunamo/internal/models"
	"sunamo/internal/repositories"
	"sunamo/pkg/bog"
)

// PaymentGateway is the slice of the gateway client the orchestrator needs,
// kept narrow so tests can substitute a fake.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req bog.CreateOrderRequest) (*bog.CreateOrderResponse, error)
}

// EventPublisher publishes order lifecycle events to the message bus.
// Publish failures are logged and never fail the customer-facing operation.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// PaymentConfig carries the storefront-side settings of the payment flow.
type PaymentConfig struct {
	CallbackURL string
	SuccessURL  string
	FailURL     string
	Currency    string
	// TTLMinutes is the gateway-side payment window; after it elapses the
	// gateway abandons the remote order.
	TTLMinutes int
}

// BasketItem is one requested line of a checkout, as sent by the client.
// Prices are never taken from the client; only the product reference and
// quantity are.
type BasketItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// InitiateResult is what a successful payment initiation hands back to the
// HTTP layer: the customer gets redirected to PaymentURL.
type InitiateResult struct {
	OrderID    string `json:"order_id"`
	OrderCode  string `json:"order_code"`
	PaymentID  string `json:"payment_id"`
	PaymentURL string `json:"payment_url"`
}

// PaymentService drives the whole order/payment lifecycle: it turns a basket
// plus a chosen payment method into a pending order and a gateway redirect
// URL, and later reconciles the order from the gateway's asynchronous
// callback or the customer's success redirect.
type PaymentService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	cartRepo    repositories.CartRepository
	gateway     PaymentGateway
	codeGen     *OrderCodeGenerator
	publisher   EventPublisher
	cfg         PaymentConfig
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	cartRepo repositories.CartRepository,
	gateway PaymentGateway,
	codeGen *OrderCodeGenerator,
	publisher EventPublisher,
	cfg PaymentConfig,
) *PaymentService {
	if cfg.Currency == "" {
		cfg.Currency = "GEL"
	}
	if cfg.TTLMinutes <= 0 {
		cfg.TTLMinutes = 30
	}
	return &PaymentService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cartRepo:    cartRepo,
		gateway:     gateway,
		codeGen:     codeGen,
		publisher:   publisher,
		cfg:         cfg,
	}
}

// InitiatePayment runs the full payment-initiation sequence:
//
//  1. Resolve every requested product and its authoritative price; abort
//     before any persistence if one is missing.
//  2. Compute the total server-side from resolved prices, never from the client.
//  3. Persist the order as pending/pending with snapshot-priced items.
//  4. Create the remote order at the gateway.
//  5. Attach the gateway's payment id and return the redirect URL.
//
// The relational insert and the remote HTTP call cannot share a transaction,
// so a gateway failure at step 4 deliberately leaves the pending order in
// place: the customer's basket snapshot is never lost, at the cost of an
// occasional abandoned pending order that operators can reconcile later.
func (s *PaymentService) InitiatePayment(
	ctx context.Context,
	ownerRef string,
	userID *string,
	shipping, billing models.Address,
	items []BasketItem,
	method bog.PaymentMethod,
) (*InitiateResult, error) {
	if len(items) == 0 {
		return nil, ErrInvalidQuantity
	}

	var total float64
	orderItems := make([]models.OrderItem, 0, len(items))
	basket := make([]bog.BasketItem, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		product, err := s.productRepo.GetByID(item.ProductID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
			}
			return nil, fmt.Errorf("failed to resolve product %s: %w", item.ProductID, err)
		}
		total += product.Price * float64(item.Quantity)
		orderItems = append(orderItems, models.OrderItem{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			Price:     product.Price,
		})
		basket = append(basket, bog.BasketItem{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		})
	}

	code, err := s.codeGen.GenerateUnique(s.orderRepo.ExistsByCode)
	if err != nil {
		return nil, err
	}

	shippingJSON, err := json.Marshal(shipping)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize shipping address: %w", err)
	}
	billingJSON, err := json.Marshal(billing)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize billing address: %w", err)
	}

	order := &models.Order{
		OrderCode:       code,
		OwnerRef:        ownerRef,
		UserID:          userID,
		Items:           orderItems,
		Total:           total,
		Currency:        s.cfg.Currency,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		ShippingAddress: string(shippingJSON),
		BillingAddress:  string(billingJSON),
	}
	if err := s.orderRepo.Create(order); err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	s.publishEvent("order.created", map[string]interface{}{
		"order_id":   order.ID,
		"order_code": order.OrderCode,
		"total":      order.Total,
		"currency":   order.Currency,
		"status":     order.Status,
	})

	methods, options := bog.MethodConfig(method)
	resp, err := s.gateway.CreateOrder(ctx, bog.CreateOrderRequest{
		CallbackURL:     s.cfg.CallbackURL,
		ExternalOrderID: order.ID,
		Capture:         "automatic",
		PurchaseUnits: bog.PurchaseUnits{
			Currency:    s.cfg.Currency,
			TotalAmount: total,
			Basket:      basket,
		},
		RedirectURLs: bog.RedirectURLs{
			Success: fmt.Sprintf("%s?order_id=%s", s.cfg.SuccessURL, order.ID),
			Fail:    fmt.Sprintf("%s?order_id=%s", s.cfg.FailURL, order.ID),
		},
		TTL:            s.cfg.TTLMinutes,
		PaymentMethods: methods,
		Config:         options,
	})
	if err != nil {
		// The pending order stays behind untouched: the customer can retry
		// and operators can still reconcile it.
		return nil, err
	}

	redirectURL := resp.RedirectURL()
	if redirectURL == "" {
		return nil, &bog.GatewayError{Err: fmt.Errorf("gateway response for order %s carried no redirect link", order.ID)}
	}

	if err := s.orderRepo.UpdatePaymentReference(order.ID, resp.ID, models.PaymentStatusPending); err != nil {
		return nil, fmt.Errorf("failed to store payment reference for order %s: %w", order.ID, err)
	}

	return &InitiateResult{
		OrderID:    order.ID,
		OrderCode:  order.OrderCode,
		PaymentID:  resp.ID,
		PaymentURL: redirectURL,
	}, nil
}

// HandleCallback applies the gateway's asynchronous callback to the order it
// references. Malformed payloads, unknown orders, and status keys outside the
// known terminal vocabulary are logged and dropped without error: the HTTP
// layer always acknowledges the gateway with 200, so a retry storm can never
// build up. Status application is idempotent by
// construction — repeated deliveries of the same terminal outcome converge on
// the same row values, and the cart clear on success re-clears an already
// empty cart.
func (s *PaymentService) HandleCallback(payload bog.CallbackPayload) error {
	if !payload.Valid() {
		log.Printf("Discarding malformed payment callback (order ref %q, status %q)", payload.ExternalOrderID, payload.OrderStatus.Key)
		return nil
	}

	order, err := s.orderRepo.GetByID(payload.ExternalOrderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Printf("Payment callback referenced unknown order %s", payload.ExternalOrderID)
			return nil
		}
		return fmt.Errorf("failed to load order %s for callback: %w", payload.ExternalOrderID, err)
	}

	status, paymentStatus, known := mapGatewayStatus(payload.OrderStatus.Key)
	if !known {
		// Intermediate or future status keys are acknowledged without
		// touching the order. Writing anything here could drag a terminal
		// payment status back to pending.
		log.Printf("Ignoring payment callback with unhandled status %q for order %s", payload.OrderStatus.Key, order.ID)
		return nil
	}
	if err := s.orderRepo.UpdateStatus(order.ID, status, &paymentStatus); err != nil {
		return fmt.Errorf("failed to apply callback to order %s: %w", order.ID, err)
	}

	if paymentStatus == models.PaymentStatusCompleted {
		s.completePayment(order)
	}
	return nil
}

// HandleSuccessRedirect handles the customer's browser returning from the
// gateway. Reaching this redirect implies gateway-side success, so the order
// is optimistically confirmed — but only when the supplied payment reference
// matches the one stored at initiation, so a guessed order id alone cannot
// confirm an unpaid order. The asynchronous webhook stays authoritative and
// may run before or after — both paths set the same terminal values, so
// whichever runs second is a no-op.
func (s *PaymentService) HandleSuccessRedirect(orderID, paymentID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if paymentID == "" || order.PaymentID == nil || *order.PaymentID != paymentID {
		return nil, repositories.ErrNotFound
	}

	paymentStatus := models.PaymentStatusCompleted
	if err := s.orderRepo.UpdateStatus(order.ID, models.OrderStatusConfirmed, &paymentStatus); err != nil {
		return nil, fmt.Errorf("failed to confirm order %s: %w", order.ID, err)
	}
	s.completePayment(order)

	order.Status = models.OrderStatusConfirmed
	order.PaymentStatus = models.PaymentStatusCompleted
	return order, nil
}

// completePayment runs the success side effects: clearing the owning cart
// (the sole trigger for cart clearing — a failed payment leaves the cart
// intact so the customer can retry) and publishing the completion event.
func (s *PaymentService) completePayment(order *models.Order) {
	if order.OwnerRef != "" {
		if err := s.cartRepo.Clear(order.OwnerRef); err != nil {
			log.Printf("Failed to clear cart after payment for order %s: %v", order.ID, err)
		}
	}
	s.publishEvent("payment.completed", map[string]interface{}{
		"order_id":   order.ID,
		"order_code": order.OrderCode,
		"total":      order.Total,
		"currency":   order.Currency,
	})
}

// mapGatewayStatus translates the gateway's status vocabulary into the
// internal one. Only the two terminal outcomes are mapped; anything else
// reports false and must not be written to the order.
func mapGatewayStatus(key string) (models.OrderStatus, models.PaymentStatus, bool) {
	switch key {
	case "completed":
		return models.OrderStatusConfirmed, models.PaymentStatusCompleted, true
	case "failed", "rejected":
		return models.OrderStatusCancelled, models.PaymentStatusFailed, true
	default:
		return "", "", false
	}
}

func (s *PaymentService) publishEvent(routingKey string, payload map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", routingKey, err)
		return
	}
	if err := s.publisher.Publish(routingKey, body); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", routingKey, err)
	}
}
