package services_test

import (
	"context"
	"errors"
	"testing"

	"sunamo/internal/models"
	"sunamo/internal/repositories"
	"sunamo/internal/services"
	"sunamo/pkg/bog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway is a canned PaymentGateway for orchestrator tests.
type fakeGateway struct {
	resp    *bog.CreateOrderResponse
	err     error
	lastReq bog.CreateOrderRequest
	calls   int
}

func (f *fakeGateway) CreateOrder(_ context.Context, req bog.CreateOrderRequest) (*bog.CreateOrderResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

// recordingPublisher captures published events in order.
type recordingPublisher struct {
	keys []string
}

func (p *recordingPublisher) Publish(routingKey string, _ []byte) error {
	p.keys = append(p.keys, routingKey)
	return nil
}

func gatewayResponse(paymentID, redirectURL string) *bog.CreateOrderResponse {
	resp := &bog.CreateOrderResponse{ID: paymentID}
	resp.Links.Redirect.Href = redirectURL
	return resp
}

type paymentFixture struct {
	service     *services.PaymentService
	orderRepo   *repositories.MockOrderRepository
	cartRepo    *repositories.MockCartRepository
	productRepo *repositories.MockProductRepository
	gateway     *fakeGateway
	publisher   *recordingPublisher
}

func newPaymentFixture(t *testing.T, gateway *fakeGateway) *paymentFixture {
	t.Helper()
	f := &paymentFixture{
		orderRepo:   repositories.NewMockOrderRepository(),
		cartRepo:    repositories.NewMockCartRepository(),
		productRepo: repositories.NewMockProductRepository(),
		gateway:     gateway,
		publisher:   &recordingPublisher{},
	}
	require.NoError(t, f.productRepo.Create(&models.Product{ID: "P1", Name: "Noir Absolu", Price: 50.00, Stock: 10}))
	require.NoError(t, f.productRepo.Create(&models.Product{ID: "P2", Name: "Vera Iris", Price: 95.50, Stock: 5}))
	f.service = services.NewPaymentService(
		f.orderRepo,
		f.productRepo,
		f.cartRepo,
		gateway,
		services.NewOrderCodeGenerator(),
		f.publisher,
		services.PaymentConfig{
			CallbackURL: "https://shop.example/api/v1/payments/callback",
			SuccessURL:  "https://shop.example/api/v1/payments/success",
			FailURL:     "https://shop.example/api/v1/payments/fail",
		},
	)
	return f
}

var testAddress = models.Address{
	FullName: "Nino Beridze",
	Line1:    "12 Rustaveli Ave",
	City:     "Tbilisi",
	Country:  "Georgia",
}

func TestPaymentService_InitiatePayment_Success(t *testing.T) {
	gateway := &fakeGateway{resp: gatewayResponse("pay-1", "https://gateway.example/redirect/pay-1")}
	f := newPaymentFixture(t, gateway)

	result, err := f.service.InitiatePayment(
		context.Background(), "U1", nil, testAddress, testAddress,
		[]services.BasketItem{{ProductID: "P1", Quantity: 2}},
		bog.Card{},
	)
	require.NoError(t, err)

	assert.Equal(t, "pay-1", result.PaymentID)
	assert.Equal(t, "https://gateway.example/redirect/pay-1", result.PaymentURL)
	assert.Len(t, result.OrderCode, 8)

	// The total sent to the gateway and persisted comes from catalogue
	// prices, never from the client.
	assert.Equal(t, 100.00, gateway.lastReq.PurchaseUnits.TotalAmount)
	assert.Equal(t, "GEL", gateway.lastReq.PurchaseUnits.Currency)
	assert.Equal(t, []string{"card"}, gateway.lastReq.PaymentMethods)
	require.Len(t, gateway.lastReq.PurchaseUnits.Basket, 1)
	assert.Equal(t, 50.00, gateway.lastReq.PurchaseUnits.Basket[0].UnitPrice)

	order, err := f.orderRepo.GetByID(result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 100.00, order.Total)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	require.NotNil(t, order.PaymentID)
	assert.Equal(t, "pay-1", *order.PaymentID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 50.00, order.Items[0].Price)

	assert.Equal(t, []string{"order.created"}, f.publisher.keys)
}

func TestPaymentService_InitiatePayment_TotalIgnoresClientPrices(t *testing.T) {
	gateway := &fakeGateway{resp: gatewayResponse("pay-2", "https://gateway.example/redirect/pay-2")}
	f := newPaymentFixture(t, gateway)

	result, err := f.service.InitiatePayment(
		context.Background(), "U1", nil, testAddress, testAddress,
		[]services.BasketItem{
			{ProductID: "P1", Quantity: 2},
			{ProductID: "P2", Quantity: 1},
		},
		bog.Card{},
	)
	require.NoError(t, err)

	order, err := f.orderRepo.GetByID(result.OrderID)
	require.NoError(t, err)
	assert.InDelta(t, 2*50.00+95.50, order.Total, 0.001)
}

func TestPaymentService_InitiatePayment_UnknownProductAbortsBeforePersistence(t *testing.T) {
	gateway := &fakeGateway{resp: gatewayResponse("pay-3", "https://gateway.example/redirect")}
	f := newPaymentFixture(t, gateway)

	_, err := f.service.InitiatePayment(
		context.Background(), "U1", nil, testAddress, testAddress,
		[]services.BasketItem{
			{ProductID: "P1", Quantity: 1},
			{ProductID: "ghost", Quantity: 1},
		},
		bog.Card{},
	)
	assert.ErrorIs(t, err, services.ErrProductNotFound)
	assert.Zero(t, gateway.calls, "gateway must not be called for an invalid basket")
	assert.Empty(t, f.publisher.keys, "no partial order may be created")
}

func TestPaymentService_InitiatePayment_GatewayFailureLeavesOrderRecoverable(t *testing.T) {
	gateway := &fakeGateway{err: &bog.GatewayError{StatusCode: 503, Body: "upstream maintenance"}}
	f := newPaymentFixture(t, gateway)

	_, err := f.service.InitiatePayment(
		context.Background(), "U1", nil, testAddress, testAddress,
		[]services.BasketItem{{ProductID: "P1", Quantity: 2}},
		bog.Card{},
	)
	var gatewayErr *bog.GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, 503, gatewayErr.StatusCode)

	// The pending order survives the failed gateway call: still pending with
	// its items and no payment reference.
	require.Len(t, f.publisher.keys, 1) // order.created was published before the call
	orderID := gateway.lastReq.ExternalOrderID
	order, lookupErr := f.orderRepo.GetByID(orderID)
	require.NoError(t, lookupErr)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Nil(t, order.PaymentID)
	require.Len(t, order.Items, 1)
}

func TestPaymentService_InitiatePayment_MissingRedirectIsGatewayError(t *testing.T) {
	gateway := &fakeGateway{resp: gatewayResponse("pay-4", "")}
	f := newPaymentFixture(t, gateway)

	_, err := f.service.InitiatePayment(
		context.Background(), "U1", nil, testAddress, testAddress,
		[]services.BasketItem{{ProductID: "P1", Quantity: 1}},
		bog.Card{},
	)
	var gatewayErr *bog.GatewayError
	assert.ErrorAs(t, err, &gatewayErr)
}

func TestPaymentService_InitiatePayment_InstallmentConfig(t *testing.T) {
	gateway := &fakeGateway{resp: gatewayResponse("pay-5", "https://gateway.example/redirect")}
	f := newPaymentFixture(t, gateway)

	_, err := f.service.InitiatePayment(
		context.Background(), "U1", nil, testAddress, testAddress,
		[]services.BasketItem{{ProductID: "P1", Quantity: 1}},
		bog.Installment{Months: 6},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"bog_loan"}, gateway.lastReq.PaymentMethods)
	require.NotNil(t, gateway.lastReq.Config.Loan)
	assert.Equal(t, 6, gateway.lastReq.Config.Loan.Months)
}

// initiateOrder is a helper that runs a successful initiation and returns the
// order id.
func initiateOrder(t *testing.T, f *paymentFixture, ownerRef string) string {
	t.Helper()
	result, err := f.service.InitiatePayment(
		context.Background(), ownerRef, nil, testAddress, testAddress,
		[]services.BasketItem{{ProductID: "P1", Quantity: 2}},
		bog.Card{},
	)
	require.NoError(t, err)
	return result.OrderID
}

func TestPaymentService_HandleCallback_CompletedIsIdempotent(t *testing.T) {
	gateway := &fakeGateway{resp: gatewayResponse("pay-1", "https://gateway.example/redirect")}
	f := newPaymentFixture(t, gateway)

	_, err := f.cartRepo.Upsert(&models.CartLine{OwnerRef: "U1", ProductID: "P1", Quantity: 2})
	require.NoError(t, err)
	orderID := initiateOrder(t, f, "U1")

	payload := bog.CallbackPayload{
		ExternalOrderID: orderID,
		OrderID:         "pay-1",
		OrderStatus:     bog.CallbackStatus{Key: "completed"},
	}

	require.NoError(t, f.service.HandleCallback(payload))

	order, err := f.orderRepo.GetByID(orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)

	cart, err := f.cartRepo.GetLines("U1")
	require.NoError(t, err)
	assert.Empty(t, cart, "completed payment clears the owning cart")

	// Second delivery of the same terminal outcome is a harmless no-op.
	require.NoError(t, f.service.HandleCallback(payload))
	again, err := f.orderRepo.GetByID(orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, again.Status)
	assert.Equal(t, models.PaymentStatusCompleted, again.PaymentStatus)
}

func TestPaymentService_HandleCallback_FailedLeavesCartIntact(t *testing.T) {
	gateway := &fakeGateway{resp: gatewayResponse("pay-1", "https://gateway.example/redirect")}
	f := newPaymentFixture(t, gateway)

	_, err := f.cartRepo.Upsert(&models.CartLine{OwnerRef: "U1", ProductID: "P1", Quantity: 2})
	require.NoError(t, err)
	orderID := initiateOrder(t, f, "U1")

	require.NoError(t, f.service.HandleCallback(bog.CallbackPayload{
		ExternalOrderID: orderID,
		OrderStatus:     bog.CallbackStatus{Key: "failed"},
	}))

	order, err := f.orderRepo.GetByID(orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.Equal(t, models.PaymentStatusFailed, order.PaymentStatus)

	cart, err := f.cartRepo.GetLines("U1")
	require.NoError(t, err)
	assert.Len(t, cart, 1, "failed payment leaves the cart for retry")
}

func TestPaymentService_HandleCallback_MalformedPayloadIsDropped(t *testing.T) {
	gateway := &fakeGateway{resp: gatewayResponse("pay-1", "https://gateway.example/redirect")}
	f := newPaymentFixture(t, gateway)
	orderID := initiateOrder(t, f, "U1")

	// No order reference at all.
	require.NoError(t, f.service.HandleCallback(bog.CallbackPayload{
		OrderStatus: bog.CallbackStatus{Key: "completed"},
	}))
	// No status key.
	require.NoError(t, f.service.HandleCallback(bog.CallbackPayload{
		ExternalOrderID: orderID,
	}))
	// Unknown order: acknowledged, not an error.
	require.NoError(t, f.service.HandleCallback(bog.CallbackPayload{
		ExternalOrderID: "no-such-order",
		OrderStatus:     bog.CallbackStatus{Key: "completed"},
	}))

	order, err := f.orderRepo.GetByID(orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
}

func TestPaymentService_SuccessRedirectAndWebhookConverge(t *testing.T) {
	gateway := &fakeGateway{resp: gatewayResponse("pay-1", "https://gateway.example/redirect")}
	f := newPaymentFixture(t, gateway)

	_, err := f.cartRepo.Upsert(&models.CartLine{OwnerRef: "U1", ProductID: "P1", Quantity: 1})
	require.NoError(t, err)
	orderID := initiateOrder(t, f, "U1")

	// Redirect arrives first.
	order, err := f.service.HandleSuccessRedirect(orderID, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)
	assert.NotEmpty(t, order.OrderCode)

	// Webhook lands second: same terminal state, no error.
	require.NoError(t, f.service.HandleCallback(bog.CallbackPayload{
		ExternalOrderID: orderID,
		OrderStatus:     bog.CallbackStatus{Key: "completed"},
	}))

	final, err := f.orderRepo.GetByID(orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, final.Status)
	assert.Equal(t, models.PaymentStatusCompleted, final.PaymentStatus)

	cart, err := f.cartRepo.GetLines("U1")
	require.NoError(t, err)
	assert.Empty(t, cart)
}

func TestPaymentService_HandleSuccessRedirect_UnknownOrder(t *testing.T) {
	gateway := &fakeGateway{resp: gatewayResponse("pay-1", "https://gateway.example/redirect")}
	f := newPaymentFixture(t, gateway)

	_, err := f.service.HandleSuccessRedirect("no-such-order", "pay-1")
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestPaymentService_HandleSuccessRedirect_WrongPaymentReference(t *testing.T) {
	gateway := &fakeGateway{resp: gatewayResponse("pay-1", "https://gateway.example/redirect")}
	f := newPaymentFixture(t, gateway)
	orderID := initiateOrder(t, f, "U1")

	// A forged or mismatched payment reference must not confirm the order.
	_, err := f.service.HandleSuccessRedirect(orderID, "pay-forged")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = f.service.HandleSuccessRedirect(orderID, "")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	order, err := f.orderRepo.GetByID(orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
}

func TestPaymentService_HandleCallback_UnknownStatusKeepsTerminalState(t *testing.T) {
	gateway := &fakeGateway{resp: gatewayResponse("pay-1", "https://gateway.example/redirect")}
	f := newPaymentFixture(t, gateway)
	orderID := initiateOrder(t, f, "U1")

	// An unknown status before completion leaves the order pending.
	require.NoError(t, f.service.HandleCallback(bog.CallbackPayload{
		ExternalOrderID: orderID,
		OrderStatus:     bog.CallbackStatus{Key: "in_progress"},
	}))
	order, err := f.orderRepo.GetByID(orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)

	require.NoError(t, f.service.HandleCallback(bog.CallbackPayload{
		ExternalOrderID: orderID,
		OrderStatus:     bog.CallbackStatus{Key: "completed"},
	}))

	// A late unknown status ("refund_requested") after completion must not
	// drag the paid order back to pending.
	require.NoError(t, f.service.HandleCallback(bog.CallbackPayload{
		ExternalOrderID: orderID,
		OrderStatus:     bog.CallbackStatus{Key: "refund_requested"},
	}))

	order, err = f.orderRepo.GetByID(orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)
}

func TestOrderService_GetOrderByCode_HidesUnpaidOrders(t *testing.T) {
	gateway := &fakeGateway{resp: gatewayResponse("pay-1", "https://gateway.example/redirect")}
	f := newPaymentFixture(t, gateway)
	orderService := services.NewOrderService(f.orderRepo)

	orderID := initiateOrder(t, f, "U1")
	order, err := f.orderRepo.GetByID(orderID)
	require.NoError(t, err)

	// Pending payment: not discoverable by code, even though the row exists.
	_, err = orderService.GetOrderByCode(order.OrderCode)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	// Once completed, the code resolves.
	require.NoError(t, f.service.HandleCallback(bog.CallbackPayload{
		ExternalOrderID: orderID,
		OrderStatus:     bog.CallbackStatus{Key: "completed"},
	}))
	found, err := orderService.GetOrderByCode(order.OrderCode)
	require.NoError(t, err)
	assert.Equal(t, orderID, found.ID)
}
