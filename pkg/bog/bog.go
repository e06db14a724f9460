// Package bog is a client for the Bank of Georgia e-commerce payments API.
// It covers the slice of the contract the storefront needs: OAuth
// client-credentials auth, remote order creation, and the callback payload.
package bog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultBaseURL is the production e-commerce API root.
	DefaultBaseURL = "https://api.bog.ge/payments/v1"
	// DefaultAuthURL is the OAuth token endpoint.
	DefaultAuthURL = "https://oauth2.bog.ge/auth/realms/bog/protocol/openid-connect/token"

	defaultTimeout = 15 * time.Second
)

// Config holds the gateway connection settings.
type Config struct {
	BaseURL      string
	AuthURL      string
	ClientID     string
	ClientSecret string
	// Timeout bounds every outbound call, token fetches included. A gateway
	// that hangs must surface as a GatewayError, never block a checkout.
	Timeout time.Duration
}

// Client is a Bank of Georgia payments API client. It is safe for concurrent
// use; the OAuth token is cached and refreshed under a mutex.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authURL    string
	clientID   string
	secret     string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewClient creates a new gateway client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		authURL:    authURL,
		clientID:   cfg.ClientID,
		secret:     cfg.ClientSecret,
	}
}

// GatewayError reports a failed gateway call with enough upstream detail for
// operator diagnosis. StatusCode is zero for transport-level failures
// (timeouts, connection errors).
type GatewayError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment gateway call failed: %v", e.Err)
	}
	return fmt.Sprintf("payment gateway returned status %d: %s", e.StatusCode, e.Body)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// CreateOrderRequest is the gateway's create-order body.
type CreateOrderRequest struct {
	CallbackURL     string        `json:"callback_url"`
	ExternalOrderID string        `json:"external_order_id"`
	Capture         string        `json:"capture"`
	PurchaseUnits   PurchaseUnits `json:"purchase_units"`
	RedirectURLs    RedirectURLs  `json:"redirect_urls"`
	// TTL is the payment window in minutes; the gateway abandons the order
	// once it elapses.
	TTL            int           `json:"ttl,omitempty"`
	PaymentMethods []string      `json:"payment_method,omitempty"`
	Config         MethodOptions `json:"config,omitempty"`
}

// PurchaseUnits carries the order total and basket lines.
type PurchaseUnits struct {
	Currency    string       `json:"currency"`
	TotalAmount float64      `json:"total_amount"`
	Basket      []BasketItem `json:"basket"`
}

// BasketItem is one line of the gateway basket.
type BasketItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// RedirectURLs are where the customer's browser is sent after the gateway
// finishes.
type RedirectURLs struct {
	Success string `json:"success"`
	Fail    string `json:"fail"`
}

// CreateOrderResponse is the gateway's create-order reply.
type CreateOrderResponse struct {
	ID    string `json:"id"`
	Links struct {
		Redirect struct {
			Href string `json:"href"`
		} `json:"redirect"`
	} `json:"_links"`
}

// RedirectURL returns the customer approval link, or "" when the response
// carries none. Callers must treat "" as a hard failure of payment initiation.
func (r *CreateOrderResponse) RedirectURL() string {
	return r.Links.Redirect.Href
}

// CallbackPayload is the asynchronous server-to-server callback body.
type CallbackPayload struct {
	ExternalOrderID string         `json:"external_order_id"`
	OrderID         string         `json:"order_id"`
	OrderStatus     CallbackStatus `json:"order_status"`
}

// CallbackStatus is the gateway's status vocabulary inside a callback.
type CallbackStatus struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// Valid reports whether the payload carries the fields reconciliation needs.
// Invalid payloads are acknowledged but never applied.
func (p *CallbackPayload) Valid() bool {
	return p.ExternalOrderID != "" && p.OrderStatus.Key != ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// bearerToken returns a cached OAuth token, fetching a fresh one via the
// client-credentials grant when the cache is empty or about to expire.
func (c *Client) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &GatewayError{Err: fmt.Errorf("build token request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &GatewayError{Err: fmt.Errorf("token request: %w", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &GatewayError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", &GatewayError{Err: fmt.Errorf("decode token response: %w", err)}
	}
	if tok.AccessToken == "" {
		return "", &GatewayError{Err: fmt.Errorf("token response carried no access_token")}
	}

	c.token = tok.AccessToken
	// Refresh a minute early so an in-flight order creation never races an
	// expiring token.
	c.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

// CreateOrder creates a remote payment order at the gateway. Any non-2xx
// response, transport failure, or timeout is returned as a *GatewayError and
// never silently swallowed.
func (c *Client) CreateOrder(ctx context.Context, orderReq CreateOrderRequest) (*CreateOrderResponse, error) {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(orderReq)
	if err != nil {
		return nil, &GatewayError{Err: fmt.Errorf("marshal create-order request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ecommerce/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, &GatewayError{Err: fmt.Errorf("build create-order request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Err: fmt.Errorf("create-order request: %w", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out CreateOrderResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &GatewayError{Err: fmt.Errorf("decode create-order response: %w", err)}
	}
	return &out, nil
}
