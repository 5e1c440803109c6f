// Package gateway is the HTTP client for the external payment gateway.
// The gateway owns payment attempts; we only create sessions and poll them,
// reconciling outcomes into the order's own status.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"swaad_backend/pkg/utils"
)

// ErrGateway wraps any failure talking to the payment gateway.
var ErrGateway = errors.New("payment gateway error")

// Attempt statuses reported by the gateway.
const (
	AttemptSuccess = "SUCCESS"
	AttemptFailed  = "FAILED"
	AttemptPending = "PENDING"
	AttemptDropped = "USER_DROPPED"
)

// Session identifies a created payment session at the gateway.
type Session struct {
	SessionID      string
	GatewayOrderID string
}

// PaymentAttempt is one gateway-side payment record for an order.
type PaymentAttempt struct {
	Status string    `json:"payment_status"`
	Amount float64   `json:"payment_amount"`
	Time   time.Time `json:"payment_time"`
}

// CustomerDetails is the buyer identity the gateway session requires.
type CustomerDetails struct {
	ID    string `json:"customer_id"`
	Name  string `json:"customer_name"`
	Phone string `json:"customer_phone"`
}

// PaymentGateway is what the reconciliation and order services consume;
// the HTTP client below is its production implementation.
type PaymentGateway interface {
	CreateSession(ctx context.Context, orderRef string, amount float64, currency string, customer CustomerDetails) (*Session, error)
	FetchPayments(ctx context.Context, gatewayOrderID string) ([]PaymentAttempt, error)
}

// Client talks to the payment gateway's REST API.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	log          zerolog.Logger
}

// NewClient creates a gateway client. Credentials come from env config.
func NewClient(baseURL, clientID, clientSecret string) *Client {
	return &Client{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		log:          utils.ComponentLogger("gateway"),
	}
}

type createSessionRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails CustomerDetails `json:"customer_details"`
}

type createSessionResponse struct {
	PaymentSessionID string `json:"payment_session_id"`
	OrderID          string `json:"order_id"`
}

// CreateSession opens a payment session at the gateway for the given order
// reference and amount. The caller marks the order cancelled/failed if this
// errors; the order row itself is retained for audit.
func (c *Client) CreateSession(ctx context.Context, orderRef string, amount float64, currency string, customer CustomerDetails) (*Session, error) {
	body, err := json.Marshal(createSessionRequest{
		OrderID:         orderRef,
		OrderAmount:     amount,
		OrderCurrency:   currency,
		CustomerDetails: customer,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding create-session request: %v", ErrGateway, err)
	}

	var resp createSessionResponse
	if err := c.do(ctx, http.MethodPost, "/orders", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	if resp.PaymentSessionID == "" || resp.OrderID == "" {
		return nil, fmt.Errorf("%w: create-session response missing session or order id", ErrGateway)
	}
	return &Session{SessionID: resp.PaymentSessionID, GatewayOrderID: resp.OrderID}, nil
}

// FetchPayments polls the gateway's payment attempts for an order. Read-only;
// used by the client-verify reconciliation path.
func (c *Client) FetchPayments(ctx context.Context, gatewayOrderID string) ([]PaymentAttempt, error) {
	var attempts []PaymentAttempt
	path := fmt.Sprintf("/orders/%s/payments", gatewayOrderID)
	if err := c.do(ctx, http.MethodGet, path, nil, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrGateway, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-client-secret", c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrGateway, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Bytes("body", raw).Msg("Gateway returned non-2xx")
		return fmt.Errorf("%w: %s %s returned status %d", ErrGateway, method, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s %s response: %v", ErrGateway, method, path, err)
	}
	return nil
}

// VerifyWebhookSignature checks the gateway's HMAC-SHA256 webhook signature
// (base64 over timestamp + raw payload). An empty secret disables the check.
func VerifyWebhookSignature(secret, timestamp string, payload []byte, signature string) bool {
	if secret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
