package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "cid", r.Header.Get("x-client-id"))
		assert.Equal(t, "secret", r.Header.Get("x-client-secret"))

		var req createSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "swaad_42", req.OrderID)
		assert.Equal(t, 529.0, req.OrderAmount)
		assert.Equal(t, "INR", req.OrderCurrency)
		assert.Equal(t, "cust-1", req.CustomerDetails.ID)

		json.NewEncoder(w).Encode(createSessionResponse{
			PaymentSessionID: "sess_abc",
			OrderID:          "gw_order_42",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "cid", "secret")
	session, err := c.CreateSession(context.Background(), "swaad_42", 529.0, "INR", CustomerDetails{ID: "cust-1", Name: "Asha", Phone: "9999999999"})
	require.NoError(t, err)
	assert.Equal(t, "sess_abc", session.SessionID)
	assert.Equal(t, "gw_order_42", session.GatewayOrderID)
}

func TestCreateSessionGatewayFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"auth failed"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "cid", "bad")
	_, err := c.CreateSession(context.Background(), "swaad_1", 100, "INR", CustomerDetails{ID: "c"})
	require.ErrorIs(t, err, ErrGateway)
}

func TestFetchPayments(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/gw_order_7/payments", r.URL.Path)
		w.Write([]byte(`[
			{"payment_status":"FAILED","payment_amount":529,"payment_time":"2025-03-01T10:00:00Z"},
			{"payment_status":"SUCCESS","payment_amount":529,"payment_time":"2025-03-01T10:01:00Z"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "cid", "secret")
	attempts, err := c.FetchPayments(context.Background(), "gw_order_7")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, AttemptFailed, attempts[0].Status)
	assert.Equal(t, AttemptSuccess, attempts[1].Status)
	assert.Equal(t, 529.0, attempts[1].Amount)
}

func TestVerifyWebhookSignature(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"data":{}}`)
	mac := hmac.New(sha256.New, []byte("whsec"))
	mac.Write([]byte("1700000000"))
	mac.Write(payload)
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifyWebhookSignature("whsec", "1700000000", payload, sig))
	assert.False(t, VerifyWebhookSignature("whsec", "1700000001", payload, sig))
	assert.False(t, VerifyWebhookSignature("whsec", "1700000000", []byte(`{}`), sig))

	// empty secret disables verification
	assert.True(t, VerifyWebhookSignature("", "x", payload, "anything"))
}
