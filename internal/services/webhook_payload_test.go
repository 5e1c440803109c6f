package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhookPayloadShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		raw        string
		wantShape  string
		wantID     string
		wantStatus string
		wantAmount *float64
	}{
		{
			name:       "nested order and payment objects",
			raw:        `{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":"gw_11"},"payment":{"payment_status":"SUCCESS","payment_amount":529}}}`,
			wantShape:  "data.order/data.payment",
			wantID:     "gw_11",
			wantStatus: "SUCCESS",
			wantAmount: ptr(529.0),
		},
		{
			name:       "transaction fields on the order object",
			raw:        `{"data":{"order":{"order_id":"gw_12","transaction_status":"SUCCESS","transaction_amount":156.5}}}`,
			wantShape:  "data.order transaction fields",
			wantID:     "gw_12",
			wantStatus: "SUCCESS",
			wantAmount: ptr(156.5),
		},
		{
			name:       "flat legacy shape",
			raw:        `{"order_id":"gw_13","order_status":"PAID","order_amount":93}`,
			wantShape:  "flat order fields",
			wantID:     "gw_13",
			wantStatus: "PAID",
			wantAmount: ptr(93.0),
		},
		{
			name:       "amount omitted",
			raw:        `{"order_id":"gw_14","order_status":"FAILED"}`,
			wantShape:  "flat order fields",
			wantID:     "gw_14",
			wantStatus: "FAILED",
			wantAmount: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, shape, err := ParseWebhookPayload([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.wantShape, shape)
			assert.Equal(t, tt.wantID, ev.GatewayOrderID)
			assert.Equal(t, tt.wantStatus, ev.Status)
			if tt.wantAmount == nil {
				assert.Nil(t, ev.Amount)
			} else {
				require.NotNil(t, ev.Amount)
				assert.Equal(t, *tt.wantAmount, *ev.Amount)
			}
		})
	}
}

func TestParseWebhookPayloadFirstMatchWins(t *testing.T) {
	t.Parallel()

	// A payload matching both the nested and flat shapes resolves via the
	// nested extractor, which is earlier in the list.
	raw := `{
		"order_id":"flat_id","order_status":"FAILED",
		"data":{"order":{"order_id":"nested_id"},"payment":{"payment_status":"SUCCESS","payment_amount":100}}
	}`
	ev, shape, err := ParseWebhookPayload([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "data.order/data.payment", shape)
	assert.Equal(t, "nested_id", ev.GatewayOrderID)
}

func TestParseWebhookPayloadRejectsUnknown(t *testing.T) {
	t.Parallel()

	_, _, err := ParseWebhookPayload([]byte(`{"hello":"world"}`))
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = ParseWebhookPayload([]byte(`not json`))
	assert.ErrorIs(t, err, ErrValidation)

	// status present but empty string is not a match
	_, _, err = ParseWebhookPayload([]byte(`{"order_id":"gw","order_status":""}`))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestWebhookEventSettled(t *testing.T) {
	t.Parallel()

	assert.True(t, (&WebhookEvent{Status: "SUCCESS"}).Settled())
	assert.True(t, (&WebhookEvent{Status: "paid"}).Settled())
	assert.True(t, (&WebhookEvent{Status: "ORDER_PAID"}).Settled())
	assert.False(t, (&WebhookEvent{Status: "FAILED"}).Settled())
	assert.False(t, (&WebhookEvent{Status: "USER_DROPPED"}).Settled())
}

func ptr(f float64) *float64 { return &f }
