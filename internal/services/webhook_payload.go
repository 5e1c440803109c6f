package services

import (
	"encoding/json"
	"fmt"
	"strings"
)

// WebhookEvent is what reconciliation needs from a gateway push, regardless of
// which payload shape carried it. Amount is nil when the shape omits it.
type WebhookEvent struct {
	GatewayOrderID string
	Status         string
	Amount         *float64
}

// Settled reports whether the pushed status is a successful settlement.
func (e *WebhookEvent) Settled() bool {
	switch strings.ToUpper(e.Status) {
	case "SUCCESS", "PAID", "ORDER_PAID":
		return true
	}
	return false
}

// webhookExtractor is one known payload shape. Extractors are tried in order;
// the first that finds an order id and a status wins. The gateway's payload
// format has changed across versions, so this list is meant to grow.
type webhookExtractor struct {
	name    string
	extract func(payload map[string]interface{}) (*WebhookEvent, bool)
}

var webhookExtractors = []webhookExtractor{
	{
		// {"data":{"order":{"order_id":...},"payment":{"payment_status":...,"payment_amount":...}}}
		name: "data.order/data.payment",
		extract: func(payload map[string]interface{}) (*WebhookEvent, bool) {
			data, ok := digMap(payload, "data")
			if !ok {
				return nil, false
			}
			order, ok := digMap(data, "order")
			if !ok {
				return nil, false
			}
			payment, ok := digMap(data, "payment")
			if !ok {
				return nil, false
			}
			id, ok := digString(order, "order_id")
			if !ok {
				return nil, false
			}
			status, ok := digString(payment, "payment_status")
			if !ok {
				return nil, false
			}
			ev := &WebhookEvent{GatewayOrderID: id, Status: status}
			if amount, ok := digFloat(payment, "payment_amount"); ok {
				ev.Amount = &amount
			}
			return ev, true
		},
	},
	{
		// {"data":{"order":{"order_id":...,"transaction_status":...,"transaction_amount":...}}}
		name: "data.order transaction fields",
		extract: func(payload map[string]interface{}) (*WebhookEvent, bool) {
			data, ok := digMap(payload, "data")
			if !ok {
				return nil, false
			}
			order, ok := digMap(data, "order")
			if !ok {
				return nil, false
			}
			id, ok := digString(order, "order_id")
			if !ok {
				return nil, false
			}
			status, ok := digString(order, "transaction_status")
			if !ok {
				return nil, false
			}
			ev := &WebhookEvent{GatewayOrderID: id, Status: status}
			if amount, ok := digFloat(order, "transaction_amount"); ok {
				ev.Amount = &amount
			}
			return ev, true
		},
	},
	{
		// {"order_id":...,"order_status":...,"order_amount":...}
		name: "flat order fields",
		extract: func(payload map[string]interface{}) (*WebhookEvent, bool) {
			id, ok := digString(payload, "order_id")
			if !ok {
				return nil, false
			}
			status, ok := digString(payload, "order_status")
			if !ok {
				return nil, false
			}
			ev := &WebhookEvent{GatewayOrderID: id, Status: status}
			if amount, ok := digFloat(payload, "order_amount"); ok {
				ev.Amount = &amount
			}
			return ev, true
		},
	},
}

// ParseWebhookPayload tries the known payload shapes in order and returns the
// extracted event plus the name of the shape that matched.
func ParseWebhookPayload(raw []byte) (*WebhookEvent, string, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, "", fmt.Errorf("%w: webhook payload is not a JSON object: %v", ErrValidation, err)
	}

	for _, ex := range webhookExtractors {
		if ev, ok := ex.extract(payload); ok {
			return ev, ex.name, nil
		}
	}
	return nil, "", fmt.Errorf("%w: no known webhook shape matched payload", ErrValidation)
}

func digMap(m map[string]interface{}, key string) (map[string]interface{}, bool) {
	child, ok := m[key].(map[string]interface{})
	return child, ok
}

func digString(m map[string]interface{}, key string) (string, bool) {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func digFloat(m map[string]interface{}, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
