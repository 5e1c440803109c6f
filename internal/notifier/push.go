package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrInvalidToken marks a device token the push endpoint rejected as dead.
// The notifier prunes such tokens instead of retrying them.
var ErrInvalidToken = errors.New("invalid device token")

// PushMessage is one notification addressed to a single device token.
type PushMessage struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// PushSender delivers a push notification to one device.
type PushSender interface {
	Send(ctx context.Context, msg PushMessage) error
}

// HTTPPushSender posts messages to a push relay endpoint.
type HTTPPushSender struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPPushSender(endpoint, apiKey string) *HTTPPushSender {
	return &HTTPPushSender{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPPushSender) Send(ctx context.Context, msg PushMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal push message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: endpoint returned %d", ErrInvalidToken, resp.StatusCode)
	default:
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}
}
