// Package events carries the core's domain events to the notifier over an
// in-process bus, so publish/push side effects never block or fail order logic.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"swaad_backend/internal/models"
	"swaad_backend/pkg/utils"
)

// Type discriminates domain events.
type Type string

const (
	TypePaymentConfirmed   Type = "payment_confirmed"
	TypeOrderStatusChanged Type = "order_status_changed"
)

// Event is one domain event emitted by the order core.
type Event struct {
	ID            string             `json:"id"`
	Type          Type               `json:"type"`
	OrderID       int64              `json:"order_id"`
	RestaurantUID string             `json:"restaurant_uid"`
	CustomerUID   string             `json:"customer_uid"`
	Status        models.OrderStatus `json:"status"`
	TotalAmount   float64            `json:"total_amount"`
	Reason        string             `json:"reason,omitempty"`
	AutoRejected  bool               `json:"auto_rejected,omitempty"`
	RefundDue     bool               `json:"refund_due,omitempty"`
	At            time.Time          `json:"at"`
}

// NewEvent stamps id and time on a partially filled event.
func NewEvent(e Event) Event {
	e.ID = uuid.NewString()
	e.At = time.Now()
	return e
}

// Bus is a fan-out channel bus. Publish never blocks: a subscriber whose
// buffer is full loses the event, which is logged. Order correctness never
// depends on delivery; events only drive notifications.
type Bus struct {
	mu   sync.RWMutex
	subs []chan Event
	size int
	log  zerolog.Logger
}

// NewBus creates a bus whose subscriber channels buffer size events each.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = 64
	}
	return &Bus{size: size, log: utils.ComponentLogger("events")}
}

// Subscribe registers a new subscriber channel.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, b.size)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.log.Warn().Str("event_id", e.ID).Str("type", string(e.Type)).Int64("order_id", e.OrderID).
				Msg("Subscriber buffer full, event dropped")
		}
	}
}

// Close closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
