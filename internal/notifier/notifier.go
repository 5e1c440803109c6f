// Package notifier consumes domain events and fans them out to websocket
// channels and restaurant push devices. It is strictly downstream of order
// logic: a failed delivery is logged and counted, never surfaced.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"swaad_backend/internal/events"
	"swaad_backend/internal/metrics"
	"swaad_backend/internal/models"
	"swaad_backend/internal/realtime"
	"swaad_backend/internal/repositories"
	"swaad_backend/pkg/utils"
)

type Notifier struct {
	ch             <-chan events.Event
	hub            *realtime.Hub
	push           PushSender
	restaurantRepo repositories.RestaurantRepository
	log            zerolog.Logger
}

func NewNotifier(bus *events.Bus, hub *realtime.Hub, push PushSender, restaurantRepo repositories.RestaurantRepository) *Notifier {
	return &Notifier{
		ch:             bus.Subscribe(),
		hub:            hub,
		push:           push,
		restaurantRepo: restaurantRepo,
		log:            utils.ComponentLogger("notifier"),
	}
}

// Run drains the bus until ctx is cancelled or the bus is closed. Events are
// handled one at a time; deliveries within an event run concurrently.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-n.ch:
			if !ok {
				return
			}
			n.handle(ctx, e)
		}
	}
}

func (n *Notifier) handle(ctx context.Context, e events.Event) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n.hub.Publish(realtime.RestaurantChannel(e.RestaurantUID), string(e.Type), e)
		return nil
	})
	g.Go(func() error {
		n.hub.Publish(realtime.CustomerChannel(e.CustomerUID), string(e.Type), e)
		return nil
	})
	if e.Type == events.TypePaymentConfirmed {
		g.Go(func() error {
			n.pushToRestaurant(gctx, e)
			return nil
		})
	}

	// Workers log their own failures and return nil, so Wait only orders
	// shutdown; nothing here can fail the loop.
	_ = g.Wait()
}

// pushToRestaurant sends a new-order push to every registered device of the
// restaurant. Invalid tokens are pruned so dead devices stop accumulating.
func (n *Notifier) pushToRestaurant(ctx context.Context, e events.Event) {
	tokens, err := n.restaurantRepo.ListDeviceTokens(e.RestaurantUID)
	if err != nil {
		n.log.Error().Err(err).Str("restaurant_uid", e.RestaurantUID).Msg("Failed to list device tokens")
		return
	}
	if len(tokens) == 0 {
		return
	}

	msg := PushMessage{
		Title: "New order received",
		Body:  fmt.Sprintf("Order #%d for ₹%.2f is waiting for your response", e.OrderID, e.TotalAmount),
		Data: map[string]string{
			"order_id": strconv.FormatInt(e.OrderID, 10),
			"status":   string(models.StatusPending),
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, token := range tokens {
		msg := msg
		msg.Token = token
		g.Go(func() error {
			if err := n.push.Send(gctx, msg); err != nil {
				metrics.PushFailures.Inc()
				if errors.Is(err, ErrInvalidToken) {
					if delErr := n.restaurantRepo.DeleteDeviceToken(msg.Token); delErr != nil {
						n.log.Error().Err(delErr).Msg("Failed to prune invalid device token")
					} else {
						n.log.Info().Int64("order_id", e.OrderID).Msg("Pruned invalid device token")
					}
					return nil
				}
				n.log.Error().Err(err).Int64("order_id", e.OrderID).Str("restaurant_uid", e.RestaurantUID).
					Msg("Push notification failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}
