package statemachine

import (
	"errors"
	"testing"

	"swaad_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		from  models.OrderStatus
		to    models.OrderStatus
		actor string
		ok    bool
	}{
		{"payment confirmed", models.StatusPaymentPending, models.StatusPending, ActorSystem, true},
		{"payment confirmed offline restaurant", models.StatusPaymentPending, models.StatusPendingRestaurantOnline, ActorSystem, true},
		{"payment failed", models.StatusPaymentPending, models.StatusCancelled, ActorSystem, true},
		{"restaurant back online", models.StatusPendingRestaurantOnline, models.StatusPending, ActorSystem, true},
		{"forward to ready", models.StatusPreparing, models.StatusReady, ActorRestaurant, true},
		{"forward to on the way", models.StatusReady, models.StatusOnTheWay, ActorRestaurant, true},
		{"forward to delivered", models.StatusOnTheWay, models.StatusDelivered, ActorRestaurant, true},
		{"admin cancels preparing", models.StatusPreparing, models.StatusCancelled, ActorAdmin, true},

		// Only the dedicated accept/reject actions may leave pending.
		{"generic accept is illegal", models.StatusPending, models.StatusPreparing, ActorRestaurant, false},
		{"generic reject is illegal", models.StatusPending, models.StatusRejected, ActorRestaurant, false},
		{"system cannot accept either", models.StatusPending, models.StatusPreparing, ActorSystem, false},

		{"no skipping stages", models.StatusPreparing, models.StatusDelivered, ActorRestaurant, false},
		{"no backwards moves", models.StatusReady, models.StatusPreparing, ActorRestaurant, false},
		{"terminal delivered", models.StatusDelivered, models.StatusCancelled, ActorAdmin, false},
		{"terminal rejected", models.StatusRejected, models.StatusPending, ActorSystem, false},
		{"terminal cancelled", models.StatusCancelled, models.StatusPending, ActorSystem, false},
		{"restaurant cannot settle payment", models.StatusPaymentPending, models.StatusPending, ActorRestaurant, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(tt.from, tt.to, tt.actor)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTransition))
			}
		})
	}
}

func TestValidTransitionsFrom(t *testing.T) {
	t.Parallel()

	nexts := ValidTransitionsFrom(models.StatusPaymentPending)
	assert.ElementsMatch(t, []models.OrderStatus{
		models.StatusPending,
		models.StatusPendingRestaurantOnline,
		models.StatusCancelled,
	}, nexts)

	// pending only leaves via admin cancel in the table; accept/reject bypass it
	assert.Equal(t, []models.OrderStatus{models.StatusCancelled}, ValidTransitionsFrom(models.StatusPending))

	assert.Empty(t, ValidTransitionsFrom(models.StatusDelivered))
}
