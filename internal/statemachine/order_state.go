package statemachine

import (
	"errors"
	"fmt"

	"swaad_backend/internal/models"
)

// ErrInvalidTransition is returned for any move not in the transition table.
var ErrInvalidTransition = errors.New("invalid order status transition")

// Actors that can drive status changes through the generic update path.
// Accept and reject are deliberately absent from this table: the only way out
// of pending into preparing/rejected is the dedicated accept/reject action,
// which performs its own compare-and-set on status = pending.
const (
	ActorSystem     = "system"
	ActorRestaurant = "restaurant"
	ActorAdmin      = "admin"
)

// Transition defines a valid state change and who can perform it.
type Transition struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string
}

// validTransitions is the authoritative state machine definition.
var validTransitions = []Transition{
	// Payment settlement outcomes
	{From: models.StatusPaymentPending, To: models.StatusPending, Actor: ActorSystem},
	{From: models.StatusPaymentPending, To: models.StatusPendingRestaurantOnline, Actor: ActorSystem},
	{From: models.StatusPaymentPending, To: models.StatusCancelled, Actor: ActorSystem},
	// Restaurant comes back online, held orders are released
	{From: models.StatusPendingRestaurantOnline, To: models.StatusPending, Actor: ActorSystem},
	// Forward-only fulfilment progression
	{From: models.StatusPreparing, To: models.StatusReady, Actor: ActorRestaurant},
	{From: models.StatusReady, To: models.StatusOnTheWay, Actor: ActorRestaurant},
	{From: models.StatusOnTheWay, To: models.StatusDelivered, Actor: ActorRestaurant},
	// Administrative cancellation of any non-terminal order
	{From: models.StatusPaymentPending, To: models.StatusCancelled, Actor: ActorAdmin},
	{From: models.StatusPendingRestaurantOnline, To: models.StatusCancelled, Actor: ActorAdmin},
	{From: models.StatusPending, To: models.StatusCancelled, Actor: ActorAdmin},
	{From: models.StatusPreparing, To: models.StatusCancelled, Actor: ActorAdmin},
	{From: models.StatusReady, To: models.StatusCancelled, Actor: ActorAdmin},
	{From: models.StatusOnTheWay, To: models.StatusCancelled, Actor: ActorAdmin},
}

type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string
}

// Build a lookup map for O(1) validation
var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// ValidTransitionsFrom returns all valid next states from a given state.
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another.
func CanTransition(from, to models.OrderStatus, actor string) error {
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s is not allowed for actor %q", ErrInvalidTransition, from, to, actor)
}
