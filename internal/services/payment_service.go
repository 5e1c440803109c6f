package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"swaad_backend/internal/events"
	"swaad_backend/internal/gateway"
	"swaad_backend/internal/metrics"
	"swaad_backend/internal/models"
	"swaad_backend/internal/repositories"
	"swaad_backend/internal/scheduler"
	"swaad_backend/pkg/utils"
)

// ReconcileResult is the outcome envelope of one reconciliation attempt.
type ReconcileResult struct {
	OrderID       int64                `json:"order_id"`
	Outcome       string               `json:"outcome"`
	Status        models.OrderStatus   `json:"status"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	Note          string               `json:"note,omitempty"`
}

// PaymentService is the reconciliation engine. The client-verify poll and the
// gateway webhook both converge on the same idempotent settle; whichever wins
// the race performs the single authoritative transition and the loser
// short-circuits on the already-settled payment status.
type PaymentService interface {
	VerifyPayment(ctx context.Context, orderID int64, customerUID string) (*ReconcileResult, error)
	HandleWebhook(ctx context.Context, raw []byte, timestamp, signature string) (*ReconcileResult, error)
}

// orderLocker serializes settlement mutations on one order: the callback runs
// with the row locked and its writes commit only if the callback returns nil.
type orderLocker interface {
	WithLockedOrder(orderID int64, fn func(exec repositories.SQLExecutor, order *models.Order) error) error
}

type sqlOrderLocker struct {
	db   *sql.DB
	repo repositories.OrderRepository
}

func (l *sqlOrderLocker) WithLockedOrder(orderID int64, fn func(repositories.SQLExecutor, *models.Order) error) error {
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start settle transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := l.repo.GetOrderByIDForUpdate(tx, orderID)
	if err != nil {
		return err
	}
	if err := fn(tx, order); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}
	return nil
}

type paymentService struct {
	locker         orderLocker
	orderRepo      repositories.OrderRepository
	restaurantRepo repositories.RestaurantRepository
	gw             gateway.PaymentGateway
	bus            *events.Bus
	windows        *scheduler.ResponseWindow
	onExpire       scheduler.ExpireFunc
	webhookSecret  string
	log            zerolog.Logger
}

// NewPaymentService creates the reconciliation engine. onExpire is the
// auto-reject callback armed when a response window starts.
func NewPaymentService(
	db *sql.DB,
	orderRepo repositories.OrderRepository,
	restaurantRepo repositories.RestaurantRepository,
	gw gateway.PaymentGateway,
	bus *events.Bus,
	windows *scheduler.ResponseWindow,
	onExpire scheduler.ExpireFunc,
	webhookSecret string,
) PaymentService {
	return &paymentService{
		locker:         &sqlOrderLocker{db: db, repo: orderRepo},
		orderRepo:      orderRepo,
		restaurantRepo: restaurantRepo,
		gw:             gw,
		bus:            bus,
		windows:        windows,
		onExpire:       onExpire,
		webhookSecret:  webhookSecret,
		log:            utils.ComponentLogger("reconciliation"),
	}
}

// settlement is the decision input to settle: whether a successful attempt was
// observed, and the amount the gateway reported for it (nil if unknown).
type settlement struct {
	success bool
	amount  *float64
}

func (s *paymentService) VerifyPayment(ctx context.Context, orderID int64, customerUID string) (*ReconcileResult, error) {
	order, err := s.orderRepo.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to fetch order for verification: %w", err)
	}

	// A no-success verify settles the order as failed, so letting anyone else
	// trigger it would let strangers cancel an order mid-checkout.
	if order.CustomerUID != customerUID {
		return nil, ErrNotOwner
	}

	// Idempotency short-circuit before touching the gateway. The authoritative
	// guard is the locked re-check inside settle; this only skips the poll.
	if shortCircuit := alreadySettled(order); shortCircuit != nil {
		metrics.ReconciliationOutcomes.WithLabelValues(metrics.PathVerify, metrics.ResultAlreadyProcessed).Inc()
		return shortCircuit, nil
	}

	var st settlement
	if order.GatewayOrderID == nil {
		// Session creation never completed; there is nothing to poll.
		st = settlement{success: false}
	} else {
		attempts, err := s.gw.FetchPayments(ctx, *order.GatewayOrderID)
		if err != nil {
			// No mutation: the client may simply retry the poll.
			return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
		}
		st = settlementFromAttempts(attempts)
	}

	return s.settle(orderID, metrics.PathVerify, st)
}

func (s *paymentService) HandleWebhook(ctx context.Context, raw []byte, timestamp, signature string) (*ReconcileResult, error) {
	if !gateway.VerifyWebhookSignature(s.webhookSecret, timestamp, raw, signature) {
		return nil, fmt.Errorf("%w: webhook signature verification failed", ErrValidation)
	}

	ev, shape, err := ParseWebhookPayload(raw)
	if err != nil {
		metrics.WebhookParseFailures.Inc()
		return nil, err
	}
	s.log.Debug().Str("shape", shape).Str("gateway_order_id", ev.GatewayOrderID).Str("status", ev.Status).Msg("Webhook payload parsed")

	order, err := s.orderRepo.GetOrderByGatewayOrderID(ev.GatewayOrderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: no order for gateway order %s", ErrOrderNotFound, ev.GatewayOrderID)
		}
		return nil, fmt.Errorf("failed to fetch order for webhook: %w", err)
	}

	return s.settle(order.ID, metrics.PathWebhook, settlement{success: ev.Settled(), amount: ev.Amount})
}

// settlementFromAttempts selects the gateway attempt that settled the payment.
func settlementFromAttempts(attempts []gateway.PaymentAttempt) settlement {
	for i := len(attempts) - 1; i >= 0; i-- {
		if attempts[i].Status == gateway.AttemptSuccess {
			amount := attempts[i].Amount
			return settlement{success: true, amount: &amount}
		}
	}
	return settlement{success: false}
}

func alreadySettled(order *models.Order) *ReconcileResult {
	switch order.PaymentStatus {
	case models.PaymentSuccess:
		return &ReconcileResult{
			OrderID:       order.ID,
			Outcome:       metrics.ResultAlreadyProcessed,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			Note:          "payment already processed",
		}
	case models.PaymentFailed, models.PaymentCancelled:
		return &ReconcileResult{
			OrderID:       order.ID,
			Outcome:       metrics.ResultAlreadyProcessed,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			Note:          "payment already in a terminal state",
		}
	}
	return nil
}

// settle performs the single authoritative transition. The order row stays
// locked for the duration, so two racing triggers serialize here and the
// second one takes the already-settled short-circuit. Side effects (metrics,
// the response window, the notification event) run only after the commit.
func (s *paymentService) settle(orderID int64, path string, st settlement) (*ReconcileResult, error) {
	var (
		result    *ReconcileResult
		outcome   string
		notify    bool
		snapshot  models.Order
		settleErr error
	)

	err := s.locker.WithLockedOrder(orderID, func(exec repositories.SQLExecutor, order *models.Order) error {
		snapshot = *order

		if shortCircuit := alreadySettled(order); shortCircuit != nil {
			result, outcome = shortCircuit, metrics.ResultAlreadyProcessed
			return nil
		}

		// Amount revalidation: a SUCCESS report whose amount deviates from the
		// stored total is security-relevant and force-cancels the order.
		if st.success && st.amount != nil && math.Abs(*st.amount-order.TotalAmount) > TotalTolerance {
			if err := s.orderRepo.SetPaymentOutcome(exec, orderID, models.PaymentFailed, models.StatusCancelled, nil); err != nil {
				return fmt.Errorf("failed to cancel order on amount mismatch: %w", err)
			}
			result = &ReconcileResult{OrderID: orderID, Outcome: metrics.ResultAmountMismatch, Status: models.StatusCancelled, PaymentStatus: models.PaymentFailed}
			outcome = metrics.ResultAmountMismatch
			settleErr = fmt.Errorf("%w: reported %.2f, expected %.2f", ErrAmountMismatch, *st.amount, order.TotalAmount)
			return nil
		}

		if !st.success {
			if err := s.orderRepo.SetPaymentOutcome(exec, orderID, models.PaymentFailed, models.StatusCancelled, nil); err != nil {
				return fmt.Errorf("failed to mark payment failed: %w", err)
			}
			result = &ReconcileResult{OrderID: orderID, Outcome: metrics.ResultFailed, Status: models.StatusCancelled, PaymentStatus: models.PaymentFailed}
			outcome = metrics.ResultFailed
			return nil
		}

		// Confirmed, amount-valid settlement. Restaurant online/notification
		// state is a read-only policy check: an offline restaurant must never
		// be handed a response window it cannot see.
		notifiable := false
		restaurant, err := s.restaurantRepo.GetByUID(order.RestaurantUID)
		if err != nil {
			s.log.Error().Err(err).Str("restaurant_uid", order.RestaurantUID).Msg("Restaurant lookup failed during settlement")
		} else {
			notifiable = restaurant.Online && restaurant.NotificationsEnabled
		}

		if notifiable {
			deadline := time.Now().Add(s.windows.Window())
			if err := s.orderRepo.SetPaymentOutcome(exec, orderID, models.PaymentSuccess, models.StatusPending, &deadline); err != nil {
				return fmt.Errorf("failed to confirm payment: %w", err)
			}
			result = &ReconcileResult{OrderID: orderID, Outcome: metrics.ResultSuccess, Status: models.StatusPending, PaymentStatus: models.PaymentSuccess}
			notify = true
		} else {
			if err := s.orderRepo.SetPaymentOutcome(exec, orderID, models.PaymentSuccess, models.StatusPendingRestaurantOnline, nil); err != nil {
				return fmt.Errorf("failed to confirm payment for offline restaurant: %w", err)
			}
			result = &ReconcileResult{OrderID: orderID, Outcome: metrics.ResultSuccess, Status: models.StatusPendingRestaurantOnline, PaymentStatus: models.PaymentSuccess}
		}
		outcome = metrics.ResultSuccess
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	metrics.ReconciliationOutcomes.WithLabelValues(path, outcome).Inc()

	switch {
	case outcome == metrics.ResultAmountMismatch:
		s.log.Warn().Int64("order_id", orderID).Float64("reported", *st.amount).Float64("expected", snapshot.TotalAmount).
			Str("path", path).Msg("Payment amount mismatch, order force-cancelled")
	case notify:
		s.windows.Schedule(orderID, s.onExpire)
		s.bus.Publish(events.NewEvent(events.Event{
			Type:          events.TypePaymentConfirmed,
			OrderID:       orderID,
			RestaurantUID: snapshot.RestaurantUID,
			CustomerUID:   snapshot.CustomerUID,
			Status:        models.StatusPending,
			TotalAmount:   snapshot.TotalAmount,
		}))
	case outcome == metrics.ResultSuccess:
		s.log.Info().Int64("order_id", orderID).Str("restaurant_uid", snapshot.RestaurantUID).
			Msg("Restaurant offline or opted out, order held until it comes online")
	}
	return result, settleErr
}
