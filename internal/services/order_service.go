package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"swaad_backend/internal/events"
	"swaad_backend/internal/gateway"
	"swaad_backend/internal/metrics"
	"swaad_backend/internal/models"
	"swaad_backend/internal/repositories"
	"swaad_backend/internal/scheduler"
	"swaad_backend/internal/statemachine"
	"swaad_backend/pkg/utils"
)

// AutoRejectReason is the system-supplied reason stored when the response
// window expires without a restaurant decision.
const AutoRejectReason = "Restaurant did not respond within the response window"

// CreateOrderRequest is the createOrder input. Subtotal and TotalAmount are
// client-declared and re-verified server-side; CustomerUID comes from the
// authenticated context, never the body.
type CreateOrderRequest struct {
	RestaurantUID   string           `json:"restaurant_uid" binding:"required"`
	CustomerUID     string           `json:"-"`
	Items           []OrderLineInput `json:"items" binding:"required,dive"`
	Subtotal        float64          `json:"subtotal" binding:"required"`
	TotalAmount     float64          `json:"total_amount" binding:"required"`
	DeliveryAddress string           `json:"delivery_address" binding:"required"`
	Latitude        *float64         `json:"latitude"`
	Longitude       *float64         `json:"longitude"`
	PaymentMethod   string           `json:"payment_method" binding:"required"`
	Notes           string           `json:"notes"`
}

// OrderService owns order creation and every lifecycle transition that is not
// payment reconciliation.
type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error)
	GetOrderByID(orderID int64) (*models.Order, error)
	GetOrders(filters models.OrderFilters) ([]models.Order, int, error)
	UpdateOrderStatus(orderID int64, newStatus models.OrderStatus, actor string) (*models.Order, error)
	AcceptOrder(orderID int64, restaurantUID string) (*models.Order, error)
	RejectOrder(orderID int64, restaurantUID, reason string) (*models.Order, error)
	AutoReject(orderID int64)
	SetRestaurantOnline(restaurantUID string, online bool) ([]int64, error)
}

type orderService struct {
	db             *sql.DB
	orderRepo      repositories.OrderRepository
	restaurantRepo repositories.RestaurantRepository
	customerRepo   repositories.CustomerRepository
	pricing        PricingService
	gw             gateway.PaymentGateway
	bus            *events.Bus
	windows        *scheduler.ResponseWindow
	log            zerolog.Logger
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	db *sql.DB,
	orderRepo repositories.OrderRepository,
	restaurantRepo repositories.RestaurantRepository,
	customerRepo repositories.CustomerRepository,
	pricing PricingService,
	gw gateway.PaymentGateway,
	bus *events.Bus,
	windows *scheduler.ResponseWindow,
) OrderService {
	return &orderService{
		db:             db,
		orderRepo:      orderRepo,
		restaurantRepo: restaurantRepo,
		customerRepo:   customerRepo,
		pricing:        pricing,
		gw:             gw,
		bus:            bus,
		windows:        windows,
		log:            utils.ComponentLogger("orders"),
	}
}

func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	if utils.IsEmpty(req.DeliveryAddress) {
		return nil, fmt.Errorf("%w: delivery address is required", ErrValidation)
	}
	if utils.IsEmpty(req.PaymentMethod) {
		return nil, fmt.Errorf("%w: payment method is required", ErrValidation)
	}

	customer, err := s.customerRepo.GetByUID(req.CustomerUID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to fetch customer: %w", err)
	}
	if _, err := s.restaurantRepo.GetByUID(req.RestaurantUID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("failed to fetch restaurant: %w", err)
	}

	breakdown, err := s.pricing.Validate(req.RestaurantUID, req.Items, req.Subtotal, req.TotalAmount)
	if err != nil {
		return nil, err
	}

	accuracy := models.LocationAddressOnly
	if req.Latitude != nil && req.Longitude != nil {
		accuracy = models.LocationCoordinates
	}

	order := models.Order{
		RestaurantUID:    req.RestaurantUID,
		CustomerUID:      customer.UID,
		CustomerName:     customer.FullName,
		CustomerPhone:    customer.Phone,
		DeliveryAddress:  req.DeliveryAddress,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		LocationAccuracy: accuracy,
		PaymentMethod:    req.PaymentMethod,
		Notes:            models.NewNullString(req.Notes),
		Subtotal:         breakdown.Subtotal,
		DeliveryFee:      breakdown.DeliveryFee,
		PackingFee:       breakdown.PackingFee,
		GSTAmount:        breakdown.GSTAmount,
		PlatformFee:      breakdown.PlatformFee,
		TotalAmount:      breakdown.Total,
		Status:           models.StatusPaymentPending,
		PaymentStatus:    models.PaymentPending,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start order transaction: %w", err)
	}
	defer tx.Rollback()

	orderID, err := s.orderRepo.CreateOrder(tx, &order)
	if err != nil {
		return nil, fmt.Errorf("failed to create order record: %w", err)
	}
	for _, line := range breakdown.Lines {
		item := models.OrderItem{
			OrderID:    orderID,
			MenuItemID: line.MenuItemID,
			ItemName:   line.ItemName,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			TotalPrice: line.TotalPrice,
		}
		if _, err := s.orderRepo.CreateOrderItem(tx, &item); err != nil {
			// A menu item vanished between validation and insert; the whole
			// order rolls back and no partial order exists.
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: menu item %d", ErrItemUnavailable, line.MenuItemID)
			}
			return nil, fmt.Errorf("failed to create order item (menu item %d): %w", line.MenuItemID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order transaction: %w", err)
	}
	metrics.OrdersCreated.Inc()

	// The order row is committed before the gateway call: if the gateway
	// fails, the order is marked cancelled but retained for audit.
	session, err := s.gw.CreateSession(ctx, fmt.Sprintf("swaad_%d", orderID), breakdown.Total, "INR", gateway.CustomerDetails{
		ID:    customer.UID,
		Name:  customer.FullName,
		Phone: customer.Phone,
	})
	if err != nil {
		if markErr := s.orderRepo.SetPaymentOutcome(s.db, orderID, models.PaymentFailed, models.StatusCancelled, nil); markErr != nil {
			s.log.Error().Err(markErr).Int64("order_id", orderID).Msg("Failed to mark order cancelled after gateway error")
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}
	if err := s.orderRepo.SetPaymentSession(s.db, orderID, session.SessionID, session.GatewayOrderID); err != nil {
		return nil, fmt.Errorf("failed to store payment session: %w", err)
	}

	return s.GetOrderByID(orderID)
}

func (s *orderService) GetOrderByID(orderID int64) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order by ID: %w", err)
	}
	items, err := s.orderRepo.GetOrderItemsByOrderID(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	order.Items = items
	return order, nil
}

func (s *orderService) GetOrders(filters models.OrderFilters) ([]models.Order, int, error) {
	orders, totalCount, err := s.orderRepo.GetOrders(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get orders: %w", err)
	}
	return orders, totalCount, nil
}

// UpdateOrderStatus is the generic transition path, guarded by the state
// machine table. Leaving pending is not in the table for any actor; only the
// dedicated accept/reject actions do that.
func (s *orderService) UpdateOrderStatus(orderID int64, newStatus models.OrderStatus, actor string) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to fetch order for status update: %w", err)
	}

	if err := statemachine.CanTransition(order.Status, newStatus, actor); err != nil {
		return nil, err
	}

	// The WHERE clause re-checks the status read above, so a transition that
	// committed in between cannot be silently overwritten.
	moved, err := s.orderRepo.UpdateStatusFrom(s.db, orderID, order.Status, newStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if !moved {
		return nil, fmt.Errorf("%w: order %d is no longer %s", statemachine.ErrInvalidTransition, orderID, order.Status)
	}

	// An administrative cancel of a pending order also disarms its window.
	if order.Status == models.StatusPending && newStatus == models.StatusCancelled {
		s.windows.Cancel(orderID)
	}

	s.bus.Publish(events.NewEvent(events.Event{
		Type:          events.TypeOrderStatusChanged,
		OrderID:       orderID,
		RestaurantUID: order.RestaurantUID,
		CustomerUID:   order.CustomerUID,
		Status:        newStatus,
		TotalAmount:   order.TotalAmount,
	}))
	return s.GetOrderByID(orderID)
}

func (s *orderService) AcceptOrder(orderID int64, restaurantUID string) (*models.Order, error) {
	order, err := s.ownedOrder(orderID, restaurantUID)
	if err != nil {
		return nil, err
	}

	// Disarm the auto-reject before mutating; the compare-and-set below still
	// protects against a timer callback already in flight.
	s.windows.Cancel(orderID)

	moved, err := s.orderRepo.TransitionFromPending(s.db, orderID, models.StatusPreparing, nil, false)
	if err != nil {
		return nil, fmt.Errorf("failed to accept order: %w", err)
	}
	if !moved {
		return nil, fmt.Errorf("%w: order %d is not pending (current status %s)", statemachine.ErrInvalidTransition, orderID, order.Status)
	}

	s.bus.Publish(events.NewEvent(events.Event{
		Type:          events.TypeOrderStatusChanged,
		OrderID:       orderID,
		RestaurantUID: order.RestaurantUID,
		CustomerUID:   order.CustomerUID,
		Status:        models.StatusPreparing,
		TotalAmount:   order.TotalAmount,
	}))
	return s.GetOrderByID(orderID)
}

func (s *orderService) RejectOrder(orderID int64, restaurantUID, reason string) (*models.Order, error) {
	if utils.IsEmpty(reason) {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrValidation)
	}
	order, err := s.ownedOrder(orderID, restaurantUID)
	if err != nil {
		return nil, err
	}

	s.windows.Cancel(orderID)

	moved, err := s.orderRepo.TransitionFromPending(s.db, orderID, models.StatusRejected, &reason, false)
	if err != nil {
		return nil, fmt.Errorf("failed to reject order: %w", err)
	}
	if !moved {
		return nil, fmt.Errorf("%w: order %d is not pending (current status %s)", statemachine.ErrInvalidTransition, orderID, order.Status)
	}

	s.bus.Publish(events.NewEvent(events.Event{
		Type:          events.TypeOrderStatusChanged,
		OrderID:       orderID,
		RestaurantUID: order.RestaurantUID,
		CustomerUID:   order.CustomerUID,
		Status:        models.StatusRejected,
		Reason:        reason,
		RefundDue:     true, // refund initiation is handled downstream
		TotalAmount:   order.TotalAmount,
	}))
	return s.GetOrderByID(orderID)
}

// AutoReject is the response-window expiry callback. It re-checks that the
// order is still pending via the compare-and-set, so a concurrent accept or
// reject at the window boundary wins cleanly. Errors are logged, not raised.
func (s *orderService) AutoReject(orderID int64) {
	order, err := s.orderRepo.GetOrderByID(orderID)
	if err != nil {
		s.log.Error().Err(err).Int64("order_id", orderID).Msg("Auto-reject could not fetch order")
		return
	}

	reason := AutoRejectReason
	moved, err := s.orderRepo.TransitionFromPending(s.db, orderID, models.StatusRejected, &reason, true)
	if err != nil {
		s.log.Error().Err(err).Int64("order_id", orderID).Msg("Auto-reject transition failed")
		return
	}
	if !moved {
		s.log.Debug().Int64("order_id", orderID).Msg("Auto-reject skipped, order already left pending")
		return
	}

	metrics.AutoRejects.Inc()
	s.log.Info().Int64("order_id", orderID).Msg("Order auto-rejected after response window expiry")
	s.bus.Publish(events.NewEvent(events.Event{
		Type:          events.TypeOrderStatusChanged,
		OrderID:       orderID,
		RestaurantUID: order.RestaurantUID,
		CustomerUID:   order.CustomerUID,
		Status:        models.StatusRejected,
		Reason:        reason,
		AutoRejected:  true,
		RefundDue:     true,
		TotalAmount:   order.TotalAmount,
	}))
}

// SetRestaurantOnline flips the restaurant's online flag. Coming online
// releases its held orders to pending, each with a fresh response window.
func (s *orderService) SetRestaurantOnline(restaurantUID string, online bool) ([]int64, error) {
	if _, err := s.restaurantRepo.GetByUID(restaurantUID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("failed to fetch restaurant: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.restaurantRepo.SetOnline(tx, restaurantUID, online); err != nil {
		return nil, fmt.Errorf("failed to set online flag: %w", err)
	}

	var released []int64
	if online {
		deadline := time.Now().Add(s.windows.Window())
		released, err = s.orderRepo.ReleaseAwaitingOnline(tx, restaurantUID, deadline)
		if err != nil {
			return nil, fmt.Errorf("failed to release held orders: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit online toggle: %w", err)
	}

	for _, orderID := range released {
		s.windows.Schedule(orderID, s.AutoReject)
		order, err := s.orderRepo.GetOrderByID(orderID)
		if err != nil {
			s.log.Error().Err(err).Int64("order_id", orderID).Msg("Released order fetch failed")
			continue
		}
		s.bus.Publish(events.NewEvent(events.Event{
			Type:          events.TypePaymentConfirmed,
			OrderID:       orderID,
			RestaurantUID: order.RestaurantUID,
			CustomerUID:   order.CustomerUID,
			Status:        models.StatusPending,
			TotalAmount:   order.TotalAmount,
		}))
	}
	return released, nil
}

func (s *orderService) ownedOrder(orderID int64, restaurantUID string) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	if order.RestaurantUID != restaurantUID {
		return nil, ErrNotOwner
	}
	return order, nil
}
