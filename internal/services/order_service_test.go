package services

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swaad_backend/internal/events"
	"swaad_backend/internal/models"
	"swaad_backend/internal/repositories"
	"swaad_backend/internal/scheduler"
	"swaad_backend/internal/statemachine"
)

// fakeOrderRepo holds one order in memory. staleStatus, when set, is served on
// the next GetOrderByID only, so tests can replay a read that went stale
// before the write.
type fakeOrderRepo struct {
	mu          sync.Mutex
	order       models.Order
	staleStatus *models.OrderStatus
}

func (f *fakeOrderRepo) GetOrderByID(orderID int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.order
	if f.staleStatus != nil {
		o.Status = *f.staleStatus
		f.staleStatus = nil
	}
	return &o, nil
}

func (f *fakeOrderRepo) UpdateStatusFrom(_ repositories.SQLExecutor, orderID int64, from, to models.OrderStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.order.Status != from {
		return false, nil
	}
	f.order.Status = to
	return true, nil
}

func (f *fakeOrderRepo) TransitionFromPending(_ repositories.SQLExecutor, orderID int64, to models.OrderStatus, reason *string, autoRejected bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.order.Status != models.StatusPending {
		return false, nil
	}
	f.order.Status = to
	f.order.RejectionReason = reason
	f.order.AutoRejected = autoRejected
	return true, nil
}

func (f *fakeOrderRepo) CreateOrder(repositories.SQLExecutor, *models.Order) (int64, error) {
	return 0, nil
}

func (f *fakeOrderRepo) CreateOrderItem(repositories.SQLExecutor, *models.OrderItem) (int64, error) {
	return 0, nil
}

func (f *fakeOrderRepo) GetOrderByIDForUpdate(tx *sql.Tx, orderID int64) (*models.Order, error) {
	return nil, repositories.ErrNotFound
}

func (f *fakeOrderRepo) GetOrderByGatewayOrderID(gatewayOrderID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.order.GatewayOrderID != nil && *f.order.GatewayOrderID == gatewayOrderID {
		o := f.order
		return &o, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeOrderRepo) GetOrderItemsByOrderID(int64) ([]models.OrderItem, error) { return nil, nil }

func (f *fakeOrderRepo) GetOrders(models.OrderFilters) ([]models.Order, int, error) {
	return nil, 0, nil
}

func (f *fakeOrderRepo) SetPaymentSession(repositories.SQLExecutor, int64, string, string) error {
	return nil
}

func (f *fakeOrderRepo) SetPaymentOutcome(_ repositories.SQLExecutor, _ int64, paymentStatus models.PaymentStatus, status models.OrderStatus, deadline *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order.PaymentStatus = paymentStatus
	f.order.Status = status
	f.order.ResponseDeadline = deadline
	return nil
}

func (f *fakeOrderRepo) ReleaseAwaitingOnline(repositories.SQLExecutor, string, time.Time) ([]int64, error) {
	return nil, nil
}

func (f *fakeOrderRepo) ListPendingPastDeadline(time.Time) ([]int64, error) { return nil, nil }

func (f *fakeOrderRepo) status() models.OrderStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.order.Status
}

func newStatusTestService(repo *fakeOrderRepo) OrderService {
	return NewOrderService(nil, repo, nil, nil, nil, nil,
		events.NewBus(8), scheduler.NewResponseWindow(time.Hour))
}

func TestUpdateOrderStatusStaleReadCannotOverwriteTerminalState(t *testing.T) {
	// A cancel whose pre-check read raced with a delivery: the order was
	// on_the_way when read but delivered by write time. The compare-and-set
	// must refuse instead of overwriting the terminal state.
	stale := models.StatusOnTheWay
	repo := &fakeOrderRepo{
		order:       models.Order{ID: 1, RestaurantUID: "rest-1", CustomerUID: "cust-1", Status: models.StatusDelivered},
		staleStatus: &stale,
	}
	svc := newStatusTestService(repo)

	_, err := svc.UpdateOrderStatus(1, models.StatusCancelled, statemachine.ActorAdmin)
	require.Error(t, err)
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)
	assert.Equal(t, models.StatusDelivered, repo.status())
}

func TestUpdateOrderStatusProgresses(t *testing.T) {
	repo := &fakeOrderRepo{
		order: models.Order{ID: 2, RestaurantUID: "rest-1", CustomerUID: "cust-1", Status: models.StatusOnTheWay},
	}
	svc := newStatusTestService(repo)

	order, err := svc.UpdateOrderStatus(2, models.StatusDelivered, statemachine.ActorRestaurant)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, order.Status)
}
