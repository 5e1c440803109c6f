package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"swaad_backend/internal/models"

	"github.com/lib/pq" // For pq.Error
)

// OrderRepository defines the interface for order-related database operations.
// Mutating methods take a SQLExecutor so the calling service controls the
// transaction; conditional updates report whether a row actually moved, which
// is how the state machine's compare-and-set guards are enforced.
type OrderRepository interface {
	CreateOrder(executor SQLExecutor, order *models.Order) (int64, error)
	CreateOrderItem(executor SQLExecutor, item *models.OrderItem) (int64, error)
	GetOrderByID(orderID int64) (*models.Order, error)
	GetOrderByIDForUpdate(tx *sql.Tx, orderID int64) (*models.Order, error)
	GetOrderByGatewayOrderID(gatewayOrderID string) (*models.Order, error)
	GetOrderItemsByOrderID(orderID int64) ([]models.OrderItem, error)
	GetOrders(filters models.OrderFilters) ([]models.Order, int, error)

	SetPaymentSession(executor SQLExecutor, orderID int64, sessionID, gatewayOrderID string) error
	SetPaymentOutcome(executor SQLExecutor, orderID int64, paymentStatus models.PaymentStatus, status models.OrderStatus, deadline *time.Time) error
	UpdateStatusFrom(executor SQLExecutor, orderID int64, from, to models.OrderStatus) (bool, error)
	TransitionFromPending(executor SQLExecutor, orderID int64, to models.OrderStatus, reason *string, autoRejected bool) (bool, error)
	ReleaseAwaitingOnline(executor SQLExecutor, restaurantUID string, deadline time.Time) ([]int64, error)
	ListPendingPastDeadline(now time.Time) ([]int64, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, restaurant_uid, customer_uid, customer_name, customer_phone,
	       delivery_address, latitude, longitude, location_accuracy, payment_method, notes,
	       subtotal, delivery_fee, packing_fee, gst_amount, platform_fee, total_amount,
	       status, payment_status, payment_session_id, gateway_order_id,
	       response_deadline, rejection_reason, auto_rejected, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID, &order.RestaurantUID, &order.CustomerUID, &order.CustomerName, &order.CustomerPhone,
		&order.DeliveryAddress, &order.Latitude, &order.Longitude, &order.LocationAccuracy, &order.PaymentMethod, &order.Notes,
		&order.Subtotal, &order.DeliveryFee, &order.PackingFee, &order.GSTAmount, &order.PlatformFee, &order.TotalAmount,
		&order.Status, &order.PaymentStatus, &order.PaymentSessionID, &order.GatewayOrderID,
		&order.ResponseDeadline, &order.RejectionReason, &order.AutoRejected, &order.CreatedAt, &order.UpdatedAt,
	)
	return order, err
}

func (r *orderRepository) CreateOrder(executor SQLExecutor, order *models.Order) (int64, error) {
	query := `INSERT INTO orders
	            (restaurant_uid, customer_uid, customer_name, customer_phone,
	             delivery_address, latitude, longitude, location_accuracy, payment_method, notes,
	             subtotal, delivery_fee, packing_fee, gst_amount, platform_fee, total_amount,
	             status, payment_status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	          RETURNING id`

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = time.Now()
	}

	err := executor.QueryRow(query,
		order.RestaurantUID, order.CustomerUID, order.CustomerName, order.CustomerPhone,
		order.DeliveryAddress, order.Latitude, order.Longitude, order.LocationAccuracy, order.PaymentMethod, order.Notes,
		order.Subtotal, order.DeliveryFee, order.PackingFee, order.GSTAmount, order.PlatformFee, order.TotalAmount,
		order.Status, order.PaymentStatus, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)

	if err != nil {
		return 0, fmt.Errorf("%w: creating order: %v", ErrDatabaseError, err)
	}
	return order.ID, nil
}

func (r *orderRepository) CreateOrderItem(executor SQLExecutor, item *models.OrderItem) (int64, error) {
	query := `INSERT INTO order_items
	            (order_id, menu_item_id, item_name, quantity, unit_price, total_price)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`

	err := executor.QueryRow(query,
		item.OrderID, item.MenuItemID, item.ItemName, item.Quantity, item.UnitPrice, item.TotalPrice,
	).Scan(&item.ID)

	if err != nil {
		var pqErr *pq.Error
		// 23503: the referenced menu item vanished between validation and insert.
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return 0, fmt.Errorf("%w: menu item %d (constraint: %s)", ErrNotFound, item.MenuItemID, pqErr.Constraint)
		}
		return 0, fmt.Errorf("%w: creating order item: %v", ErrDatabaseError, err)
	}
	return item.ID, nil
}

func (r *orderRepository) GetOrderByID(orderID int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(r.db.QueryRow(query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting order by ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return order, nil
}

// GetOrderByIDForUpdate reads the order inside the given transaction holding a
// row lock, so concurrent reconciliation attempts for the same order serialize.
func (r *orderRepository) GetOrderByIDForUpdate(tx *sql.Tx, orderID int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	order, err := scanOrder(tx.QueryRow(query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return order, nil
}

func (r *orderRepository) GetOrderByGatewayOrderID(gatewayOrderID string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE gateway_order_id = $1`
	order, err := scanOrder(r.db.QueryRow(query, gatewayOrderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting order by gateway order ID %s: %v", ErrDatabaseError, gatewayOrderID, err)
	}
	return order, nil
}

func (r *orderRepository) GetOrderItemsByOrderID(orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	query := `SELECT id, order_id, menu_item_id, item_name, quantity, unit_price, total_price
	          FROM order_items WHERE order_id = $1 ORDER BY id`

	rows, err := r.db.Query(query, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying order items for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.ItemName, &item.Quantity, &item.UnitPrice, &item.TotalPrice)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning order item for order ID %d: %v", ErrDatabaseError, orderID, err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating order item rows for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return items, nil
}

func (r *orderRepository) GetOrders(filters models.OrderFilters) ([]models.Order, int, error) {
	orders := []models.Order{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + orderColumns + `, COUNT(*) OVER() as total_count FROM orders`)

	var conditions []string
	var args []interface{}
	argCounter := 1

	if filters.RestaurantUID != nil {
		conditions = append(conditions, fmt.Sprintf("restaurant_uid = $%d", argCounter))
		args = append(args, *filters.RestaurantUID)
		argCounter++
	}
	if filters.CustomerUID != nil {
		conditions = append(conditions, fmt.Sprintf("customer_uid = $%d", argCounter))
		args = append(args, *filters.CustomerUID)
		argCounter++
	}
	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCounter))
		args = append(args, *filters.Status)
		argCounter++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY created_at DESC")

	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCounter))
		args = append(args, filters.PageSize)
		argCounter++
		if filters.Page > 0 {
			offset := (filters.Page - 1) * filters.PageSize
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCounter))
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying orders: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.Order
		err := rows.Scan(
			&o.ID, &o.RestaurantUID, &o.CustomerUID, &o.CustomerName, &o.CustomerPhone,
			&o.DeliveryAddress, &o.Latitude, &o.Longitude, &o.LocationAccuracy, &o.PaymentMethod, &o.Notes,
			&o.Subtotal, &o.DeliveryFee, &o.PackingFee, &o.GSTAmount, &o.PlatformFee, &o.TotalAmount,
			&o.Status, &o.PaymentStatus, &o.PaymentSessionID, &o.GatewayOrderID,
			&o.ResponseDeadline, &o.RejectionReason, &o.AutoRejected, &o.CreatedAt, &o.UpdatedAt,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning order: %v", ErrDatabaseError, err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating order rows: %v", ErrDatabaseError, err)
	}
	return orders, totalCount, nil
}

func (r *orderRepository) SetPaymentSession(executor SQLExecutor, orderID int64, sessionID, gatewayOrderID string) error {
	query := `UPDATE orders SET payment_session_id = $1, gateway_order_id = $2, updated_at = $3 WHERE id = $4`
	result, err := executor.Exec(query, sessionID, gatewayOrderID, time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("%w: setting payment session for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return checkOneRow(result, orderID, "payment session update")
}

func (r *orderRepository) SetPaymentOutcome(executor SQLExecutor, orderID int64, paymentStatus models.PaymentStatus, status models.OrderStatus, deadline *time.Time) error {
	query := `UPDATE orders SET payment_status = $1, status = $2, response_deadline = $3, updated_at = $4 WHERE id = $5`
	result, err := executor.Exec(query, paymentStatus, status, deadline, time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("%w: setting payment outcome for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return checkOneRow(result, orderID, "payment outcome update")
}

// UpdateStatusFrom moves the order from one status to another with a
// compare-and-set: the WHERE clause re-checks the current status so a racing
// transition that committed after the caller's read cannot be overwritten.
// Returns false (no error) when the guard lost the race.
func (r *orderRepository) UpdateStatusFrom(executor SQLExecutor, orderID int64, from, to models.OrderStatus) (bool, error) {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := executor.Exec(query, to, time.Now(), orderID, from)
	if err != nil {
		return false, fmt.Errorf("%w: updating status for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return rowsAffected == 1, nil
}

// TransitionFromPending moves an order out of pending with a compare-and-set:
// the WHERE clause re-checks status = 'pending' so only one of {accept, reject,
// auto-reject} can win. Returns false (no error) when the guard lost the race.
func (r *orderRepository) TransitionFromPending(executor SQLExecutor, orderID int64, to models.OrderStatus, reason *string, autoRejected bool) (bool, error) {
	query := `UPDATE orders
	          SET status = $1, rejection_reason = $2, auto_rejected = $3, updated_at = $4
	          WHERE id = $5 AND status = $6`
	result, err := executor.Exec(query, to, reason, autoRejected, time.Now(), orderID, models.StatusPending)
	if err != nil {
		return false, fmt.Errorf("%w: transitioning order ID %d out of pending: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return rowsAffected == 1, nil
}

// ReleaseAwaitingOnline flips all of a restaurant's pending_restaurant_online
// orders to pending with a fresh response deadline, returning the order ids.
func (r *orderRepository) ReleaseAwaitingOnline(executor SQLExecutor, restaurantUID string, deadline time.Time) ([]int64, error) {
	query := `UPDATE orders
	          SET status = $1, response_deadline = $2, updated_at = $3
	          WHERE restaurant_uid = $4 AND status = $5
	          RETURNING id`
	rows, err := executor.Query(query, models.StatusPending, deadline, time.Now(), restaurantUID, models.StatusPendingRestaurantOnline)
	if err != nil {
		return nil, fmt.Errorf("%w: releasing awaiting-online orders for restaurant %s: %v", ErrDatabaseError, restaurantUID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning released order id: %v", ErrDatabaseError, err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating released order ids: %v", ErrDatabaseError, err)
	}
	return ids, nil
}

// ListPendingPastDeadline finds pending orders whose response window already
// expired; used by the startup/periodic sweep that recovers lost timers.
func (r *orderRepository) ListPendingPastDeadline(now time.Time) ([]int64, error) {
	query := `SELECT id FROM orders
	          WHERE status = $1 AND response_deadline IS NOT NULL AND response_deadline <= $2`
	rows, err := r.db.Query(query, models.StatusPending, now)
	if err != nil {
		return nil, fmt.Errorf("%w: querying pending orders past deadline: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning overdue order id: %v", ErrDatabaseError, err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating overdue order ids: %v", ErrDatabaseError, err)
	}
	return ids, nil
}

func checkOneRow(result sql.Result, orderID int64, op string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for %s, order ID %d: %v", ErrDatabaseError, op, orderID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
