package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"swaad_backend/internal/models"
)

// RestaurantRepository covers what the order core reads from restaurants
// (online flag, notification preference, device tokens) plus the online
// toggle and login lookup. The online/notification state is read-only for
// reconciliation; only the toggle endpoint writes it.
type RestaurantRepository interface {
	GetByUID(uid string) (*models.Restaurant, error)
	GetByEmail(email string) (*models.Restaurant, error)
	SetOnline(executor SQLExecutor, uid string, online bool) error
	ListDeviceTokens(restaurantUID string) ([]string, error)
	DeleteDeviceToken(token string) error
}

type restaurantRepository struct {
	db *sql.DB
}

// NewRestaurantRepository creates a new instance of RestaurantRepository.
func NewRestaurantRepository(db *sql.DB) RestaurantRepository {
	return &restaurantRepository{db: db}
}

const restaurantColumns = `uid, name, email, password_hash, online, notifications_enabled, created_at, updated_at`

func (r *restaurantRepository) scanRestaurant(row *sql.Row) (*models.Restaurant, error) {
	rest := &models.Restaurant{}
	err := row.Scan(
		&rest.UID, &rest.Name, &rest.Email, &rest.PasswordHash,
		&rest.Online, &rest.NotificationsEnabled, &rest.CreatedAt, &rest.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning restaurant: %v", ErrDatabaseError, err)
	}
	return rest, nil
}

func (r *restaurantRepository) GetByUID(uid string) (*models.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE uid = $1`
	return r.scanRestaurant(r.db.QueryRow(query, uid))
}

func (r *restaurantRepository) GetByEmail(email string) (*models.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE email = $1`
	return r.scanRestaurant(r.db.QueryRow(query, email))
}

func (r *restaurantRepository) SetOnline(executor SQLExecutor, uid string, online bool) error {
	query := `UPDATE restaurants SET online = $1, updated_at = $2 WHERE uid = $3`
	result, err := executor.Exec(query, online, time.Now(), uid)
	if err != nil {
		return fmt.Errorf("%w: setting online flag for restaurant %s: %v", ErrDatabaseError, uid, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected for restaurant %s online flag: %v", ErrDatabaseError, uid, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *restaurantRepository) ListDeviceTokens(restaurantUID string) ([]string, error) {
	query := `SELECT token FROM device_tokens WHERE restaurant_uid = $1 ORDER BY id`
	rows, err := r.db.Query(query, restaurantUID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying device tokens for restaurant %s: %v", ErrDatabaseError, restaurantUID, err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("%w: scanning device token: %v", ErrDatabaseError, err)
		}
		tokens = append(tokens, token)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating device tokens: %v", ErrDatabaseError, err)
	}
	return tokens, nil
}

func (r *restaurantRepository) DeleteDeviceToken(token string) error {
	query := `DELETE FROM device_tokens WHERE token = $1`
	if _, err := r.db.Exec(query, token); err != nil {
		return fmt.Errorf("%w: deleting device token: %v", ErrDatabaseError, err)
	}
	return nil
}
