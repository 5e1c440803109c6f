package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"swaad_backend/internal/models"
)

// MenuRepository exposes the read paths the order core needs from the menu.
// Menu CRUD itself is owned by another service.
type MenuRepository interface {
	// GetItemForOrder returns the current menu row for a pricing check.
	// The caller decides what available/deleted mean for its operation.
	GetItemForOrder(menuItemID int64, restaurantUID string) (*models.MenuItem, error)
}

type menuRepository struct {
	db *sql.DB
}

// NewMenuRepository creates a new instance of MenuRepository.
func NewMenuRepository(db *sql.DB) MenuRepository {
	return &menuRepository{db: db}
}

func (r *menuRepository) GetItemForOrder(menuItemID int64, restaurantUID string) (*models.MenuItem, error) {
	item := &models.MenuItem{}
	query := `SELECT id, restaurant_uid, category_id, name, price, available, deleted, created_at, updated_at
	          FROM menu_items
	          WHERE id = $1 AND restaurant_uid = $2`
	err := r.db.QueryRow(query, menuItemID, restaurantUID).Scan(
		&item.ID, &item.RestaurantUID, &item.CategoryID, &item.Name, &item.Price,
		&item.Available, &item.Deleted, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting menu item %d for restaurant %s: %v", ErrDatabaseError, menuItemID, restaurantUID, err)
	}
	return item, nil
}
