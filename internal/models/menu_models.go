package models

import "time"

// MenuItem is the authoritative menu row a pricing check reads from.
// Soft-deleted rows keep their data but are never orderable.
type MenuItem struct {
	ID            int64     `json:"id" db:"id"`
	RestaurantUID string    `json:"restaurant_uid" db:"restaurant_uid"`
	CategoryID    *int64    `json:"category_id,omitempty" db:"category_id"`
	Name          string    `json:"name" db:"name"`
	Price         float64   `json:"price" db:"price"`
	Available     bool      `json:"available" db:"available"`
	Deleted       bool      `json:"-" db:"deleted"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
