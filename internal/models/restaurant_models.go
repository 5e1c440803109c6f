package models

import "time"

// Roles carried in access-token claims.
const (
	RoleRestaurant = "restaurant"
	RoleCustomer   = "customer"
	RoleAdmin      = "admin"
)

// Restaurant holds the fields the order core reads: identity, online flag and
// notification preference. Profile CRUD lives outside this service.
type Restaurant struct {
	UID                  string    `json:"uid" db:"uid"`
	Name                 string    `json:"name" db:"name"`
	Email                string    `json:"email" db:"email"`
	PasswordHash         string    `json:"-" db:"password_hash"`
	Online               bool      `json:"online" db:"online"`
	NotificationsEnabled bool      `json:"notifications_enabled" db:"notifications_enabled"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// DeviceToken is one push-notification registration for a restaurant device.
// Tokens reported invalid by the push endpoint are pruned by the notifier.
type DeviceToken struct {
	ID            int64     `json:"id" db:"id"`
	RestaurantUID string    `json:"restaurant_uid" db:"restaurant_uid"`
	Token         string    `json:"token" db:"token"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
