package services

import "errors"

// Service-level sentinel errors. Handlers map these onto API error codes; the
// reconciliation engine additionally maps them onto metric labels.
var (
	ErrValidation         = errors.New("validation failed")
	ErrPriceMismatch      = errors.New("submitted price does not match authoritative calculation")
	ErrItemUnavailable    = errors.New("menu item unavailable")
	ErrOrderNotFound      = errors.New("order not found")
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrNotOwner           = errors.New("order does not belong to the caller")
	ErrPaymentGateway     = errors.New("payment gateway failure")
	ErrAmountMismatch     = errors.New("paid amount does not match order total")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
