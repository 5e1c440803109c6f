package utils

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// APIError is the standardized error envelope returned by all handlers.
type APIError struct {
	StatusCode int    `json:"-"`              // HTTP status code, not serialized
	Code       string `json:"code,omitempty"` // Machine-readable error kind
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
}

// NewAPIError creates a new APIError instance.
func NewAPIError(statusCode int, code string, message string, details string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Details:    details,
	}
}

// RespondWithError sends a standardized JSON error response and aborts.
func RespondWithError(c *gin.Context, err *APIError) {
	c.JSON(err.StatusCode, gin.H{"error": err})
	c.Abort()
}

// Machine-readable error codes surfaced to API clients.
const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeInternalServerError = "INTERNAL_SERVER_ERROR"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodePriceMismatch       = "PRICE_MISMATCH"
	ErrCodeInvalidTransition   = "INVALID_TRANSITION"
	ErrCodePaymentGateway      = "PAYMENT_GATEWAY_ERROR"
	ErrCodeAmountMismatch      = "AMOUNT_MISMATCH"
	ErrCodeItemUnavailable     = "ITEM_UNAVAILABLE"
)

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}
