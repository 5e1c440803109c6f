package utils

import (
	"os"
	"strconv"
	"time"
)

// Getenv retrieves the value of the environment variable named by the key.
// If the variable is not present or its value is empty, Getenv returns the fallback string.
func Getenv(key, fallback string) string {
	value := os.Getenv(key)
	if len(value) == 0 {
		return fallback
	}
	return value
}

// GetenvFloat retrieves a float64 environment variable, falling back on
// absence or parse failure. Used for fee-policy amounts and thresholds.
func GetenvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if len(value) == 0 {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return f
}

// GetenvDuration retrieves a duration environment variable (e.g. "90s", "2m"),
// falling back on absence or parse failure.
func GetenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if len(value) == 0 {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
