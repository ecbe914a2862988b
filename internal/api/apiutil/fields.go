package apiutil

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// DateFromQuery reads an optional YYYY-MM-DD query parameter. Empty is
// allowed and returned as "".
func DateFromQuery(r *http.Request, key string) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return "", nil
	}
	if len(raw) != 10 || raw[4] != '-' || raw[7] != '-' {
		return "", fmt.Errorf("%s must be a YYYY-MM-DD date", key)
	}
	return raw, nil
}

// RequiredDateFromQuery reads a mandatory YYYY-MM-DD query parameter.
func RequiredDateFromQuery(r *http.Request, key string) (string, error) {
	raw, err := DateFromQuery(r, key)
	if err != nil {
		return "", err
	}
	if raw == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return raw, nil
}

// HoursFromQuery reads a decimal hours parameter such as "1.5", defaulting
// when absent.
func HoursFromQuery(r *http.Request, key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive number of hours", key)
	}
	return value, nil
}

// FormatAmount renders a money amount with the venue currency code.
func FormatAmount(amount float64, currency string) string {
	return fmt.Sprintf("%.2f %s", amount, currency)
}
