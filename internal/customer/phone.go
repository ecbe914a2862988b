// Package customer holds the light customer-facing helpers. Customers are
// denormalized onto reservations, so this is normalization logic rather
// than a record store.
package customer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone canonicalizes a phone number to E.164 using the given
// default region for numbers entered without a country code. Input that
// does not parse as a valid number is returned trimmed as-is: walk-in
// bookings often carry partial or foreign numbers and must not be
// rejected over formatting.
func NormalizePhone(raw, defaultRegion string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	parsed, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return trimmed
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}

// SamePhone reports whether two raw phone inputs refer to the same number
// once normalized, used when grouping a customer's reservations for bulk
// settlement.
func SamePhone(a, b, defaultRegion string) bool {
	na := NormalizePhone(a, defaultRegion)
	nb := NormalizePhone(b, defaultRegion)
	return na != "" && na == nb
}
