package booking

import "context"

// Store persists each top-level collection as an independent blob. The
// engine tolerates any collection loading as its empty or default value on
// first run and never assumes referential integrity between collections: a
// reservation referencing a deleted court is kept and simply rendered as an
// unresolved label upstream.
//
// There is a single logical writer; implementations do not need
// transactions across collections.
type Store interface {
	LoadReservations(ctx context.Context) ([]Reservation, error)
	SaveReservations(ctx context.Context, reservations []Reservation) error

	LoadCourts(ctx context.Context) ([]Court, error)
	SaveCourts(ctx context.Context, courts []Court) error

	LoadPromotionRules(ctx context.Context) ([]PromotionRule, error)
	SavePromotionRules(ctx context.Context, rules []PromotionRule) error

	LoadSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, settings Settings) error
}

// DefaultSettings returns the configuration used before an operator has
// saved anything: base rate 20/hour, OR- receipts from 1001 and PV-
// vouchers from 5001.
func DefaultSettings() Settings {
	return Settings{
		VenueName:    "Your Sports Centre",
		VenueAddress: "123 Sports Complex Blvd",
		VenuePhone:   "+1 (555) 123-4567",
		CurrencyCode: "USD",
		HourlyRate:   20,
		Documents: DocumentSettings{
			ReceiptPrefix:     "OR-",
			ReceiptNextNumber: 1001,
			VoucherPrefix:     "PV-",
			VoucherNextNumber: 5001,
		},
	}
}

// DefaultCourts returns the initial four-court layout.
func DefaultCourts() []Court {
	return []Court{
		{ID: "Court 1", Name: "Court 1"},
		{ID: "Court 2", Name: "Court 2"},
		{ID: "Court 3", Name: "Court 3"},
		{ID: "Court 4", Name: "Court 4"},
	}
}
