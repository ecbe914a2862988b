// Package booking implements the court reservation and billing engine:
// time-of-day pricing, double-booking detection, the reservation payment
// lifecycle, batch amendment, and document numbering. All state lives in
// an injected Store; every mutating operation validates the full result
// before committing anything.
package booking

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// PaymentStatus is the lifecycle state of a reservation. Unpaid, Partial
// and Paid are the open financial states; Cancelled and Refunded are
// terminal and never obstruct new bookings.
type PaymentStatus string

const (
	StatusPaid      PaymentStatus = "Paid"
	StatusUnpaid    PaymentStatus = "Unpaid"
	StatusPartial   PaymentStatus = "Partial"
	StatusCancelled PaymentStatus = "Cancelled"
	StatusRefunded  PaymentStatus = "Refunded"
)

// Terminal reports whether the status is an end state.
func (s PaymentStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// Refundable reports whether a reservation in this status may be refunded.
func (s PaymentStatus) Refundable() bool {
	return s == StatusPaid || s == StatusPartial
}

// Open reports whether the status is a valid state for a new reservation.
func (s PaymentStatus) Open() bool {
	return s == StatusUnpaid || s == StatusPartial || s == StatusPaid
}

// Court is a bookable resource. Purely a label; courts are only
// time-partitioned through the reservations that reference them.
type Court struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PromotionRule overrides the base hourly rate inside a [StartTime, EndTime)
// window on the 24-hour clock. Rules may be toggled inactive without being
// deleted. When active rules overlap, the first match in list order wins.
type PromotionRule struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Rate      float64 `json:"rate"`
	IsActive  bool    `json:"isActive"`
}

// Reservation is one customer's claim on a court for a date and time
// interval, carrying its own price and payment state. Customers are
// denormalized onto each reservation; there is no separate customer record.
type Reservation struct {
	ID      string `json:"id"`
	BatchID string `json:"batchId,omitempty"`

	CustomerName   string `json:"customerName"`
	PhoneNumber    string `json:"phoneNumber"`
	ResidentUnitNo string `json:"residentUnitNo,omitempty"`

	Date      string  `json:"date"` // YYYY-MM-DD
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
	CourtID   string  `json:"courtId"`

	Status PaymentStatus `json:"paymentStatus"`
	Notes  string        `json:"notes,omitempty"`

	CreatedAt    time.Time  `json:"createdAt"`
	PaymentDate  *time.Time `json:"paymentDate,omitempty"`
	IsReconciled bool       `json:"isReconciled,omitempty"`

	HourlyRate  float64 `json:"hourlyRate,omitempty"` // rate in effect when priced, kept for audit
	TotalAmount float64 `json:"totalAmount"`
	PaidAmount  float64 `json:"paidAmount,omitempty"` // meaningful only while Status is Partial

	ReceiptNumber string `json:"receiptNumber,omitempty"`
	VoucherNumber string `json:"voucherNumber,omitempty"`
}

// EndTime returns the exclusive end of the reservation interval in hours.
func (r Reservation) EndTime() float64 {
	return r.StartTime + r.Duration
}

// Slot describes occupancy independent of date: a court, a start hour and
// a duration, all on the half-hour grid.
type Slot struct {
	CourtID   string  `json:"courtId"`
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
}

// DocumentSettings holds the prefix and next-sequence counter for receipts
// and payment vouchers. The counters are independent.
type DocumentSettings struct {
	ReceiptPrefix     string `json:"receiptPrefix"`
	ReceiptNextNumber int64  `json:"receiptNextNumber"`
	VoucherPrefix     string `json:"voucherPrefix"`
	VoucherNextNumber int64  `json:"voucherNextNumber"`
}

// Settings is the venue-wide configuration blob: profile, currency, the
// base hourly rate and document numbering state.
type Settings struct {
	VenueName    string           `json:"venueName"`
	VenueAddress string           `json:"venueAddress"`
	VenuePhone   string           `json:"venuePhone"`
	CurrencyCode string           `json:"currencyCode"`
	HourlyRate   float64          `json:"hourlyRate"`
	Documents    DocumentSettings `json:"documentSettings"`
}

// Capability names an operator permission consulted before each mutating
// engine operation.
type Capability string

const (
	CapManageBookings    Capability = "manage_bookings"
	CapViewReports       Capability = "view_reports"
	CapManagePayments    Capability = "manage_payments"
	CapBatchTools        Capability = "batch_tools"
	CapManageSettings    Capability = "manage_settings"
	CapSystemMaintenance Capability = "system_maintenance"
)

var (
	// ErrNotFound is returned when an operation names a reservation id
	// that does not exist. Callers should treat this as a defect, not a
	// user-recoverable condition.
	ErrNotFound = errors.New("reservation not found")

	// ErrPermissionDenied is returned when the injected authorize
	// collaborator rejects the capability an operation requires.
	ErrPermissionDenied = errors.New("permission denied")
)

// ConflictError reports that a proposed interval overlaps an existing open
// reservation on the same court and date. The offending reservation is
// carried so the caller can show who holds the slot.
type ConflictError struct {
	Conflict Reservation
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot conflict on %s at %s (court %s) held by %s",
		e.Conflict.Date, FormatHour(e.Conflict.StartTime), e.Conflict.CourtID, e.Conflict.CustomerName)
}

// TransitionError reports an invalid lifecycle transition or an input that
// cannot be applied, such as refunding an unpaid reservation or a
// pick-dates count mismatch.
type TransitionError struct {
	Reason string
}

func (e *TransitionError) Error() string { return e.Reason }

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

const dateLayout = "2006-01-02"

// ValidDate reports whether s is a YYYY-MM-DD calendar day.
func ValidDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// ShiftDate moves a YYYY-MM-DD date by the given number of calendar days.
func ShiftDate(date string, days int) (string, error) {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return d.AddDate(0, 0, days).Format(dateLayout), nil
}

// OnHalfHour reports whether v sits on the half-hour grid.
func OnHalfHour(v float64) bool {
	doubled := v * 2
	return doubled == math.Trunc(doubled)
}

// FormatHour renders an hour value such as 10.5 as "10:30".
func FormatHour(v float64) string {
	display := math.Mod(v, 24)
	hour := int(display)
	minutes := "00"
	if display-math.Trunc(display) == 0.5 {
		minutes = "30"
	}
	return fmt.Sprintf("%02d:%s", hour, minutes)
}

func validateSlot(s Slot) error {
	switch {
	case s.CourtID == "":
		return &ValidationError{Field: "courtId", Reason: "is required"}
	case !OnHalfHour(s.StartTime) || s.StartTime < 0 || s.StartTime >= 24:
		return &ValidationError{Field: "startTime", Reason: "must be on the half-hour grid within [0, 24)"}
	case !OnHalfHour(s.Duration) || s.Duration <= 0:
		return &ValidationError{Field: "duration", Reason: "must be a positive multiple of 0.5"}
	case s.StartTime+s.Duration > 24:
		return &ValidationError{Field: "duration", Reason: "must not extend past midnight"}
	}
	return nil
}
