// Package reports derives the front-desk reports from the reservation
// collection. All functions are pure over their inputs.
package reports

import (
	"sort"

	"github.com/neotechkk/smashpoint/internal/booking"
	"github.com/neotechkk/smashpoint/internal/customer"
)

// DailySummary aggregates one calendar day of bookings.
type DailySummary struct {
	Date              string  `json:"date"`
	Bookings          int     `json:"bookings"`
	Paid              int     `json:"paid"`
	Partial           int     `json:"partial"`
	Unpaid            int     `json:"unpaid"`
	Cancelled         int     `json:"cancelled"`
	Refunded          int     `json:"refunded"`
	BilledAmount      float64 `json:"billedAmount"` // total of open bookings
	PaidAmount        float64 `json:"paidAmount"`   // collected so far
	OutstandingAmount float64 `json:"outstandingAmount"`
}

// Summarize builds the daily summary for the given date.
func Summarize(reservations []booking.Reservation, date string) DailySummary {
	s := DailySummary{Date: date}
	for _, r := range reservations {
		if r.Date != date {
			continue
		}
		s.Bookings++
		switch r.Status {
		case booking.StatusPaid:
			s.Paid++
			s.BilledAmount += r.TotalAmount
			s.PaidAmount += r.TotalAmount
		case booking.StatusPartial:
			s.Partial++
			s.BilledAmount += r.TotalAmount
			s.PaidAmount += r.PaidAmount
		case booking.StatusUnpaid:
			s.Unpaid++
			s.BilledAmount += r.TotalAmount
		case booking.StatusCancelled:
			s.Cancelled++
		case booking.StatusRefunded:
			s.Refunded++
		}
	}
	s.OutstandingAmount = s.BilledAmount - s.PaidAmount
	return s
}

// CashCollection lists payments taken in a date range that have not yet
// been reconciled, for the end-of-day cash drawer count.
type CashCollection struct {
	From    string                `json:"from"`
	To      string                `json:"to"`
	Entries []booking.Reservation `json:"entries"`
	Total   float64               `json:"total"`
}

// CollectCash returns the unreconciled Paid and Partial reservations whose
// payment date falls within [from, to], ordered by payment time.
func CollectCash(reservations []booking.Reservation, from, to string) CashCollection {
	c := CashCollection{From: from, To: to}
	for _, r := range reservations {
		if r.IsReconciled || r.PaymentDate == nil {
			continue
		}
		day := r.PaymentDate.Format("2006-01-02")
		if day < from || day > to {
			continue
		}
		switch r.Status {
		case booking.StatusPaid:
			c.Entries = append(c.Entries, r)
			c.Total += r.TotalAmount
		case booking.StatusPartial:
			c.Entries = append(c.Entries, r)
			c.Total += r.PaidAmount
		}
	}
	sort.SliceStable(c.Entries, func(i, j int) bool {
		return c.Entries[i].PaymentDate.Before(*c.Entries[j].PaymentDate)
	})
	return c
}

// CustomerOutstanding lists one customer's open balance: every Unpaid or
// Partial reservation matched by phone number, ready for a BulkSettle of
// the whole selection.
type CustomerOutstanding struct {
	CustomerName      string                `json:"customerName"`
	PhoneNumber       string                `json:"phoneNumber"`
	Entries           []booking.Reservation `json:"entries"`
	BilledAmount      float64               `json:"billedAmount"`
	PaidAmount        float64               `json:"paidAmount"`
	OutstandingAmount float64               `json:"outstandingAmount"`
}

// OutstandingForCustomer gathers the Unpaid and Partial reservations whose
// phone number matches the given one, comparing normalized forms so the
// lookup works regardless of how the number was entered at booking time.
// Entries come back ordered by date then start time.
func OutstandingForCustomer(reservations []booking.Reservation, phone, region string) CustomerOutstanding {
	o := CustomerOutstanding{PhoneNumber: customer.NormalizePhone(phone, region)}
	for _, r := range reservations {
		if r.Status != booking.StatusUnpaid && r.Status != booking.StatusPartial {
			continue
		}
		if !customer.SamePhone(r.PhoneNumber, phone, region) {
			continue
		}
		if o.CustomerName == "" {
			o.CustomerName = r.CustomerName
		}
		o.Entries = append(o.Entries, r)
		o.BilledAmount += r.TotalAmount
		if r.Status == booking.StatusPartial {
			o.PaidAmount += r.PaidAmount
		}
	}
	o.OutstandingAmount = o.BilledAmount - o.PaidAmount
	sort.SliceStable(o.Entries, func(i, j int) bool {
		if o.Entries[i].Date != o.Entries[j].Date {
			return o.Entries[i].Date < o.Entries[j].Date
		}
		return o.Entries[i].StartTime < o.Entries[j].StartTime
	})
	return o
}

// RefundReport lists refunds issued in a booking-date range together with
// the voucher total.
type RefundReport struct {
	From    string                `json:"from"`
	To      string                `json:"to"`
	Entries []booking.Reservation `json:"entries"`
	Total   float64               `json:"total"`
}

// CollectRefunds returns every refunded reservation whose booking date
// falls within [from, to], ordered by date then voucher number.
func CollectRefunds(reservations []booking.Reservation, from, to string) RefundReport {
	r := RefundReport{From: from, To: to}
	for _, b := range reservations {
		if b.Status != booking.StatusRefunded {
			continue
		}
		if b.Date < from || b.Date > to {
			continue
		}
		r.Entries = append(r.Entries, b)
		r.Total += b.TotalAmount
	}
	sort.SliceStable(r.Entries, func(i, j int) bool {
		if r.Entries[i].Date != r.Entries[j].Date {
			return r.Entries[i].Date < r.Entries[j].Date
		}
		return r.Entries[i].VoucherNumber < r.Entries[j].VoucherNumber
	})
	return r
}
