package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AuthorizeFunc is the capability predicate injected by the caller. The
// engine consults it at the start of every mutating entry point and never
// performs authentication itself.
type AuthorizeFunc func(ctx context.Context, capability Capability) bool

// Engine is the booking lifecycle manager. It owns no state of its own:
// every operation loads from the injected Store, validates the complete
// outcome, and only then commits. A failed operation leaves the stored
// reservation collection untouched.
type Engine struct {
	store     Store
	authorize AuthorizeFunc
	numbers   *NumberingService
	now       func() time.Time
	newID     func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source, used by tests for deterministic
// payment timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides reservation/batch id generation.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// New returns an Engine bound to the given store and capability predicate.
func New(store Store, authorize AuthorizeFunc, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("booking engine requires a store")
	}
	if authorize == nil {
		return nil, errors.New("booking engine requires an authorize predicate")
	}
	e := &Engine{
		store:     store,
		authorize: authorize,
		numbers:   NewNumberingService(store),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Numbering exposes the engine's document numbering service.
func (e *Engine) Numbering() *NumberingService { return e.numbers }

// CreateRequest describes a booking submission. Dates and Slots expand as a
// Cartesian product into one candidate reservation per (date, slot) pair,
// supporting recurring multi-date bookings and multi-court single-date
// bookings in one submission.
type CreateRequest struct {
	CustomerName   string        `json:"customerName"`
	PhoneNumber    string        `json:"phoneNumber"`
	ResidentUnitNo string        `json:"residentUnitNo,omitempty"`
	Dates          []string      `json:"dates"`
	Slots          []Slot        `json:"slots"`
	Status         PaymentStatus `json:"paymentStatus"`
	PaidAmount     float64       `json:"paidAmount,omitempty"` // total across the batch when Status is Partial
	Notes          string        `json:"notes,omitempty"`
}

// CreateReservation expands, prices and validates the request, then commits
// all candidates atomically. Every candidate is checked against existing
// open reservations and against the candidates accepted before it; on the
// first conflict the whole operation fails with a ConflictError and nothing
// is written.
//
// Paid and Partial submissions share one freshly issued receipt number and
// one payment timestamp across the batch. Partial amounts are spread
// greedily in generation order (see AllocatePartialPayment).
func (e *Engine) CreateReservation(ctx context.Context, req CreateRequest) ([]Reservation, error) {
	return e.saveReservations(ctx, req, "")
}

// EditReservation re-submits an existing reservation. With exactly one date
// and one slot the reservation is updated in place, keeping its id, batch
// id and creation time; otherwise the submission becomes a fresh batch that
// inherits the edited reservation's batch id, matching how multi-slot edits
// have always behaved.
func (e *Engine) EditReservation(ctx context.Context, id string, req CreateRequest) ([]Reservation, error) {
	if id == "" {
		return nil, &ValidationError{Field: "id", Reason: "is required"}
	}
	return e.saveReservations(ctx, req, id)
}

func (e *Engine) saveReservations(ctx context.Context, req CreateRequest, editID string) ([]Reservation, error) {
	if !e.authorize(ctx, CapManageBookings) {
		return nil, ErrPermissionDenied
	}
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	logger := log.Ctx(ctx).With().Str("component", "booking_engine").Logger()

	reservations, err := e.store.LoadReservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	settings, err := e.store.LoadSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	rules, err := e.store.LoadPromotionRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load promotion rules: %w", err)
	}

	var editing *Reservation
	if editID != "" {
		editing = findReservation(reservations, editID)
		if editing == nil {
			return nil, ErrNotFound
		}
	}
	editInPlace := editing != nil && len(req.Dates) == 1 && len(req.Slots) == 1

	now := e.now()
	batchID := "BID-" + e.newID()
	if editing != nil {
		batchID = editing.BatchID
	}

	// Price every candidate first so partial amounts can be spread across
	// the whole batch in generation order.
	type candidateSlot struct {
		date string
		slot Slot
	}
	var expanded []candidateSlot
	costs := make([]float64, 0, len(req.Dates)*len(req.Slots))
	for _, date := range req.Dates {
		for _, slot := range req.Slots {
			expanded = append(expanded, candidateSlot{date: date, slot: slot})
			costs = append(costs, Price(slot.StartTime, slot.Duration, settings.HourlyRate, rules))
		}
	}
	allocated := AllocatePartialPayment(costs, req.PaidAmount)

	candidates := make([]Reservation, 0, len(expanded))
	for i, cs := range expanded {
		id := e.newID()
		createdAt := now
		if editInPlace {
			id = editing.ID
			createdAt = editing.CreatedAt
		}
		candidate := Reservation{
			ID:             id,
			BatchID:        batchID,
			CustomerName:   req.CustomerName,
			PhoneNumber:    req.PhoneNumber,
			ResidentUnitNo: req.ResidentUnitNo,
			Date:           cs.date,
			StartTime:      cs.slot.StartTime,
			Duration:       cs.slot.Duration,
			CourtID:        cs.slot.CourtID,
			Status:         req.Status,
			Notes:          req.Notes,
			CreatedAt:      createdAt,
			HourlyRate:     settings.HourlyRate,
			TotalAmount:    costs[i],
		}
		if req.Status == StatusPartial {
			candidate.PaidAmount = allocated[i]
		}
		candidates = append(candidates, candidate)
	}

	// Validate the whole batch before touching anything: against the
	// existing open reservations and against the candidates accepted so
	// far, so one submission cannot overlap itself. Only an in-place edit
	// may ignore the record being replaced; a multi-slot edit appends and
	// leaves the original live, so it still blocks.
	excludeID := ""
	if editInPlace {
		excludeID = editing.ID
	}
	checked := reservations
	for _, candidate := range candidates {
		if conflict := FindConflict(candidate, checked, excludeID); conflict != nil {
			logger.Info().
				Str("date", candidate.Date).
				Str("court_id", candidate.CourtID).
				Str("conflicting_id", conflict.ID).
				Msg("Booking rejected on slot conflict")
			return nil, &ConflictError{Conflict: *conflict}
		}
		checked = append(checked, candidate)
	}

	// Numbers are issued only after validation so a rejected booking does
	// not burn a receipt number.
	if req.Status == StatusPaid || req.Status == StatusPartial {
		receiptNumber, err := e.numbers.NextReceiptNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("issue receipt number: %w", err)
		}
		paymentDate := now
		for i := range candidates {
			candidates[i].ReceiptNumber = receiptNumber
			candidates[i].PaymentDate = &paymentDate
		}
	}

	var next []Reservation
	if editInPlace {
		next = make([]Reservation, len(reservations))
		copy(next, reservations)
		for i := range next {
			if next[i].ID == editing.ID {
				next[i] = candidates[0]
			}
		}
	} else {
		next = make([]Reservation, 0, len(reservations)+len(candidates))
		next = append(next, reservations...)
		next = append(next, candidates...)
	}
	if err := e.store.SaveReservations(ctx, next); err != nil {
		return nil, fmt.Errorf("save reservations: %w", err)
	}

	logger.Info().
		Int("count", len(candidates)).
		Str("batch_id", batchID).
		Str("status", string(req.Status)).
		Bool("edit_in_place", editInPlace).
		Msg("Reservations committed")
	return candidates, nil
}

// CancelReservation transitions a reservation to Cancelled. There is no
// state precondition beyond existence; the slot is immediately available
// again because cancelled reservations never obstruct conflict checks.
func (e *Engine) CancelReservation(ctx context.Context, id string) error {
	if !e.authorize(ctx, CapManageBookings) {
		return ErrPermissionDenied
	}
	return e.updateReservations(ctx, []string{id}, func(r *Reservation) {
		r.Status = StatusCancelled
	})
}

// RefundReservation issues a payment voucher and transitions a Paid or
// Partial reservation to Refunded, returning the updated record for
// voucher printing. Any other source status is rejected.
func (e *Engine) RefundReservation(ctx context.Context, id string) (*Reservation, error) {
	if !e.authorize(ctx, CapManagePayments) {
		return nil, ErrPermissionDenied
	}

	reservations, err := e.store.LoadReservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	target := findReservation(reservations, id)
	if target == nil {
		return nil, ErrNotFound
	}
	if !target.Status.Refundable() {
		return nil, &TransitionError{Reason: fmt.Sprintf("cannot refund a %s reservation", target.Status)}
	}

	voucherNumber, err := e.numbers.NextVoucherNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("issue voucher number: %w", err)
	}

	var updated Reservation
	err = e.replaceReservations(ctx, reservations, func(r *Reservation) {
		if r.ID == id {
			r.Status = StatusRefunded
			r.VoucherNumber = voucherNumber
			updated = *r
		}
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("component", "booking_engine").
		Str("reservation_id", id).
		Str("voucher_number", voucherNumber).
		Msg("Reservation refunded")
	return &updated, nil
}

// BulkSettle forces every named reservation to Paid regardless of its
// current status, clears partial amounts, and stamps one shared receipt
// number and payment timestamp across the batch. Used to settle a
// customer's accumulated outstanding balance in a single action.
func (e *Engine) BulkSettle(ctx context.Context, ids []string) (string, error) {
	if !e.authorize(ctx, CapManagePayments) {
		return "", ErrPermissionDenied
	}
	if len(ids) == 0 {
		return "", &ValidationError{Field: "ids", Reason: "must name at least one reservation"}
	}

	receiptNumber, err := e.numbers.NextReceiptNumber(ctx)
	if err != nil {
		return "", fmt.Errorf("issue receipt number: %w", err)
	}
	paymentDate := e.now()

	err = e.updateReservations(ctx, ids, func(r *Reservation) {
		r.Status = StatusPaid
		r.PaidAmount = 0
		r.ReceiptNumber = receiptNumber
		r.PaymentDate = &paymentDate
	})
	if err != nil {
		return "", err
	}

	log.Ctx(ctx).Info().
		Str("component", "booking_engine").
		Int("count", len(ids)).
		Str("receipt_number", receiptNumber).
		Msg("Reservations settled")
	return receiptNumber, nil
}

// DeleteReservation removes a reservation outright, bypassing the status
// state machine. Meant for correcting operator mistakes, not as a
// lifecycle transition.
func (e *Engine) DeleteReservation(ctx context.Context, id string) error {
	if !e.authorize(ctx, CapManageBookings) {
		return ErrPermissionDenied
	}

	reservations, err := e.store.LoadReservations(ctx)
	if err != nil {
		return fmt.Errorf("load reservations: %w", err)
	}
	next := make([]Reservation, 0, len(reservations))
	found := false
	for _, r := range reservations {
		if r.ID == id {
			found = true
			continue
		}
		next = append(next, r)
	}
	if !found {
		return ErrNotFound
	}
	if err := e.store.SaveReservations(ctx, next); err != nil {
		return fmt.Errorf("save reservations: %w", err)
	}

	log.Ctx(ctx).Info().
		Str("component", "booking_engine").
		Str("reservation_id", id).
		Msg("Reservation deleted")
	return nil
}

// ReconcileReservations marks the named reservations as counted in a cash
// collection pass and backfills a payment date where one was never
// stamped. Payment status is not touched.
func (e *Engine) ReconcileReservations(ctx context.Context, ids []string) error {
	if !e.authorize(ctx, CapManagePayments) {
		return ErrPermissionDenied
	}
	now := e.now()
	return e.updateReservations(ctx, ids, func(r *Reservation) {
		r.IsReconciled = true
		if r.PaymentDate == nil {
			stamped := now
			r.PaymentDate = &stamped
		}
	})
}

// ListReservations returns the stored reservation collection, optionally
// filtered to one date.
func (e *Engine) ListReservations(ctx context.Context, date string) ([]Reservation, error) {
	reservations, err := e.store.LoadReservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	if date == "" {
		return reservations, nil
	}
	filtered := make([]Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r.Date == date {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// FindOpenSlots returns every (court, start) position on the half-hour
// grid where a booking of the given duration would fit on the given date
// without conflicting with an open reservation.
func (e *Engine) FindOpenSlots(ctx context.Context, date string, duration float64) ([]Slot, error) {
	if !ValidDate(date) {
		return nil, &ValidationError{Field: "date", Reason: "must be a YYYY-MM-DD date"}
	}
	if !OnHalfHour(duration) || duration <= 0 {
		return nil, &ValidationError{Field: "duration", Reason: "must be a positive multiple of 0.5"}
	}

	reservations, err := e.store.LoadReservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	courts, err := e.store.LoadCourts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load courts: %w", err)
	}

	var open []Slot
	for _, court := range courts {
		for start := 0.0; start+duration <= 24; start += 0.5 {
			trial := Reservation{
				Date:      date,
				CourtID:   court.ID,
				StartTime: start,
				Duration:  duration,
			}
			if FindConflict(trial, reservations, "") == nil {
				open = append(open, Slot{CourtID: court.ID, StartTime: start, Duration: duration})
			}
		}
	}
	return open, nil
}

// WipeReservations clears the reservation collection. Courts, promotion
// rules and settings are untouched.
func (e *Engine) WipeReservations(ctx context.Context) error {
	if !e.authorize(ctx, CapSystemMaintenance) {
		return ErrPermissionDenied
	}
	if err := e.store.SaveReservations(ctx, []Reservation{}); err != nil {
		return fmt.Errorf("save reservations: %w", err)
	}
	log.Ctx(ctx).Warn().Str("component", "booking_engine").Msg("Reservation collection wiped")
	return nil
}

// ReindexReservations rewrites the collection sorted by date then start
// time, dropping records with an empty date. Returns the number of
// reservations kept.
func (e *Engine) ReindexReservations(ctx context.Context) (int, error) {
	if !e.authorize(ctx, CapSystemMaintenance) {
		return 0, ErrPermissionDenied
	}

	reservations, err := e.store.LoadReservations(ctx)
	if err != nil {
		return 0, fmt.Errorf("load reservations: %w", err)
	}
	cleaned := make([]Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r.Date == "" {
			continue
		}
		cleaned = append(cleaned, r)
	}
	sort.SliceStable(cleaned, func(i, j int) bool {
		if cleaned[i].Date != cleaned[j].Date {
			return cleaned[i].Date < cleaned[j].Date
		}
		return cleaned[i].StartTime < cleaned[j].StartTime
	})
	if err := e.store.SaveReservations(ctx, cleaned); err != nil {
		return 0, fmt.Errorf("save reservations: %w", err)
	}

	log.Ctx(ctx).Info().
		Str("component", "booking_engine").
		Int("kept", len(cleaned)).
		Int("dropped", len(reservations)-len(cleaned)).
		Msg("Reservations re-indexed")
	return len(cleaned), nil
}

// updateReservations applies mutate to every reservation whose id is in
// ids and saves the result. Returns ErrNotFound when no id matched.
func (e *Engine) updateReservations(ctx context.Context, ids []string, mutate func(*Reservation)) error {
	reservations, err := e.store.LoadReservations(ctx)
	if err != nil {
		return fmt.Errorf("load reservations: %w", err)
	}

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	next := make([]Reservation, len(reservations))
	copy(next, reservations)
	matched := 0
	for i := range next {
		if _, ok := wanted[next[i].ID]; ok {
			mutate(&next[i])
			matched++
		}
	}
	if matched == 0 {
		return ErrNotFound
	}
	return e.saveAll(ctx, next)
}

// replaceReservations copies the loaded collection, applies mutate to each
// element, and saves.
func (e *Engine) replaceReservations(ctx context.Context, reservations []Reservation, mutate func(*Reservation)) error {
	next := make([]Reservation, len(reservations))
	copy(next, reservations)
	for i := range next {
		mutate(&next[i])
	}
	return e.saveAll(ctx, next)
}

func (e *Engine) saveAll(ctx context.Context, reservations []Reservation) error {
	if err := e.store.SaveReservations(ctx, reservations); err != nil {
		return fmt.Errorf("save reservations: %w", err)
	}
	return nil
}

func findReservation(reservations []Reservation, id string) *Reservation {
	for i := range reservations {
		if reservations[i].ID == id {
			return &reservations[i]
		}
	}
	return nil
}

func validateCreateRequest(req CreateRequest) error {
	switch {
	case req.CustomerName == "":
		return &ValidationError{Field: "customerName", Reason: "is required"}
	case len(req.Dates) == 0:
		return &ValidationError{Field: "dates", Reason: "must include at least one date"}
	case len(req.Slots) == 0:
		return &ValidationError{Field: "slots", Reason: "must include at least one slot"}
	case !req.Status.Open():
		return &ValidationError{Field: "paymentStatus", Reason: "must be Unpaid, Partial or Paid"}
	case req.PaidAmount < 0:
		return &ValidationError{Field: "paidAmount", Reason: "must be 0 or greater"}
	case req.Status != StatusPartial && req.PaidAmount != 0:
		return &ValidationError{Field: "paidAmount", Reason: "is only valid with Partial status"}
	}
	for _, date := range req.Dates {
		if !ValidDate(date) {
			return &ValidationError{Field: "dates", Reason: "must contain YYYY-MM-DD dates"}
		}
	}
	for _, slot := range req.Slots {
		if err := validateSlot(slot); err != nil {
			return err
		}
	}
	return nil
}
