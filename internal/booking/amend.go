package booking

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
)

// GlobalChange is the batch-wide amendment applied to every selected
// reservation. Exactly one of DateShift, Date or PickDates may be set; the
// court, start time and duration fields apply on top of whichever date
// change is chosen (or on their own with no date change at all).
type GlobalChange struct {
	DateShift int      `json:"dateShift,omitempty"` // shift every date by N days
	Date      string   `json:"date,omitempty"`      // move everything to one fixed date
	PickDates []string `json:"pickDates,omitempty"` // remap distinct original dates pairwise

	CourtID   string   `json:"courtId,omitempty"`
	StartTime *float64 `json:"startTime,omitempty"`
	Duration  *float64 `json:"duration,omitempty"`
}

// Override adjusts a single reservation within the batch. Any set field
// wins over both the global change and the reservation's original value.
type Override struct {
	Date      string   `json:"date,omitempty"`
	CourtID   string   `json:"courtId,omitempty"`
	StartTime *float64 `json:"startTime,omitempty"`
	Duration  *float64 `json:"duration,omitempty"`
}

// AmendmentPlan is the validated outcome of PlanAmendment: the complete
// predicted reservation collection plus the subset that changed. Committing
// a plan replaces the stored collection wholesale, so the plan is only
// valid until the next mutation.
type AmendmentPlan struct {
	Predicted []Reservation
	Changed   []Reservation
}

// PlanAmendment resolves the global change and per-id overrides against the
// selected reservations, builds the full predicted collection, and
// validates every changed reservation against it. It mutates nothing; a
// returned plan is handed to CommitAmendment to take effect.
//
// Pick-dates mode remaps dates positionally: the distinct original dates of
// the selection and the supplied target dates are both sorted ascending and
// paired index by index, so every reservation sharing an original day moves
// together. The counts must match exactly.
func (e *Engine) PlanAmendment(ctx context.Context, ids []string, change GlobalChange, overrides map[string]Override) (*AmendmentPlan, error) {
	if !e.authorize(ctx, CapBatchTools) {
		return nil, ErrPermissionDenied
	}
	if len(ids) == 0 {
		return nil, &ValidationError{Field: "ids", Reason: "must name at least one reservation"}
	}
	if err := validateGlobalChange(change); err != nil {
		return nil, err
	}

	reservations, err := e.store.LoadReservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}

	selected := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		selected[id] = struct{}{}
	}
	matched := 0
	for i := range reservations {
		if _, ok := selected[reservations[i].ID]; ok {
			matched++
		}
	}
	if matched == 0 {
		return nil, ErrNotFound
	}

	dateMap, err := pickDateMapping(reservations, selected, change.PickDates)
	if err != nil {
		return nil, err
	}

	predicted := make([]Reservation, len(reservations))
	copy(predicted, reservations)
	var changed []Reservation
	for i := range predicted {
		if _, ok := selected[predicted[i].ID]; !ok {
			continue
		}
		if err := amendReservation(&predicted[i], change, overrides[predicted[i].ID], dateMap); err != nil {
			return nil, err
		}
		// Overrides bypass validateGlobalChange, so every resolved
		// reservation is held to the same rules the create path applies.
		if !ValidDate(predicted[i].Date) {
			return nil, &ValidationError{Field: "date", Reason: "must be a YYYY-MM-DD date"}
		}
		if err := validateSlot(Slot{
			CourtID:   predicted[i].CourtID,
			StartTime: predicted[i].StartTime,
			Duration:  predicted[i].Duration,
		}); err != nil {
			return nil, err
		}
		changed = append(changed, predicted[i])
	}

	for _, r := range changed {
		if conflict := FindConflict(r, predicted, ""); conflict != nil {
			return nil, &ConflictError{Conflict: *conflict}
		}
	}
	return &AmendmentPlan{Predicted: predicted, Changed: changed}, nil
}

// CommitAmendment replaces the stored reservation collection with the
// plan's predicted set. The plan/commit split is the seam a future locking
// or transactional layer wraps.
func (e *Engine) CommitAmendment(ctx context.Context, plan *AmendmentPlan) error {
	if plan == nil {
		return &ValidationError{Field: "plan", Reason: "is required"}
	}
	if !e.authorize(ctx, CapBatchTools) {
		return ErrPermissionDenied
	}
	if err := e.store.SaveReservations(ctx, plan.Predicted); err != nil {
		return fmt.Errorf("save reservations: %w", err)
	}
	log.Ctx(ctx).Info().
		Str("component", "booking_engine").
		Int("changed", len(plan.Changed)).
		Msg("Batch amendment committed")
	return nil
}

// BatchAmend plans and commits in one call.
func (e *Engine) BatchAmend(ctx context.Context, ids []string, change GlobalChange, overrides map[string]Override) ([]Reservation, error) {
	plan, err := e.PlanAmendment(ctx, ids, change, overrides)
	if err != nil {
		return nil, err
	}
	if err := e.CommitAmendment(ctx, plan); err != nil {
		return nil, err
	}
	return plan.Changed, nil
}

// BatchRefund refunds every Paid or Partial reservation in the selection
// under one shared voucher number, silently skipping ineligible ones.
// A selection with no eligible reservation is an error, not a no-op.
func (e *Engine) BatchRefund(ctx context.Context, ids []string) (int, error) {
	if !e.authorize(ctx, CapManagePayments) {
		return 0, ErrPermissionDenied
	}
	if len(ids) == 0 {
		return 0, &ValidationError{Field: "ids", Reason: "must name at least one reservation"}
	}

	reservations, err := e.store.LoadReservations(ctx)
	if err != nil {
		return 0, fmt.Errorf("load reservations: %w", err)
	}

	selected := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		selected[id] = struct{}{}
	}
	eligible := 0
	for i := range reservations {
		if _, ok := selected[reservations[i].ID]; ok && reservations[i].Status.Refundable() {
			eligible++
		}
	}
	if eligible == 0 {
		return 0, &TransitionError{Reason: "no selected reservation is refundable"}
	}

	voucherNumber, err := e.numbers.NextVoucherNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("issue voucher number: %w", err)
	}

	next := make([]Reservation, len(reservations))
	copy(next, reservations)
	for i := range next {
		if _, ok := selected[next[i].ID]; ok && next[i].Status.Refundable() {
			next[i].Status = StatusRefunded
			next[i].VoucherNumber = voucherNumber
		}
	}
	if err := e.store.SaveReservations(ctx, next); err != nil {
		return 0, fmt.Errorf("save reservations: %w", err)
	}

	log.Ctx(ctx).Info().
		Str("component", "booking_engine").
		Int("refunded", eligible).
		Str("voucher_number", voucherNumber).
		Msg("Batch refund committed")
	return eligible, nil
}

// amendReservation applies the resolution order override > global >
// original to one reservation.
func amendReservation(r *Reservation, change GlobalChange, override Override, dateMap map[string]string) error {
	switch {
	case override.Date != "":
		r.Date = override.Date
	case len(dateMap) > 0:
		if mapped, ok := dateMap[r.Date]; ok {
			r.Date = mapped
		}
	case change.Date != "":
		r.Date = change.Date
	case change.DateShift != 0:
		shifted, err := ShiftDate(r.Date, change.DateShift)
		if err != nil {
			return &TransitionError{Reason: err.Error()}
		}
		r.Date = shifted
	}

	if override.CourtID != "" {
		r.CourtID = override.CourtID
	} else if change.CourtID != "" {
		r.CourtID = change.CourtID
	}

	if override.StartTime != nil {
		r.StartTime = *override.StartTime
	} else if change.StartTime != nil {
		r.StartTime = *change.StartTime
	}

	if override.Duration != nil {
		r.Duration = *override.Duration
	} else if change.Duration != nil {
		r.Duration = *change.Duration
	}
	return nil
}

// pickDateMapping builds the sorted pairwise original-to-target date map,
// or nil when pick-dates mode is not in use.
func pickDateMapping(reservations []Reservation, selected map[string]struct{}, targets []string) (map[string]string, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	distinct := make(map[string]struct{})
	for i := range reservations {
		if _, ok := selected[reservations[i].ID]; ok {
			distinct[reservations[i].Date] = struct{}{}
		}
	}
	if len(targets) != len(distinct) {
		return nil, &TransitionError{
			Reason: fmt.Sprintf("pick dates count %d does not match %d distinct original dates", len(targets), len(distinct)),
		}
	}

	originals := make([]string, 0, len(distinct))
	for date := range distinct {
		originals = append(originals, date)
	}
	sort.Strings(originals)
	sorted := make([]string, len(targets))
	copy(sorted, targets)
	sort.Strings(sorted)

	mapping := make(map[string]string, len(originals))
	for i, original := range originals {
		mapping[original] = sorted[i]
	}
	return mapping, nil
}

func validateGlobalChange(change GlobalChange) error {
	modes := 0
	if change.DateShift != 0 {
		modes++
	}
	if change.Date != "" {
		modes++
	}
	if len(change.PickDates) > 0 {
		modes++
	}
	if modes > 1 {
		return &ValidationError{Field: "globalChange", Reason: "dateShift, date and pickDates are mutually exclusive"}
	}
	if change.Date != "" && !ValidDate(change.Date) {
		return &ValidationError{Field: "date", Reason: "must be a YYYY-MM-DD date"}
	}
	for _, date := range change.PickDates {
		if !ValidDate(date) {
			return &ValidationError{Field: "pickDates", Reason: "must contain YYYY-MM-DD dates"}
		}
	}
	if change.StartTime != nil && (!OnHalfHour(*change.StartTime) || *change.StartTime < 0 || *change.StartTime >= 24) {
		return &ValidationError{Field: "startTime", Reason: "must be on the half-hour within [0, 24)"}
	}
	if change.Duration != nil && (!OnHalfHour(*change.Duration) || *change.Duration <= 0) {
		return &ValidationError{Field: "duration", Reason: "must be a positive multiple of 0.5"}
	}
	return nil
}
