package booking

// FindConflict returns the first reservation in existing that collides with
// the proposed one, or nil when the slot is free.
//
// Two reservations collide when they share a date and court and their
// half-open [start, end) intervals strictly overlap; touching endpoints are
// not a conflict. Cancelled and refunded reservations never obstruct.
// excludeID additionally skips a reservation by id so edits can re-validate
// without colliding with the record being replaced.
func FindConflict(proposed Reservation, existing []Reservation, excludeID string) *Reservation {
	pStart := proposed.StartTime
	pEnd := proposed.EndTime()

	for i := range existing {
		b := &existing[i]
		if b.ID == proposed.ID || (excludeID != "" && b.ID == excludeID) {
			continue
		}
		if b.Status.Terminal() {
			continue
		}
		if b.Date != proposed.Date || b.CourtID != proposed.CourtID {
			continue
		}
		if pStart < b.EndTime() && pEnd > b.StartTime {
			conflict := *b
			return &conflict
		}
	}
	return nil
}
