// internal/api/reports/handlers.go
package reports

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/neotechkk/smashpoint/internal/api/apiutil"
	"github.com/neotechkk/smashpoint/internal/authz"
	"github.com/neotechkk/smashpoint/internal/booking"
	"github.com/neotechkk/smashpoint/internal/reports"
)

var (
	store       booking.Store
	phoneRegion string
	storeOnce   sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s booking.Store, defaultPhoneRegion string) {
	if s == nil {
		return
	}
	storeOnce.Do(func() {
		store = s
		phoneRegion = defaultPhoneRegion
	})
}

func loadReservations(w http.ResponseWriter, r *http.Request) ([]booking.Reservation, bool) {
	if store == nil {
		log.Ctx(r.Context()).Error().Msg("Store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	if !authz.Authorize(r.Context(), booking.CapViewReports) {
		apiutil.WriteEngineError(w, r, booking.ErrPermissionDenied)
		return nil, false
	}
	reservations, err := store.LoadReservations(r.Context())
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return nil, false
	}
	return reservations, true
}

// GET /api/v1/reports/daily?date=YYYY-MM-DD
func HandleDailySummary(w http.ResponseWriter, r *http.Request) {
	date, err := apiutil.RequiredDateFromQuery(r, "date")
	if err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}
	reservations, ok := loadReservations(w, r)
	if !ok {
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, reports.Summarize(reservations, date))
}

// GET /api/v1/reports/cash?from=YYYY-MM-DD&to=YYYY-MM-DD
func HandleCashCollection(w http.ResponseWriter, r *http.Request) {
	from, err := apiutil.RequiredDateFromQuery(r, "from")
	if err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}
	to, err := apiutil.RequiredDateFromQuery(r, "to")
	if err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}
	if to < from {
		apiutil.WriteBadRequest(w, "to must not be before from")
		return
	}
	reservations, ok := loadReservations(w, r)
	if !ok {
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, reports.CollectCash(reservations, from, to))
}

// GET /api/v1/reports/outstanding?phone=...
//
// The front-desk settlement flow: look up a customer's open balance by
// phone number, then feed the entry ids into POST /bookings/settle.
func HandleOutstanding(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		apiutil.WriteBadRequest(w, "phone is required")
		return
	}
	reservations, ok := loadReservations(w, r)
	if !ok {
		return
	}
	settings, err := store.LoadSettings(r.Context())
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	outstanding := reports.OutstandingForCustomer(reservations, phone, phoneRegion)
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"outstanding":          outstanding,
		"formattedOutstanding": apiutil.FormatAmount(outstanding.OutstandingAmount, settings.CurrencyCode),
	})
}

// GET /api/v1/reports/refunds?from=YYYY-MM-DD&to=YYYY-MM-DD
func HandleRefundReport(w http.ResponseWriter, r *http.Request) {
	from, err := apiutil.RequiredDateFromQuery(r, "from")
	if err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}
	to, err := apiutil.RequiredDateFromQuery(r, "to")
	if err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}
	if to < from {
		apiutil.WriteBadRequest(w, "to must not be before from")
		return
	}
	reservations, ok := loadReservations(w, r)
	if !ok {
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, reports.CollectRefunds(reservations, from, to))
}
