// internal/api/bookings/handlers.go
package bookings

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/neotechkk/smashpoint/internal/api/apiutil"
	"github.com/neotechkk/smashpoint/internal/booking"
	"github.com/neotechkk/smashpoint/internal/customer"
)

var (
	engine      *booking.Engine
	phoneRegion string
	engineOnce  sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(e *booking.Engine, defaultPhoneRegion string) {
	if e == nil {
		return
	}
	engineOnce.Do(func() {
		engine = e
		phoneRegion = defaultPhoneRegion
	})
}

func loadEngine(w http.ResponseWriter, r *http.Request) *booking.Engine {
	if engine == nil {
		log.Ctx(r.Context()).Error().Msg("Booking engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil
	}
	return engine
}

// GET /api/v1/bookings?date=YYYY-MM-DD
func HandleBookingsList(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	date, err := apiutil.DateFromQuery(r, "date")
	if err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}
	reservations, err := e.ListReservations(r.Context(), date)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"reservations": reservations})
}

// POST /api/v1/bookings
func HandleBookingCreate(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	var req booking.CreateRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}
	req.PhoneNumber = customer.NormalizePhone(req.PhoneNumber, phoneRegion)

	created, err := e.CreateReservation(r.Context(), req)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusCreated, map[string]any{"reservations": created})
}

// PUT /api/v1/bookings/{id}
func HandleBookingEdit(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	var req booking.CreateRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}
	req.PhoneNumber = customer.NormalizePhone(req.PhoneNumber, phoneRegion)

	updated, err := e.EditReservation(r.Context(), r.PathValue("id"), req)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"reservations": updated})
}

// POST /api/v1/bookings/{id}/cancel
func HandleBookingCancel(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	if err := e.CancelReservation(r.Context(), r.PathValue("id")); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/bookings/{id}/refund
func HandleBookingRefund(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	refunded, err := e.RefundReservation(r.Context(), r.PathValue("id"))
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"reservation": refunded})
}

// DELETE /api/v1/bookings/{id}
func HandleBookingDelete(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	if err := e.DeleteReservation(r.Context(), r.PathValue("id")); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

// POST /api/v1/bookings/settle
func HandleBulkSettle(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	var req idsRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}
	receipt, err := e.BulkSettle(r.Context(), req.IDs)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"receiptNumber": receipt})
}

// POST /api/v1/bookings/reconcile
func HandleReconcile(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	var req idsRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}
	if err := e.ReconcileReservations(r.Context(), req.IDs); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type batchAmendRequest struct {
	IDs       []string                    `json:"ids"`
	Change    booking.GlobalChange        `json:"change"`
	Overrides map[string]booking.Override `json:"overrides,omitempty"`
}

// POST /api/v1/bookings/batch/amend
func HandleBatchAmend(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	var req batchAmendRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}
	changed, err := e.BatchAmend(r.Context(), req.IDs, req.Change, req.Overrides)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"reservations": changed})
}

// POST /api/v1/bookings/batch/refund
func HandleBatchRefund(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	var req idsRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}
	count, err := e.BatchRefund(r.Context(), req.IDs)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"refunded": count})
}

// GET /api/v1/bookings/open-slots?date=YYYY-MM-DD&duration=1.5
func HandleOpenSlots(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	date, err := apiutil.RequiredDateFromQuery(r, "date")
	if err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}
	duration, err := apiutil.HoursFromQuery(r, "duration", 1)
	if err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}
	slots, err := e.FindOpenSlots(r.Context(), date, duration)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"slots": slots})
}
