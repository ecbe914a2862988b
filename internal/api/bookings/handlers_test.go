package bookings

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/neotechkk/smashpoint/internal/authz"
	"github.com/neotechkk/smashpoint/internal/booking"
	"github.com/neotechkk/smashpoint/internal/testutil"
)

func setupBookingsTest(t *testing.T) *booking.Engine {
	t.Helper()

	s := testutil.NewTestStore(t)
	e, err := booking.New(s, authz.Authorize)
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}

	engine = nil
	engineOnce = sync.Once{}
	InitHandlers(e, "US")

	t.Cleanup(func() {
		engine = nil
		engineOnce = sync.Once{}
	})

	return e
}

func withOperator(req *http.Request, capabilities ...booking.Capability) *http.Request {
	op := &authz.Operator{Name: "test-op", Role: "staff", Capabilities: capabilities}
	return req.WithContext(authz.ContextWithOperator(req.Context(), op))
}

func createBooking(t *testing.T, body string) map[string]any {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req = withOperator(req, booking.CapManageBookings)
	rec := httptest.NewRecorder()
	HandleBookingCreate(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

const simpleBookingBody = `{
	"customerName": "Alex Chen",
	"phoneNumber": "(415) 555-2671",
	"dates": ["2024-01-20"],
	"slots": [{"courtId": "Court 1", "startTime": 10, "duration": 2}],
	"paymentStatus": "Unpaid"
}`

func TestHandleBookingCreate(t *testing.T) {
	setupBookingsTest(t)

	payload := createBooking(t, simpleBookingBody)
	reservations := payload["reservations"].([]any)
	if len(reservations) != 1 {
		t.Fatalf("got %d reservations, want 1", len(reservations))
	}
	r := reservations[0].(map[string]any)
	if r["totalAmount"].(float64) != 40 {
		t.Errorf("totalAmount = %v, want 40", r["totalAmount"])
	}
	// Phone normalized to E.164 on the way in.
	if r["phoneNumber"].(string) != "+14155552671" {
		t.Errorf("phoneNumber = %v", r["phoneNumber"])
	}
}

func TestHandleBookingCreateConflict(t *testing.T) {
	setupBookingsTest(t)
	createBooking(t, simpleBookingBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(simpleBookingBody))
	req = withOperator(req, booking.CapManageBookings)
	rec := httptest.NewRecorder()
	HandleBookingCreate(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["conflict"] == nil {
		t.Error("conflict body missing the offending reservation")
	}
}

func TestHandleBookingCreateForbidden(t *testing.T) {
	setupBookingsTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(simpleBookingBody))
	rec := httptest.NewRecorder()
	HandleBookingCreate(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status without operator = %d, want 403", rec.Code)
	}
}

func TestHandleBookingCreateBadJSON(t *testing.T) {
	setupBookingsTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{"customerName":`))
	req = withOperator(req, booking.CapManageBookings)
	rec := httptest.NewRecorder()
	HandleBookingCreate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleBookingCancel(t *testing.T) {
	setupBookingsTest(t)

	payload := createBooking(t, simpleBookingBody)
	id := payload["reservations"].([]any)[0].(map[string]any)["id"].(string)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/"+id+"/cancel", nil)
	req.SetPathValue("id", id)
	req = withOperator(req, booking.CapManageBookings)
	rec := httptest.NewRecorder()
	HandleBookingCancel(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestHandleBookingRefundLifecycle(t *testing.T) {
	setupBookingsTest(t)

	paidBody := strings.Replace(simpleBookingBody, `"Unpaid"`, `"Paid"`, 1)
	payload := createBooking(t, paidBody)
	id := payload["reservations"].([]any)[0].(map[string]any)["id"].(string)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/"+id+"/refund", nil)
	req.SetPathValue("id", id)
	req = withOperator(req, booking.CapManagePayments)
	rec := httptest.NewRecorder()
	HandleBookingRefund(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	r := out["reservation"].(map[string]any)
	if r["paymentStatus"].(string) != "Refunded" {
		t.Errorf("paymentStatus = %v", r["paymentStatus"])
	}
	if !strings.HasPrefix(r["voucherNumber"].(string), "PV-") {
		t.Errorf("voucherNumber = %v", r["voucherNumber"])
	}

	// A second refund of the same reservation is an invalid transition.
	rec = httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/"+id+"/refund", nil)
	req2.SetPathValue("id", id)
	req2 = withOperator(req2, booking.CapManagePayments)
	HandleBookingRefund(rec, req2)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("double refund status = %d, want 422", rec.Code)
	}
}

func TestHandleBulkSettle(t *testing.T) {
	setupBookingsTest(t)

	payload := createBooking(t, simpleBookingBody)
	id := payload["reservations"].([]any)[0].(map[string]any)["id"].(string)

	body := `{"ids": ["` + id + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/settle", strings.NewReader(body))
	req = withOperator(req, booking.CapManagePayments)
	rec := httptest.NewRecorder()
	HandleBulkSettle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(out["receiptNumber"].(string), "OR-") {
		t.Errorf("receiptNumber = %v", out["receiptNumber"])
	}
}

func TestHandleBatchAmend(t *testing.T) {
	e := setupBookingsTest(t)

	payload := createBooking(t, simpleBookingBody)
	id := payload["reservations"].([]any)[0].(map[string]any)["id"].(string)

	body := `{"ids": ["` + id + `"], "change": {"dateShift": 7}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/batch/amend", strings.NewReader(body))
	req = withOperator(req, booking.CapBatchTools)
	rec := httptest.NewRecorder()
	HandleBatchAmend(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	ctx := authz.ContextWithOperator(context.Background(), &authz.Operator{Name: "t", Role: "admin"})
	reservations, err := e.ListReservations(ctx, "2024-01-27")
	if err != nil {
		t.Fatalf("ListReservations: %v", err)
	}
	if len(reservations) != 1 {
		t.Errorf("amended reservation not found on shifted date")
	}
}

func TestHandleOpenSlots(t *testing.T) {
	setupBookingsTest(t)
	createBooking(t, simpleBookingBody)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/open-slots?date=2024-01-20&duration=2", nil)
	rec := httptest.NewRecorder()
	HandleOpenSlots(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Slots []booking.Slot `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, s := range out.Slots {
		if s.CourtID == "Court 1" && s.StartTime == 10 {
			t.Errorf("booked slot reported open: %+v", s)
		}
	}
}

func TestHandleBookingsListFilters(t *testing.T) {
	setupBookingsTest(t)
	createBooking(t, simpleBookingBody)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?date=2024-01-21", nil)
	rec := httptest.NewRecorder()
	HandleBookingsList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Reservations []booking.Reservation `json:"reservations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Reservations) != 0 {
		t.Errorf("filter returned %d reservations for an empty date", len(out.Reservations))
	}
}
