package courts

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
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

func setupCourtsTest(t *testing.T) {
	t.Helper()

	s := testutil.NewTestStore(t)

	store = nil
	storeOnce = sync.Once{}
	InitHandlers(s)

	t.Cleanup(func() {
		store = nil
		storeOnce = sync.Once{}
	})
}

func withSettingsOperator(req *http.Request) *http.Request {
	op := &authz.Operator{
		Name:         "test-op",
		Role:         "staff",
		Capabilities: []booking.Capability{booking.CapManageSettings},
	}
	return req.WithContext(authz.ContextWithOperator(req.Context(), op))
}

func TestHandleCourtsListDefaults(t *testing.T) {
	setupCourtsTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courts", nil)
	rec := httptest.NewRecorder()
	HandleCourtsList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Courts []booking.Court `json:"courts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Courts) != 4 {
		t.Errorf("got %d default courts, want 4", len(out.Courts))
	}
}

func TestHandleCourtsSaveRequiresCapability(t *testing.T) {
	setupCourtsTest(t)

	body := `{"courts": [{"id": "Court 1", "name": "Centre Court"}]}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/courts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	HandleCourtsSave(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status without capability = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/v1/courts", strings.NewReader(body))
	req = withSettingsOperator(req)
	rec = httptest.NewRecorder()
	HandleCourtsSave(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status with capability = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandlePromotionsSaveReportsOverlap(t *testing.T) {
	setupCourtsTest(t)

	body := `{"promotionRules": [
		{"id": "p1", "name": "Happy Hour", "startTime": 18, "endTime": 20, "rate": 10, "isActive": true},
		{"id": "p2", "name": "Evening Deal", "startTime": 19, "endTime": 21, "rate": 8, "isActive": true}
	]}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/promotions", strings.NewReader(body))
	req = withSettingsOperator(req)
	rec := httptest.NewRecorder()
	HandlePromotionsSave(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], "overlaps") {
		t.Errorf("warnings = %v", out.Warnings)
	}
}

func TestHandlePromotionsSaveRejectsBadWindow(t *testing.T) {
	setupCourtsTest(t)

	body := `{"promotionRules": [
		{"id": "p1", "name": "Backwards", "startTime": 20, "endTime": 18, "rate": 10, "isActive": true}
	]}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/promotions", strings.NewReader(body))
	req = withSettingsOperator(req)
	rec := httptest.NewRecorder()
	HandlePromotionsSave(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleSettingsRoundTrip(t *testing.T) {
	setupCourtsTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	rec := httptest.NewRecorder()
	HandleSettingsGet(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var settings booking.Settings
	if err := json.Unmarshal(rec.Body.Bytes(), &settings); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if settings.HourlyRate != 20 {
		t.Errorf("default HourlyRate = %v", settings.HourlyRate)
	}

	settings.HourlyRate = 25
	settings.VenueName = "Riverside Courts"
	body, _ := json.Marshal(settings)
	putReq := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(string(body)))
	putReq = withSettingsOperator(putReq)
	rec = httptest.NewRecorder()
	HandleSettingsSave(rec, putReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	HandleSettingsGet(rec, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))
	var reread booking.Settings
	if err := json.Unmarshal(rec.Body.Bytes(), &reread); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if reread.HourlyRate != 25 || reread.VenueName != "Riverside Courts" {
		t.Errorf("settings not persisted: %+v", reread)
	}
}
