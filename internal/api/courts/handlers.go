// internal/api/courts/handlers.go
package courts

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/neotechkk/smashpoint/internal/api/apiutil"
	"github.com/neotechkk/smashpoint/internal/authz"
	"github.com/neotechkk/smashpoint/internal/booking"
)

var (
	store     booking.Store
	storeOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s booking.Store) {
	if s == nil {
		return
	}
	storeOnce.Do(func() {
		store = s
	})
}

func loadStore(w http.ResponseWriter, r *http.Request) booking.Store {
	if store == nil {
		log.Ctx(r.Context()).Error().Msg("Store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil
	}
	return store
}

func requireSettingsCapability(w http.ResponseWriter, r *http.Request) bool {
	if !authz.Authorize(r.Context(), booking.CapManageSettings) {
		apiutil.WriteEngineError(w, r, booking.ErrPermissionDenied)
		return false
	}
	return true
}

// GET /api/v1/courts
func HandleCourtsList(w http.ResponseWriter, r *http.Request) {
	s := loadStore(w, r)
	if s == nil {
		return
	}

	courts, err := s.LoadCourts(r.Context())
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"courts": courts})
}

// PUT /api/v1/courts
func HandleCourtsSave(w http.ResponseWriter, r *http.Request) {
	s := loadStore(w, r)
	if s == nil {
		return
	}
	if !requireSettingsCapability(w, r) {
		return
	}

	var req struct {
		Courts []booking.Court `json:"courts"`
	}
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}
	for _, c := range req.Courts {
		if c.ID == "" || c.Name == "" {
			apiutil.WriteBadRequest(w, "every court needs an id and a name")
			return
		}
	}
	if err := s.SaveCourts(r.Context(), req.Courts); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"courts": req.Courts})
}

// GET /api/v1/promotions
func HandlePromotionsList(w http.ResponseWriter, r *http.Request) {
	s := loadStore(w, r)
	if s == nil {
		return
	}

	rules, err := s.LoadPromotionRules(r.Context())
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"promotionRules": rules})
}

// PUT /api/v1/promotions
//
// Overlapping active rules are saved as submitted but reported back as
// warnings: pricing resolves them first-match-wins, so the later rule is
// shadowed wherever the windows intersect.
func HandlePromotionsSave(w http.ResponseWriter, r *http.Request) {
	s := loadStore(w, r)
	if s == nil {
		return
	}
	if !requireSettingsCapability(w, r) {
		return
	}

	var req struct {
		PromotionRules []booking.PromotionRule `json:"promotionRules"`
	}
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}
	for _, rule := range req.PromotionRules {
		if rule.StartTime < 0 || rule.EndTime > 24 || rule.StartTime >= rule.EndTime {
			apiutil.WriteBadRequest(w, "promotion windows must satisfy 0 <= start < end <= 24")
			return
		}
		if rule.Rate < 0 {
			apiutil.WriteBadRequest(w, "promotion rates must be 0 or greater")
			return
		}
	}

	if err := s.SavePromotionRules(r.Context(), req.PromotionRules); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	var warnings []string
	for _, pair := range booking.OverlappingRules(req.PromotionRules) {
		warnings = append(warnings, pair[0].Name+" overlaps "+pair[1].Name)
		log.Ctx(r.Context()).Warn().
			Str("first", pair[0].Name).
			Str("shadowed", pair[1].Name).
			Msg("Overlapping promotion rules saved")
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"promotionRules": req.PromotionRules,
		"warnings":       warnings,
	})
}

// GET /api/v1/settings
func HandleSettingsGet(w http.ResponseWriter, r *http.Request) {
	s := loadStore(w, r)
	if s == nil {
		return
	}

	settings, err := s.LoadSettings(r.Context())
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, settings)
}

// PUT /api/v1/settings
func HandleSettingsSave(w http.ResponseWriter, r *http.Request) {
	s := loadStore(w, r)
	if s == nil {
		return
	}
	if !requireSettingsCapability(w, r) {
		return
	}

	var settings booking.Settings
	if err := apiutil.DecodeJSON(r, &settings); err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}
	if settings.HourlyRate <= 0 {
		apiutil.WriteBadRequest(w, "hourlyRate must be greater than 0")
		return
	}
	if settings.Documents.ReceiptNextNumber < 1 || settings.Documents.VoucherNextNumber < 1 {
		apiutil.WriteBadRequest(w, "document counters must be 1 or greater")
		return
	}
	if err := s.SaveSettings(r.Context(), settings); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, settings)
}
