// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/neotechkk/smashpoint/internal/api"
	"github.com/neotechkk/smashpoint/internal/api/bookings"
	"github.com/neotechkk/smashpoint/internal/api/courts"
	"github.com/neotechkk/smashpoint/internal/api/maintenance"
	"github.com/neotechkk/smashpoint/internal/api/reports"
	"github.com/neotechkk/smashpoint/internal/authz"
	"github.com/neotechkk/smashpoint/internal/booking"
	"github.com/neotechkk/smashpoint/internal/config"
	"github.com/neotechkk/smashpoint/internal/store"
)

func newServer(cfg *config.Config, st *store.SQLiteStore) (*http.Server, error) {
	engine, err := booking.New(st, authz.Authorize)
	if err != nil {
		return nil, fmt.Errorf("create booking engine: %w", err)
	}

	bookings.InitHandlers(engine, cfg.Venue.DefaultPhoneRegion)
	courts.InitHandlers(st)
	reports.InitHandlers(st, cfg.Venue.DefaultPhoneRegion)
	maintenance.InitHandlers(engine, st)

	router := http.NewServeMux()
	registerRoutes(router)

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithOperator(operatorRoster(cfg)),
		api.WithRecovery,
		api.WithRequestID,
	)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, nil
}

// operatorRoster converts the configured operators into the lookup the
// X-Operator middleware resolves against.
func operatorRoster(cfg *config.Config) map[string]*authz.Operator {
	roster := make(map[string]*authz.Operator, len(cfg.Operators))
	for _, oc := range cfg.Operators {
		capabilities := make([]booking.Capability, 0, len(oc.Capabilities))
		for _, c := range oc.Capabilities {
			capabilities = append(capabilities, booking.Capability(c))
		}
		roster[oc.Name] = &authz.Operator{
			Name:         oc.Name,
			Role:         oc.Role,
			Capabilities: capabilities,
		}
	}
	return roster
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Booking routes
	mux.HandleFunc("GET /api/v1/bookings", bookings.HandleBookingsList)
	mux.HandleFunc("POST /api/v1/bookings", bookings.HandleBookingCreate)
	mux.HandleFunc("PUT /api/v1/bookings/{id}", bookings.HandleBookingEdit)
	mux.HandleFunc("DELETE /api/v1/bookings/{id}", bookings.HandleBookingDelete)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", bookings.HandleBookingCancel)
	mux.HandleFunc("POST /api/v1/bookings/{id}/refund", bookings.HandleBookingRefund)
	mux.HandleFunc("POST /api/v1/bookings/settle", bookings.HandleBulkSettle)
	mux.HandleFunc("POST /api/v1/bookings/reconcile", bookings.HandleReconcile)
	mux.HandleFunc("POST /api/v1/bookings/batch/amend", bookings.HandleBatchAmend)
	mux.HandleFunc("POST /api/v1/bookings/batch/refund", bookings.HandleBatchRefund)
	mux.HandleFunc("GET /api/v1/bookings/open-slots", bookings.HandleOpenSlots)

	// Court and configuration routes
	mux.HandleFunc("GET /api/v1/courts", courts.HandleCourtsList)
	mux.HandleFunc("PUT /api/v1/courts", courts.HandleCourtsSave)
	mux.HandleFunc("GET /api/v1/promotions", courts.HandlePromotionsList)
	mux.HandleFunc("PUT /api/v1/promotions", courts.HandlePromotionsSave)
	mux.HandleFunc("GET /api/v1/settings", courts.HandleSettingsGet)
	mux.HandleFunc("PUT /api/v1/settings", courts.HandleSettingsSave)

	// Report routes
	mux.HandleFunc("GET /api/v1/reports/daily", reports.HandleDailySummary)
	mux.HandleFunc("GET /api/v1/reports/cash", reports.HandleCashCollection)
	mux.HandleFunc("GET /api/v1/reports/refunds", reports.HandleRefundReport)
	mux.HandleFunc("GET /api/v1/reports/outstanding", reports.HandleOutstanding)

	// Maintenance routes
	mux.HandleFunc("POST /api/v1/maintenance/wipe", maintenance.HandleWipe)
	mux.HandleFunc("POST /api/v1/maintenance/reindex", maintenance.HandleReindex)
	mux.HandleFunc("POST /api/v1/maintenance/snapshot", maintenance.HandleSnapshot)
}
