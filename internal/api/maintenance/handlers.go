// internal/api/maintenance/handlers.go
package maintenance

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/neotechkk/smashpoint/internal/api/apiutil"
	"github.com/neotechkk/smashpoint/internal/authz"
	"github.com/neotechkk/smashpoint/internal/booking"
	"github.com/neotechkk/smashpoint/internal/scheduler"
)

var (
	engine      *booking.Engine
	snapshotter scheduler.Snapshotter
	initOnce    sync.Once
)

// InitHandlers must be called during server startup before handling requests.
// snap may be nil when the store does not support snapshots.
func InitHandlers(e *booking.Engine, snap scheduler.Snapshotter) {
	if e == nil {
		return
	}
	initOnce.Do(func() {
		engine = e
		snapshotter = snap
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

// POST /api/v1/maintenance/wipe
func HandleWipe(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	if err := e.WipeReservations(r.Context()); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/maintenance/reindex
func HandleReindex(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	kept, err := e.ReindexReservations(r.Context())
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"kept": kept})
}

// POST /api/v1/maintenance/snapshot
func HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if loadEngine(w, r) == nil {
		return
	}
	if !authz.Authorize(r.Context(), booking.CapSystemMaintenance) {
		apiutil.WriteEngineError(w, r, booking.ErrPermissionDenied)
		return
	}
	if snapshotter == nil {
		apiutil.WriteBadRequest(w, "snapshots are not supported by this store")
		return
	}

	key, err := snapshotter.WriteSnapshot(r.Context(), time.Now())
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"key": key})
}
