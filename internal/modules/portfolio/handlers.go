package portfolio

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// Handlers contains HTTP handlers for the portfolio API
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new portfolio handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGet returns the full portfolio valuation. Viewing the portfolio also
// records today's snapshot if one does not exist yet, so the history chart
// fills in even without the scheduler.
// GET /api/portfolio
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	valuation, err := h.service.ComputeValuation(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to value portfolio")
		h.writeError(w, http.StatusInternalServerError, "Failed to value portfolio")
		return
	}

	if _, err := h.service.RecordSnapshot(r.Context(), valuation.TotalValue); err != nil {
		// The page still renders; only the history point is lost.
		h.log.Warn().Err(err).Msg("Failed to record daily snapshot")
	}

	h.writeJSON(w, http.StatusOK, valuation)
}

// HandleSnapshots returns the daily value history in date order.
// GET /api/portfolio/snapshots
func (h *Handlers) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.service.Snapshots(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load snapshots")
		h.writeError(w, http.StatusInternalServerError, "Failed to load snapshots")
		return
	}

	if snapshots == nil {
		snapshots = []Snapshot{}
	}
	h.writeJSON(w, http.StatusOK, snapshots)
}

// HandleAnalytics returns return and risk statistics over the snapshot
// history.
// GET /api/portfolio/analytics
func (h *Handlers) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.service.ComputeAnalytics(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute analytics")
		h.writeError(w, http.StatusInternalServerError, "Failed to compute analytics")
		return
	}

	h.writeJSON(w, http.StatusOK, analytics)
}

// HandleReset restores the starting cash and wipes holdings and trades.
// Snapshot history is kept.
// POST /api/portfolio/reset
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Failed to reset portfolio")
		h.writeError(w, http.StatusInternalServerError, "Failed to reset portfolio")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "reset",
		"cash":   h.service.initialCash,
	})
}

// writeJSON writes a JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
