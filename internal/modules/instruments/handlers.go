package instruments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/clients/yahoo"
)

// Handlers contains HTTP handlers for the instrument API
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new instrument handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "instruments").Logger(),
	}
}

// HandleList returns all instruments with fresh prices where the provider
// answers, and the last cached price where it does not.
// GET /api/instruments
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.Repo().GetAll(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list instruments")
		h.writeError(w, http.StatusInternalServerError, "Failed to list instruments")
		return
	}

	response := make([]map[string]interface{}, 0, len(all))
	for _, inst := range all {
		entry := map[string]interface{}{
			"symbol":         inst.Symbol,
			"name":           inst.Name,
			"price":          nil,
			"previous_close": nil,
			"stale":          false,
		}

		quote, err := h.service.RefreshPrice(r.Context(), inst.Symbol)
		if err != nil {
			// Provider down for this symbol: show the cached price and say so.
			h.log.Warn().Err(err).Str("symbol", inst.Symbol).Msg("Quote failed, serving cached price")
			if inst.CurrentPrice.Valid {
				entry["price"] = inst.CurrentPrice.Decimal
				entry["stale"] = true
			}
		} else {
			entry["price"] = quote.CurrentPrice
			if quote.PreviousClose.Valid {
				entry["previous_close"] = quote.PreviousClose.Decimal
			}
		}

		response = append(response, entry)
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDetail returns one instrument with its closing-price history.
// GET /api/instruments/{symbol}?period=1mo
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	period := r.URL.Query().Get("period")

	inst, err := h.service.Repo().GetBySymbol(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "Unknown instrument symbol")
			return
		}
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to load instrument")
		h.writeError(w, http.StatusInternalServerError, "Failed to load instrument")
		return
	}

	response := map[string]interface{}{
		"symbol":         inst.Symbol,
		"name":           inst.Name,
		"price":          nil,
		"previous_close": nil,
		"stale":          false,
	}

	quote, err := h.service.RefreshPrice(r.Context(), inst.Symbol)
	if err != nil {
		h.log.Warn().Err(err).Str("symbol", inst.Symbol).Msg("Quote failed, serving cached price")
		if inst.CurrentPrice.Valid {
			response["price"] = inst.CurrentPrice.Decimal
			response["stale"] = true
		}
	} else {
		response["price"] = quote.CurrentPrice
		if quote.PreviousClose.Valid {
			response["previous_close"] = quote.PreviousClose.Decimal
		}
	}

	history, err := h.service.History(r.Context(), inst.Symbol, period)
	if err != nil {
		var provErr *yahoo.ProviderError
		if errors.As(err, &provErr) {
			// The instrument itself still renders; the chart just has no data.
			h.log.Warn().Err(err).Str("symbol", inst.Symbol).Msg("History unavailable")
			response["history_unavailable"] = true
		} else {
			h.log.Error().Err(err).Str("symbol", inst.Symbol).Msg("Failed to load history")
			h.writeError(w, http.StatusInternalServerError, "Failed to load history")
			return
		}
	} else {
		response["history"] = history
	}

	h.writeJSON(w, http.StatusOK, response)
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
