package trading

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/paper-trader/internal/modules/instruments"
)

const defaultHistoryLimit = 50

// Handlers contains HTTP handlers for trade execution and history
type Handlers struct {
	engine *Engine
	log    zerolog.Logger
}

// NewHandlers creates a new trading handlers instance
func NewHandlers(engine *Engine, log zerolog.Logger) *Handlers {
	return &Handlers{
		engine: engine,
		log:    log.With().Str("handler", "trading").Logger(),
	}
}

type orderRequest struct {
	Quantity json.Number `json:"quantity"`
}

// HandleBuy executes a buy order at the current live price.
// POST /api/instruments/{symbol}/buy
func (h *Handlers) HandleBuy(w http.ResponseWriter, r *http.Request) {
	h.executeOrder(w, r, h.engine.Buy)
}

// HandleSell executes a sell order at the current live price.
// POST /api/instruments/{symbol}/sell
func (h *Handlers) HandleSell(w http.ResponseWriter, r *http.Request) {
	h.executeOrder(w, r, h.engine.Sell)
}

func (h *Handlers) executeOrder(
	w http.ResponseWriter,
	r *http.Request,
	execute func(ctx context.Context, symbol string, quantity decimal.Decimal) (*Receipt, error),
) {
	symbol := chi.URLParam(r, "symbol")

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	quantity, err := decimal.NewFromString(req.Quantity.String())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrInvalidQuantity.Error())
		return
	}

	receipt, err := execute(r.Context(), symbol, quantity)
	if err != nil {
		h.writeTradeError(w, symbol, err)
		return
	}

	h.writeJSON(w, http.StatusOK, receipt)
}

// HandleHistory returns the trade ledger, most recent first.
// GET /api/trades?limit=50
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.engine.History(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load trade history")
		h.writeError(w, http.StatusInternalServerError, "Failed to load trade history")
		return
	}

	if entries == nil {
		entries = []HistoryEntry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// writeTradeError maps engine errors onto HTTP statuses
func (h *Handlers) writeTradeError(w http.ResponseWriter, symbol string, err error) {
	var (
		fundsErr  *InsufficientFundsError
		sharesErr *InsufficientSharesError
	)

	switch {
	case errors.Is(err, instruments.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "Unknown instrument symbol")
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrWholeSharesOnly):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &fundsErr), errors.As(err, &sharesErr), errors.Is(err, ErrNotOwned):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrPriceUnavailable):
		h.writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Trade failed")
		h.writeError(w, http.StatusInternalServerError, "Trade failed")
	}
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
