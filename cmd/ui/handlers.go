package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/breadwinner/stock-tracer/internal/analytics"
	"github.com/breadwinner/stock-tracer/internal/export"
	"github.com/breadwinner/stock-tracer/internal/ledger"
	"github.com/breadwinner/stock-tracer/internal/models"
	"github.com/breadwinner/stock-tracer/internal/store"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log    *zap.Logger
	ledger *ledger.Ledger
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, l *ledger.Ledger) *APIHandler {
	return &APIHandler{log: log, ledger: l}
}

type holdingsResponse struct {
	Holdings      []models.Trade  `json:"holdings"`
	OpenCostBasis decimal.Decimal `json:"open_cost_basis"`
}

// HoldingsHandler returns open positions and their total cost basis.
func (h *APIHandler) HoldingsHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := h.ledger.ListOpen(r.Context())
	if err != nil {
		h.serveError(w, "load holdings", err)
		return
	}

	h.writeJSON(w, http.StatusOK, holdingsResponse{
		Holdings:      trades,
		OpenCostBasis: analytics.OpenCostBasis(trades),
	})
}

type historyResponse struct {
	History []models.Trade    `json:"history"`
	Summary analytics.Summary `json:"summary"`
}

// HistoryHandler returns closed trades, most recently closed first,
// with the realized P&L summary.
func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := h.ledger.ListClosed(r.Context())
	if err != nil {
		h.serveError(w, "load history", err)
		return
	}

	h.writeJSON(w, http.StatusOK, historyResponse{
		History: trades,
		Summary: analytics.Summarize(trades),
	})
}

// EquityHandler returns the cumulative realized P&L series.
func (h *APIHandler) EquityHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := h.ledger.All(r.Context())
	if err != nil {
		h.serveError(w, "load equity curve", err)
		return
	}

	h.writeJSON(w, http.StatusOK, analytics.EquityCurve(trades))
}

// BarsHandler returns one P&L bar per closed trade.
func (h *APIHandler) BarsHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := h.ledger.All(r.Context())
	if err != nil {
		h.serveError(w, "load pnl bars", err)
		return
	}

	h.writeJSON(w, http.StatusOK, analytics.PnLBars(trades))
}

type openPayload struct {
	Symbol   string          `json:"symbol"`
	BuyPrice decimal.Decimal `json:"buy_price"`
	Quantity int64           `json:"quantity"`
	OpenDate models.Date     `json:"open_date"`
	Notes    string          `json:"notes"`
}

// OpenHandler records a new open position.
func (h *APIHandler) OpenHandler(w http.ResponseWriter, r *http.Request) {
	var req openPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	trade, err := h.ledger.Open(r.Context(), ledger.OpenRequest{
		Symbol:   req.Symbol,
		BuyPrice: req.BuyPrice,
		Quantity: req.Quantity,
		OpenDate: req.OpenDate,
		Notes:    req.Notes,
	})
	if err != nil {
		h.serveError(w, "open trade", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, trade)
}

type closePayload struct {
	ID        int64           `json:"id"`
	SellPrice decimal.Decimal `json:"sell_price"`
	CloseDate models.Date     `json:"close_date"`
	Notes     string          `json:"notes"`
}

// CloseHandler closes an open position and returns the updated trade.
func (h *APIHandler) CloseHandler(w http.ResponseWriter, r *http.Request) {
	var req closePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	trade, err := h.ledger.Close(r.Context(), ledger.CloseRequest{
		ID:        req.ID,
		SellPrice: req.SellPrice,
		CloseDate: req.CloseDate,
		Notes:     req.Notes,
	})
	if err != nil {
		h.serveError(w, "close trade", err)
		return
	}

	h.writeJSON(w, http.StatusOK, trade)
}

type deletePayload struct {
	ID int64 `json:"id"`
}

// DeleteHandler removes a trade. Deleting an unknown id succeeds.
func (h *APIHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	var req deletePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.ledger.Delete(r.Context(), req.ID); err != nil {
		h.serveError(w, "delete trade", err)
		return
	}

	h.writeJSON(w, http.StatusOK, deletePayload{ID: req.ID})
}

// ExportHandler streams the closed trades as a CSV attachment.
func (h *APIHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := h.ledger.ListClosed(r.Context())
	if err != nil {
		h.serveError(w, "export trades", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	if err := export.WriteClosedTrades(w, trades); err != nil {
		// Headers are already out; nothing to send the client.
		h.log.Error("Failed to write CSV export", zap.Error(err))
	}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}

// serveError maps ledger errors onto HTTP status codes.
func (h *APIHandler) serveError(w http.ResponseWriter, op string, err error) {
	var verr *ledger.ValidationError
	var ioErr *store.IOError
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrAlreadyClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &ioErr):
		h.log.Error("Storage failure", zap.String("op", op), zap.Error(err))
		http.Error(w, "storage unavailable", http.StatusBadGateway)
	default:
		h.log.Error("Request failed", zap.String("op", op), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
