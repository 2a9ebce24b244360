package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a trade. The only transition is
// OPEN -> CLOSED, applied exactly once.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// ParseStatus normalizes a persisted status cell. Anything unrecognized
// reads as OPEN so a damaged cell never fabricates a closed trade.
func ParseStatus(s string) Status {
	if strings.ToUpper(strings.TrimSpace(s)) == string(StatusClosed) {
		return StatusClosed
	}
	return StatusOpen
}

// Canonical column names in persisted order.
const (
	ColID         = "id"
	ColSymbol     = "symbol"
	ColBuyPrice   = "buy_price"
	ColSellPrice  = "sell_price"
	ColQuantity   = "quantity"
	ColOpenDate   = "open_date"
	ColCloseDate  = "close_date"
	ColPnL        = "pnl"
	ColPnLPercent = "pnl_percent"
	ColStatus     = "status"
	ColNotes      = "notes"
)

// Columns returns the canonical column order for the persisted table.
func Columns() []string {
	return []string{
		ColID, ColSymbol, ColBuyPrice, ColSellPrice, ColQuantity,
		ColOpenDate, ColCloseDate, ColPnL, ColPnLPercent, ColStatus, ColNotes,
	}
}

// Trade is one buy-to-sell position lifecycle, the system's sole entity.
type Trade struct {
	ID         int64           `json:"id"`
	Symbol     string          `json:"symbol"`
	BuyPrice   decimal.Decimal `json:"buy_price"`
	SellPrice  decimal.Decimal `json:"sell_price"`
	Quantity   int64           `json:"quantity"`
	OpenDate   Date            `json:"open_date"`
	CloseDate  Date            `json:"close_date"`
	PnL        decimal.Decimal `json:"pnl"`
	PnLPercent decimal.Decimal `json:"pnl_percent"`
	Status     Status          `json:"status"`
	Notes      string          `json:"notes"`
}

// CostBasis returns buy_price * quantity.
func (t Trade) CostBasis() decimal.Decimal {
	return t.BuyPrice.Mul(decimal.NewFromInt(t.Quantity))
}

// IsOpen reports whether the position is still held.
func (t Trade) IsOpen() bool { return t.Status == StatusOpen }

// IsClosed reports whether the position has been sold.
func (t Trade) IsClosed() bool { return t.Status == StatusClosed }
