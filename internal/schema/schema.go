// Package schema coerces raw table data into typed trade records and
// back. The backing store enforces no schema, so every load runs through
// one explicit normalization pass instead of scattered per-field fixes.
package schema

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/breadwinner/stock-tracer/internal/models"
	"github.com/breadwinner/stock-tracer/internal/store"
)

// Canonical reports whether a stored header carries every canonical
// column. Extraneous columns are tolerated; missing ones are not.
func Canonical(columns []string) bool {
	present := make(map[string]bool, len(columns))
	for _, col := range columns {
		present[col] = true
	}
	for _, col := range models.Columns() {
		if !present[col] {
			return false
		}
	}
	return true
}

// Normalize converts raw rows into typed trades. Malformed or missing
// cells become type-appropriate defaults; extraneous columns are
// dropped. It never fails: damaged read-side data is repaired, not
// surfaced.
func Normalize(rows []store.Row) []models.Trade {
	trades := make([]models.Trade, 0, len(rows))
	for _, row := range rows {
		trades = append(trades, models.Trade{
			ID:         parseInt(row[models.ColID]),
			Symbol:     strings.TrimSpace(row[models.ColSymbol]),
			BuyPrice:   parseDecimal(row[models.ColBuyPrice]),
			SellPrice:  parseDecimal(row[models.ColSellPrice]),
			Quantity:   parseInt(row[models.ColQuantity]),
			OpenDate:   parseDate(row[models.ColOpenDate]),
			CloseDate:  parseDate(row[models.ColCloseDate]),
			PnL:        parseDecimal(row[models.ColPnL]),
			PnLPercent: parseDecimal(row[models.ColPnLPercent]),
			Status:     models.ParseStatus(row[models.ColStatus]),
			Notes:      row[models.ColNotes],
		})
	}
	return trades
}

// Denormalize converts trades into the canonical header and string rows
// for persistence. Dates render as YYYY-MM-DD, absent values as empty
// strings.
func Denormalize(trades []models.Trade) ([]string, []store.Row) {
	columns := models.Columns()
	rows := make([]store.Row, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, store.Row{
			models.ColID:         strconv.FormatInt(t.ID, 10),
			models.ColSymbol:     t.Symbol,
			models.ColBuyPrice:   t.BuyPrice.String(),
			models.ColSellPrice:  t.SellPrice.String(),
			models.ColQuantity:   strconv.FormatInt(t.Quantity, 10),
			models.ColOpenDate:   t.OpenDate.String(),
			models.ColCloseDate:  t.CloseDate.String(),
			models.ColPnL:        t.PnL.String(),
			models.ColPnLPercent: t.PnLPercent.String(),
			models.ColStatus:     string(t.Status),
			models.ColNotes:      t.Notes,
		})
	}
	return columns, rows
}

// parseInt truncates decimal cell values the way spreadsheets render
// whole numbers ("3.0"), and falls back to 0 for anything unreadable.
func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

func parseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseDate(s string) models.Date {
	d, err := models.ParseDate(s)
	if err != nil {
		return models.Date{}
	}
	return d
}
