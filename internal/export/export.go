// Package export renders closed trades as CSV for download or archival.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/breadwinner/stock-tracer/internal/models"
)

// Filename is the default name offered for downloaded exports.
const Filename = "closed_trades.csv"

var header = []string{
	"symbol", "open_date", "close_date", "buy_price", "sell_price",
	"quantity", "pnl", "pnl_percent", "notes",
}

// WriteClosedTrades writes the closed trades among the given slice as
// CSV, header first, preserving the order it was given. Open positions
// are skipped.
func WriteClosedTrades(w io.Writer, trades []models.Trade) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range trades {
		if !t.IsClosed() {
			continue
		}
		record := []string{
			t.Symbol,
			t.OpenDate.String(),
			t.CloseDate.String(),
			t.BuyPrice.String(),
			t.SellPrice.String(),
			strconv.FormatInt(t.Quantity, 10),
			t.PnL.String(),
			t.PnLPercent.String(),
			t.Notes,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
