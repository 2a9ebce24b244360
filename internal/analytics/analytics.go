// Package analytics derives display aggregates from the trade table:
// open cost basis, realized P&L summary, the equity curve and the
// per-trade P&L distribution. All functions are pure; they accept any
// slice of trades and filter by status themselves.
package analytics

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/breadwinner/stock-tracer/internal/models"
)

// Summary aggregates realized results over closed trades.
type Summary struct {
	TotalPnL    decimal.Decimal `json:"total_pnl"`
	WinRate     float64         `json:"win_rate"`
	ClosedCount int             `json:"closed_count"`
}

// EquityPoint is one step of the cumulative realized P&L series.
type EquityPoint struct {
	Date       models.Date     `json:"date"`
	PnL        decimal.Decimal `json:"pnl"`
	Cumulative decimal.Decimal `json:"cumulative"`
}

// PnLBar is one bar of the per-trade P&L distribution.
type PnLBar struct {
	Label string          `json:"label"`
	PnL   decimal.Decimal `json:"pnl"`
	Win   bool            `json:"win"`
}

// OpenCostBasis sums buy_price*quantity over open positions.
func OpenCostBasis(trades []models.Trade) decimal.Decimal {
	total := decimal.Zero
	for _, t := range trades {
		if t.IsOpen() {
			total = total.Add(t.CostBasis())
		}
	}
	return total
}

// Summarize totals realized pnl and computes the win rate over closed
// trades. A win is strictly positive pnl; breakeven does not count.
// With no closed trades the win rate is 0.
func Summarize(trades []models.Trade) Summary {
	s := Summary{TotalPnL: decimal.Zero}
	wins := 0
	for _, t := range trades {
		if !t.IsClosed() {
			continue
		}
		s.ClosedCount++
		s.TotalPnL = s.TotalPnL.Add(t.PnL)
		if t.PnL.IsPositive() {
			wins++
		}
	}
	if s.ClosedCount > 0 {
		s.WinRate = float64(wins) / float64(s.ClosedCount) * 100
	}
	return s
}

// EquityCurve returns closed trades ordered by close date ascending with
// a running cumulative pnl, one point per trade. Ties on close date keep
// storage order.
func EquityCurve(trades []models.Trade) []EquityPoint {
	closed := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() {
			closed = append(closed, t)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].CloseDate.Before(closed[j].CloseDate)
	})

	points := make([]EquityPoint, 0, len(closed))
	cumulative := decimal.Zero
	for _, t := range closed {
		cumulative = cumulative.Add(t.PnL)
		points = append(points, EquityPoint{
			Date:       t.CloseDate,
			PnL:        t.PnL,
			Cumulative: cumulative,
		})
	}
	return points
}

// PnLBars returns one bar per closed trade in storage order, never
// aggregated per symbol. The win flag drives bar color and counts
// breakeven as a win, unlike the win rate.
func PnLBars(trades []models.Trade) []PnLBar {
	bars := make([]PnLBar, 0, len(trades))
	for _, t := range trades {
		if !t.IsClosed() {
			continue
		}
		bars = append(bars, PnLBar{
			Label: fmt.Sprintf("%s #%d", t.Symbol, t.ID),
			PnL:   t.PnL,
			Win:   !t.PnL.IsNegative(),
		})
	}
	return bars
}
