// Package ledger owns the trade-record lifecycle: opening, closing and
// deleting positions, id allocation and P&L computation. Every mutation
// is one read-entire-table, mutate-in-memory, write-entire-table cycle
// against the backing store, which has no row-level update primitive.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/breadwinner/stock-tracer/internal/models"
	"github.com/breadwinner/stock-tracer/internal/schema"
	"github.com/breadwinner/stock-tracer/internal/store"
)

// closeNoteSeparator labels sell-time notes appended to the original
// entry, so neither side is ever overwritten.
const closeNoteSeparator = " | close note: "

var oneHundred = decimal.NewFromInt(100)

// Ledger is the sole writer of the trade table.
type Ledger struct {
	store store.TableStore
	table string
	log   *zap.Logger

	// mu serializes the read-modify-write cycle. The whole-table
	// rewrite cannot tolerate interleaved mutations in one process;
	// concurrent edits from other processes remain last-writer-wins.
	mu    sync.Mutex
	cache *tableCache
}

// New creates a Ledger over the given table.
func New(ts store.TableStore, table string, log *zap.Logger) *Ledger {
	return &Ledger{
		store: ts,
		table: table,
		log:   log,
		cache: newTableCache(),
	}
}

// OpenRequest carries the fields of a buy event.
type OpenRequest struct {
	Symbol   string
	BuyPrice decimal.Decimal
	Quantity int64
	OpenDate models.Date
	Notes    string
}

func (r OpenRequest) validate() error {
	if strings.TrimSpace(r.Symbol) == "" {
		return &ValidationError{Field: "symbol", Reason: "must not be empty"}
	}
	if !r.BuyPrice.IsPositive() {
		return &ValidationError{Field: "buy_price", Reason: "must be positive"}
	}
	if r.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	return nil
}

// CloseRequest carries the fields of a sell event.
type CloseRequest struct {
	ID        int64
	SellPrice decimal.Decimal
	CloseDate models.Date
	Notes     string
}

func (r CloseRequest) validate() error {
	if r.ID <= 0 {
		return &ValidationError{Field: "id", Reason: "must be positive"}
	}
	if r.SellPrice.IsNegative() {
		return &ValidationError{Field: "sell_price", Reason: "must not be negative"}
	}
	return nil
}

// Open records a new position. The id is allocated as max(existing)+1,
// the symbol is uppercased, and a zero open date defaults to today.
func (l *Ledger) Open(ctx context.Context, req OpenRequest) (models.Trade, error) {
	if err := req.validate(); err != nil {
		return models.Trade{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	trades, err := l.load(ctx)
	if err != nil {
		return models.Trade{}, err
	}

	trade := models.Trade{
		ID:         nextID(trades),
		Symbol:     strings.ToUpper(strings.TrimSpace(req.Symbol)),
		BuyPrice:   req.BuyPrice,
		SellPrice:  decimal.Zero,
		Quantity:   req.Quantity,
		OpenDate:   req.OpenDate,
		PnL:        decimal.Zero,
		PnLPercent: decimal.Zero,
		Status:     models.StatusOpen,
		Notes:      req.Notes,
	}
	if trade.OpenDate.IsZero() {
		trade.OpenDate = models.Today()
	}

	if err := l.persist(ctx, append(trades, trade)); err != nil {
		return models.Trade{}, err
	}

	l.log.Info("Opened position",
		zap.Int64("id", trade.ID),
		zap.String("symbol", trade.Symbol),
		zap.String("buy_price", trade.BuyPrice.String()),
		zap.Int64("quantity", trade.Quantity),
	)
	return trade, nil
}

// Close sells an open position: it computes realized P&L, appends the
// sell note and flips the status. Closing a missing id fails with
// ErrNotFound, closing a closed one with ErrAlreadyClosed; neither
// changes any state.
func (l *Ledger) Close(ctx context.Context, req CloseRequest) (models.Trade, error) {
	if err := req.validate(); err != nil {
		return models.Trade{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	trades, err := l.load(ctx)
	if err != nil {
		return models.Trade{}, err
	}

	idx := -1
	for i := range trades {
		if trades[i].ID == req.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Trade{}, fmt.Errorf("close trade %d: %w", req.ID, ErrNotFound)
	}

	trade := trades[idx]
	if trade.Status != models.StatusOpen {
		return models.Trade{}, fmt.Errorf("close trade %d: %w", req.ID, ErrAlreadyClosed)
	}

	cost := trade.CostBasis()
	pnl := req.SellPrice.Mul(decimal.NewFromInt(trade.Quantity)).Sub(cost)
	pnlPercent := decimal.Zero
	if !cost.IsZero() {
		pnlPercent = pnl.Div(cost).Mul(oneHundred)
	}

	trade.SellPrice = req.SellPrice
	trade.CloseDate = req.CloseDate
	if trade.CloseDate.IsZero() {
		trade.CloseDate = models.Today()
	}
	trade.PnL = pnl
	trade.PnLPercent = pnlPercent
	trade.Status = models.StatusClosed
	trade.Notes = appendNote(trade.Notes, req.Notes)
	trades[idx] = trade

	if err := l.persist(ctx, trades); err != nil {
		return models.Trade{}, err
	}

	l.log.Info("Closed position",
		zap.Int64("id", trade.ID),
		zap.String("symbol", trade.Symbol),
		zap.String("pnl", trade.PnL.String()),
	)
	return trade, nil
}

// Delete removes a trade permanently. Deleting an id that does not
// exist is a no-op: the table is left untouched.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	trades, err := l.load(ctx)
	if err != nil {
		return err
	}

	remaining := make([]models.Trade, 0, len(trades))
	removed := false
	for _, t := range trades {
		if t.ID == id {
			removed = true
			continue
		}
		remaining = append(remaining, t)
	}
	if !removed {
		l.log.Debug("Delete of unknown trade is a no-op", zap.Int64("id", id))
		return nil
	}

	if err := l.persist(ctx, remaining); err != nil {
		return err
	}

	l.log.Info("Deleted trade", zap.Int64("id", id))
	return nil
}

// ListOpen returns open positions in storage order.
func (l *Ledger) ListOpen(ctx context.Context) ([]models.Trade, error) {
	trades, err := l.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	open := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.IsOpen() {
			open = append(open, t)
		}
	}
	return open, nil
}

// ListClosed returns closed trades, most recently closed first. Ties on
// close date keep storage order.
func (l *Ledger) ListClosed(ctx context.Context) ([]models.Trade, error) {
	trades, err := l.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	closed := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() {
			closed = append(closed, t)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].CloseDate.After(closed[j].CloseDate)
	})
	return closed, nil
}

// All returns every trade in storage order.
func (l *Ledger) All(ctx context.Context) ([]models.Trade, error) {
	return l.snapshot(ctx)
}

// Generation returns the cache generation, incremented on every
// refresh. Two equal generations bracket a span with no table reloads.
func (l *Ledger) Generation() uint64 {
	return l.cache.generation()
}

func (l *Ledger) snapshot(ctx context.Context) ([]models.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

// load returns the current table, from cache when primed. A cache miss
// reads through the store and primes the cache.
func (l *Ledger) load(ctx context.Context) ([]models.Trade, error) {
	if trades, ok := l.cache.get(); ok {
		return trades, nil
	}

	trades, err := l.loadFromStore(ctx)
	if err != nil {
		return nil, err
	}
	l.cache.put(trades)
	return trades, nil
}

// loadFromStore reads and normalizes the table. An empty table or one
// missing canonical columns is reinitialized and persisted back
// immediately, so later reads never see a malformed shape.
func (l *Ledger) loadFromStore(ctx context.Context) ([]models.Trade, error) {
	columns, rows, err := l.store.Read(ctx, l.table)
	if err != nil {
		return nil, err
	}

	if !schema.Canonical(columns) {
		l.log.Warn("Table shape not canonical, reinitializing", zap.String("table", l.table))
		header, empty := schema.Denormalize(nil)
		if err := l.store.Write(ctx, l.table, header, empty); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return schema.Normalize(rows), nil
}

// persist writes the whole table, then synchronously re-reads it into
// the cache before returning. A read served after any write therefore
// always observes that write.
func (l *Ledger) persist(ctx context.Context, trades []models.Trade) error {
	columns, rows := schema.Denormalize(trades)
	if err := l.store.Write(ctx, l.table, columns, rows); err != nil {
		return err
	}

	refreshed, err := l.loadFromStore(ctx)
	if err != nil {
		// The write landed but the readback did not; drop the stale
		// cache so the next read retries the store.
		l.cache.invalidate()
		return err
	}
	l.cache.put(refreshed)
	return nil
}

// nextID allocates max(existing ids)+1, or 1 for an empty table. Ids
// are never reused: deletes leave gaps behind.
func nextID(trades []models.Trade) int64 {
	var max int64
	for _, t := range trades {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

func appendNote(existing, closing string) string {
	if strings.TrimSpace(closing) == "" {
		return existing
	}
	if strings.TrimSpace(existing) == "" {
		return closing
	}
	return existing + closeNoteSeparator + closing
}
