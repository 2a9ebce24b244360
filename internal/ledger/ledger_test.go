package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/breadwinner/stock-tracer/internal/models"
	"github.com/breadwinner/stock-tracer/internal/store"
)

func newTestLedger(t *testing.T) (*Ledger, *store.MemoryStore) {
	mem := store.NewMemory()
	return New(mem, "trades", zap.NewNop()), mem
}

func mustOpen(t *testing.T, l *Ledger, symbol, price string, qty int64) models.Trade {
	t.Helper()
	trade, err := l.Open(context.Background(), OpenRequest{
		Symbol:   symbol,
		BuyPrice: decimal.RequireFromString(price),
		Quantity: qty,
	})
	require.NoError(t, err)
	return trade
}

func TestOpenAllocatesMonotonicIDs(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	first := mustOpen(t, l, "AAPL", "100", 1)
	second := mustOpen(t, l, "MSFT", "200", 2)
	third := mustOpen(t, l, "NVDA", "300", 3)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, int64(3), third.ID)

	// A deleted id leaves a gap; it is never handed out again.
	require.NoError(t, l.Delete(ctx, second.ID))
	fourth := mustOpen(t, l, "TSLA", "400", 4)
	assert.Equal(t, int64(4), fourth.ID)
}

func TestOpenNormalizesSymbolAndDefaultsDate(t *testing.T) {
	l, _ := newTestLedger(t)

	trade, err := l.Open(context.Background(), OpenRequest{
		Symbol:   "  aapl ",
		BuyPrice: decimal.NewFromInt(10),
		Quantity: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, "AAPL", trade.Symbol)
	assert.Equal(t, models.Today(), trade.OpenDate)
	assert.Equal(t, models.StatusOpen, trade.Status)
	assert.True(t, trade.SellPrice.IsZero())
	assert.True(t, trade.PnL.IsZero())
	assert.True(t, trade.CloseDate.IsZero())
}

func TestOpenValidation(t *testing.T) {
	testCases := []struct {
		name  string
		req   OpenRequest
		field string
	}{
		{
			name:  "empty symbol",
			req:   OpenRequest{BuyPrice: decimal.NewFromInt(1), Quantity: 1},
			field: "symbol",
		},
		{
			name:  "zero price",
			req:   OpenRequest{Symbol: "AAPL", Quantity: 1},
			field: "buy_price",
		},
		{
			name:  "negative price",
			req:   OpenRequest{Symbol: "AAPL", BuyPrice: decimal.NewFromInt(-5), Quantity: 1},
			field: "buy_price",
		},
		{
			name:  "zero quantity",
			req:   OpenRequest{Symbol: "AAPL", BuyPrice: decimal.NewFromInt(1)},
			field: "quantity",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l, _ := newTestLedger(t)

			_, err := l.Open(context.Background(), tc.req)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
			assert.Equal(t, uint64(0), l.Generation(), "rejected before any store access")
		})
	}
}

func TestCloseComputesPnL(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	opened := mustOpen(t, l, "AAPL", "100", 10)

	closed, err := l.Close(ctx, CloseRequest{
		ID:        opened.ID,
		SellPrice: decimal.NewFromInt(150),
		CloseDate: models.NewDate(2024, time.March, 1),
	})
	require.NoError(t, err)

	assert.True(t, closed.PnL.Equal(decimal.NewFromInt(500)), "pnl = (150-100)*10, got %s", closed.PnL)
	assert.True(t, closed.PnLPercent.Equal(decimal.NewFromInt(50)), "pnl_percent = 500/1000*100, got %s", closed.PnLPercent)
	assert.Equal(t, models.StatusClosed, closed.Status)
	assert.Equal(t, models.NewDate(2024, time.March, 1), closed.CloseDate)
}

func TestCloseZeroCostBasis(t *testing.T) {
	// A zero buy price cannot enter through Open, but normalization of a
	// damaged sheet can produce one. Closing it must not divide by zero.
	l, mem := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, mem.Write(ctx, "trades", models.Columns(), []store.Row{{
		"id": "1", "symbol": "JUNK", "buy_price": "0", "sell_price": "0",
		"quantity": "5", "open_date": "2024-01-01", "close_date": "",
		"pnl": "0", "pnl_percent": "0", "status": "OPEN", "notes": "",
	}}))

	closed, err := l.Close(ctx, CloseRequest{ID: 1, SellPrice: decimal.NewFromInt(3)})
	require.NoError(t, err)

	assert.True(t, closed.PnL.Equal(decimal.NewFromInt(15)))
	assert.True(t, closed.PnLPercent.IsZero(), "degenerate cost basis defines pnl_percent as 0")
}

func TestCloseMissingID(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	mustOpen(t, l, "AAPL", "100", 1)

	_, err := l.Close(ctx, CloseRequest{ID: 99, SellPrice: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrNotFound)

	open, err := l.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1, "failed close must not change state")
}

func TestCloseAlreadyClosedIsRejected(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	opened := mustOpen(t, l, "AAPL", "100", 10)

	first, err := l.Close(ctx, CloseRequest{ID: opened.ID, SellPrice: decimal.NewFromInt(150)})
	require.NoError(t, err)

	// A second close must not re-apply: same id, different price.
	_, err = l.Close(ctx, CloseRequest{ID: opened.ID, SellPrice: decimal.NewFromInt(999)})
	assert.ErrorIs(t, err, ErrAlreadyClosed)

	closed, err := l.ListClosed(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.True(t, closed[0].SellPrice.Equal(first.SellPrice))
	assert.True(t, closed[0].PnL.Equal(first.PnL))
}

func TestCloseAppendsNotes(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	opened, err := l.Open(ctx, OpenRequest{
		Symbol:   "AAPL",
		BuyPrice: decimal.NewFromInt(100),
		Quantity: 1,
		Notes:    "A",
	})
	require.NoError(t, err)

	closed, err := l.Close(ctx, CloseRequest{
		ID:        opened.ID,
		SellPrice: decimal.NewFromInt(110),
		Notes:     "B",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(closed.Notes, "A"), "original note must survive verbatim as prefix")
	assert.Contains(t, closed.Notes, "B")
	assert.Equal(t, "A | close note: B", closed.Notes)
}

func TestCloseWithoutPriorNotes(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	opened := mustOpen(t, l, "AAPL", "100", 1)

	closed, err := l.Close(ctx, CloseRequest{
		ID:        opened.ID,
		SellPrice: decimal.NewFromInt(110),
		Notes:     "sold on strength",
	})
	require.NoError(t, err)
	assert.Equal(t, "sold on strength", closed.Notes)
}

func TestDeleteIsIdempotent(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	mustOpen(t, l, "AAPL", "100", 1)
	genBefore := l.Generation()

	require.NoError(t, l.Delete(ctx, 42))

	open, err := l.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)
	assert.Equal(t, genBefore, l.Generation(), "a no-op delete writes nothing")
}

func TestListClosedOrdersByCloseDateDescending(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	dates := []models.Date{
		models.NewDate(2024, time.February, 1),
		models.NewDate(2024, time.March, 1),
		models.NewDate(2024, time.January, 1),
	}
	for i, d := range dates {
		opened := mustOpen(t, l, "AAPL", "100", 1)
		_, err := l.Close(ctx, CloseRequest{
			ID:        opened.ID,
			SellPrice: decimal.NewFromInt(int64(110 + i)),
			CloseDate: d,
		})
		require.NoError(t, err)
	}

	closed, err := l.ListClosed(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 3)
	assert.Equal(t, models.NewDate(2024, time.March, 1), closed[0].CloseDate)
	assert.Equal(t, models.NewDate(2024, time.February, 1), closed[1].CloseDate)
	assert.Equal(t, models.NewDate(2024, time.January, 1), closed[2].CloseDate)
}

func TestListClosedTiesKeepStorageOrder(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	sameDay := models.NewDate(2024, time.June, 1)
	a := mustOpen(t, l, "AAA", "10", 1)
	b := mustOpen(t, l, "BBB", "10", 1)

	for _, id := range []int64{a.ID, b.ID} {
		_, err := l.Close(ctx, CloseRequest{ID: id, SellPrice: decimal.NewFromInt(11), CloseDate: sameDay})
		require.NoError(t, err)
	}

	closed, err := l.ListClosed(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 2)
	assert.Equal(t, "AAA", closed[0].Symbol)
	assert.Equal(t, "BBB", closed[1].Symbol)
}

func TestRoundTripThroughColdCache(t *testing.T) {
	mem := store.NewMemory()
	first := New(mem, "trades", zap.NewNop())
	ctx := context.Background()

	opened, err := first.Open(ctx, OpenRequest{
		Symbol:   "AAPL",
		BuyPrice: decimal.RequireFromString("100.50"),
		Quantity: 10,
		OpenDate: models.NewDate(2024, time.January, 2),
		Notes:    "starter",
	})
	require.NoError(t, err)
	_, err = first.Close(ctx, CloseRequest{
		ID:        opened.ID,
		SellPrice: decimal.RequireFromString("120.25"),
		CloseDate: models.NewDate(2024, time.February, 3),
		Notes:     "done",
	})
	require.NoError(t, err)
	mustOpen(t, first, "MSFT", "300", 5)

	// A fresh ledger over the same store sees identical logical rows.
	second := New(mem, "trades", zap.NewNop())
	want, err := first.All(ctx)
	require.NoError(t, err)
	got, err := second.All(ctx)
	require.NoError(t, err)

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Symbol, got[i].Symbol)
		assert.True(t, want[i].BuyPrice.Equal(got[i].BuyPrice))
		assert.True(t, want[i].SellPrice.Equal(got[i].SellPrice))
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
		assert.Equal(t, want[i].OpenDate, got[i].OpenDate)
		assert.Equal(t, want[i].CloseDate, got[i].CloseDate)
		assert.True(t, want[i].PnL.Equal(got[i].PnL))
		assert.True(t, want[i].PnLPercent.Equal(got[i].PnLPercent))
		assert.Equal(t, want[i].Status, got[i].Status)
		assert.Equal(t, want[i].Notes, got[i].Notes)
	}
}

func TestMalformedTableIsReinitialized(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	// Wrong header, garbage rows.
	require.NoError(t, mem.Write(ctx, "trades", []string{"foo", "bar"}, []store.Row{{"foo": "1"}}))

	l := New(mem, "trades", zap.NewNop())
	open, err := l.ListOpen(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	columns, rows, err := mem.Read(ctx, "trades")
	require.NoError(t, err)
	assert.Equal(t, models.Columns(), columns, "canonical shape persisted back")
	assert.Empty(t, rows)
}

func TestCacheServesReadsAfterWrite(t *testing.T) {
	mem := store.NewMemory()
	counting := &countingStore{TableStore: mem}
	l := New(counting, "trades", zap.NewNop())
	ctx := context.Background()

	mustOpen(t, l, "AAPL", "100", 1)
	readsAfterOpen := counting.reads

	// Every subsequent query is served from the refreshed cache.
	_, err := l.ListOpen(ctx)
	require.NoError(t, err)
	_, err = l.ListClosed(ctx)
	require.NoError(t, err)
	assert.Equal(t, readsAfterOpen, counting.reads)

	// A mutation refreshes synchronously: generation moves, reads go up.
	genBefore := l.Generation()
	mustOpen(t, l, "MSFT", "200", 2)
	assert.Greater(t, l.Generation(), genBefore)
	assert.Greater(t, counting.reads, readsAfterOpen)
}

func TestExternalEditInvisibleUntilRefresh(t *testing.T) {
	// Last-writer-wins by design: edits made behind the cache's back are
	// not observed until the next mutation refreshes it.
	mem := store.NewMemory()
	l := New(mem, "trades", zap.NewNop())
	ctx := context.Background()

	mustOpen(t, l, "AAPL", "100", 1)

	columns, rows, err := mem.Read(ctx, "trades")
	require.NoError(t, err)
	rows[0]["symbol"] = "HACK"
	require.NoError(t, mem.Write(ctx, "trades", columns, rows))

	open, err := l.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "AAPL", open[0].Symbol)
}

// countingStore counts reads and writes passing through to the wrapped
// store.
type countingStore struct {
	store.TableStore
	reads  int
	writes int
}

func (c *countingStore) Read(ctx context.Context, table string) ([]string, []store.Row, error) {
	c.reads++
	return c.TableStore.Read(ctx, table)
}

func (c *countingStore) Write(ctx context.Context, table string, columns []string, rows []store.Row) error {
	c.writes++
	return c.TableStore.Write(ctx, table, columns, rows)
}

func TestStoreWriteFailureAborts(t *testing.T) {
	mem := store.NewMemory()
	failing := &failingStore{TableStore: mem}
	l := New(failing, "trades", zap.NewNop())
	ctx := context.Background()

	mustOpen(t, l, "AAPL", "100", 1)

	failing.failWrites = true
	_, err := l.Open(ctx, OpenRequest{
		Symbol:   "MSFT",
		BuyPrice: decimal.NewFromInt(200),
		Quantity: 2,
	})
	require.Error(t, err)

	var ioErr *store.IOError
	assert.ErrorAs(t, err, &ioErr)

	// No partial write: the still-valid cache reflects the old table.
	open, listErr := l.ListOpen(ctx)
	require.NoError(t, listErr)
	require.Len(t, open, 1)
	assert.Equal(t, "AAPL", open[0].Symbol)
}

func TestReadbackFailureDropsCache(t *testing.T) {
	mem := store.NewMemory()
	failing := &failingStore{TableStore: mem}
	l := New(failing, "trades", zap.NewNop())
	ctx := context.Background()

	// The write lands, the synchronous readback fails.
	failing.failReadsAfter = 1 // initial load passes, the refresh read fails
	_, err := l.Open(ctx, OpenRequest{
		Symbol:   "AAPL",
		BuyPrice: decimal.NewFromInt(100),
		Quantity: 1,
	})
	require.Error(t, err)

	// Next read retries the store instead of serving the stale table.
	failing.failReadsAfter = 0
	open, err := l.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1, "the write itself persisted")
}

// failingStore fails writes, or reads after a countdown, for error-path
// testing.
type failingStore struct {
	store.TableStore
	failWrites     bool
	failReadsAfter int
	reads          int
}

func (f *failingStore) Read(ctx context.Context, table string) ([]string, []store.Row, error) {
	f.reads++
	if f.failReadsAfter > 0 && f.reads > f.failReadsAfter {
		return nil, nil, &store.IOError{Op: "read", Table: table, Err: errors.New("injected")}
	}
	return f.TableStore.Read(ctx, table)
}

func (f *failingStore) Write(ctx context.Context, table string, columns []string, rows []store.Row) error {
	if f.failWrites {
		return &store.IOError{Op: "write", Table: table, Err: errors.New("injected")}
	}
	return f.TableStore.Write(ctx, table, columns, rows)
}
