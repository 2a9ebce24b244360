package ledger

import (
	"sync"

	"github.com/breadwinner/stock-tracer/internal/models"
)

// tableCache holds the last-loaded table. Entries have no expiry: they
// stay valid until the next write refreshes them, and the generation
// counter makes every refresh observable.
type tableCache struct {
	mu     sync.RWMutex
	primed bool
	trades []models.Trade
	gen    uint64
}

func newTableCache() *tableCache {
	return &tableCache{}
}

// get returns a copy of the cached table, or false when the cache has
// not been primed since construction or the last invalidation.
func (c *tableCache) get() ([]models.Trade, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.primed {
		return nil, false
	}
	out := make([]models.Trade, len(c.trades))
	copy(out, c.trades)
	return out, true
}

// put stores a copy of the table and increments the generation.
func (c *tableCache) put(trades []models.Trade) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.trades = make([]models.Trade, len(trades))
	copy(c.trades, trades)
	c.primed = true
	c.gen++
}

// invalidate drops the cached table so the next read goes to the store.
func (c *tableCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.primed = false
	c.trades = nil
}

func (c *tableCache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}
