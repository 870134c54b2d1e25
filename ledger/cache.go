package ledger

import (
	"sync"
	"time"

	"credanalyzer/models"
)

type cacheEntry struct {
	sub       models.Subscription
	fetchedAt time.Time
}

// stateCache guarda a última leitura bem-sucedida por conta.
// Serve o caminho de leitura dentro da janela de staleness e funciona como
// fallback quando o store está transitoriamente indisponível.
type stateCache struct {
	mu    sync.RWMutex
	items map[int64]cacheEntry
}

func newStateCache() *stateCache {
	return &stateCache{items: make(map[int64]cacheEntry)}
}

func (c *stateCache) get(accountID int64) (cacheEntry, bool) {
	c.mu.RLock()
	entry, ok := c.items[accountID]
	c.mu.RUnlock()
	return entry, ok
}

func (c *stateCache) set(accountID int64, sub models.Subscription) {
	c.mu.Lock()
	c.items[accountID] = cacheEntry{sub: sub, fetchedAt: time.Now()}
	c.mu.Unlock()
}

func (c *stateCache) delete(accountID int64) {
	c.mu.Lock()
	delete(c.items, accountID)
	c.mu.Unlock()
}
