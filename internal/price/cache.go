package price

import (
	"sync"
	"time"
)

const cacheTTL = 30 * time.Second

type tableCache struct {
	mu        sync.RWMutex
	table     Table
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

func newTableCache(ttl time.Duration) *tableCache {
	return &tableCache{ttl: ttl, now: time.Now}
}

func (c *tableCache) get() (Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.table == nil || c.now().After(c.expiresAt) {
		return nil, false
	}
	return c.table, true
}

func (c *tableCache) set(t Table) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.table = t
	c.expiresAt = c.now().Add(c.ttl)
}

func (c *tableCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = nil
}
