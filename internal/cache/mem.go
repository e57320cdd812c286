package cache

import "sync"

// MemCache is an in-process cache for tests and one-shot commands.
type MemCache struct {
	mu     sync.Mutex
	n      uint64
	set    bool
	writes int
}

func (c *MemCache) ReadCount() (uint64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n, c.set, nil
}

func (c *MemCache) WriteCount(n uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n, c.set = n, true
	c.writes++
	return nil
}

// Writes reports how many times WriteCount was called.
func (c *MemCache) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func (c *MemCache) Close() error { return nil }
