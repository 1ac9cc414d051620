package routing

import (
	"fmt"
	"sync"
	"time"

	"github.com/example/share-auto/internal/models"
)

// planCache is a tiny in-memory cache for route plans keyed by coords.
type planCache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	pts []models.Point
	ts  time.Time
}

func newPlanCache(ttl time.Duration) *planCache {
	return &planCache{store: make(map[string]cacheEntry), ttl: ttl}
}

func keyFor(a, b models.Point) string {
	return fmtPoint(a) + "->" + fmtPoint(b)
}

func fmtPoint(p models.Point) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

func (c *planCache) get(a, b models.Point) ([]models.Point, bool) {
	k := keyFor(a, b)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return nil, false
	}
	return e.pts, true
}

func (c *planCache) set(a, b models.Point, pts []models.Point) {
	k := keyFor(a, b)
	c.mu.Lock()
	c.store[k] = cacheEntry{pts: pts, ts: time.Now()}
	c.mu.Unlock()
}
