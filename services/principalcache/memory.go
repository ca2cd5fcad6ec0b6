package principalcache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/jntm/fundtheme/models"
)

// cacheEntry represents a single cache entry with TTL
type cacheEntry struct {
	userID     int64
	principal  models.Principal
	insertedAt time.Time
	element    *list.Element // For LRU tracking
}

// Memory is an in-process LRU cache with TTL, used when Redis is not configured
type Memory struct {
	mu      sync.Mutex
	entries map[int64]*cacheEntry
	lruList *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	hits    uint64
	misses  uint64
}

// NewMemory creates a Memory cache holding at most maxSize principals for ttl
func NewMemory(maxSize int, ttl time.Duration) *Memory {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Memory{
		entries: make(map[int64]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the cached principal or ErrMiss
func (c *Memory) Get(_ context.Context, userID int64) (*models.Principal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[userID]
	if !exists || c.now().Sub(entry.insertedAt) >= c.ttl {
		c.misses++
		if exists {
			c.removeEntry(userID)
		}
		return nil, ErrMiss
	}

	c.lruList.MoveToFront(entry.element)
	c.hits++

	p := entry.principal
	return &p, nil
}

// Set stores an active principal; inactive ones evict any existing entry
func (c *Memory) Set(_ context.Context, principal *models.Principal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if principal == nil {
		return nil
	}
	if !principal.Active {
		c.removeEntry(principal.ID)
		return nil
	}

	if entry, exists := c.entries[principal.ID]; exists {
		entry.principal = *principal
		entry.insertedAt = c.now()
		c.lruList.MoveToFront(entry.element)
		return nil
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{
		userID:     principal.ID,
		principal:  *principal,
		insertedAt: c.now(),
	}
	entry.element = c.lruList.PushFront(principal.ID)
	c.entries[principal.ID] = entry
	return nil
}

// Delete removes the entry for userID
func (c *Memory) Delete(_ context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeEntry(userID)
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lruList.Len()
}

// HitRate returns hits / (hits + misses)
func (c *Memory) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// CleanupExpired removes all expired entries and returns how many were removed
func (c *Memory) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := c.now()
	for userID, entry := range c.entries {
		if now.Sub(entry.insertedAt) >= c.ttl {
			c.removeEntry(userID)
			removed++
		}
	}
	return removed
}

// StartCleanupWorker periodically drops expired entries until ctx is done
func (c *Memory) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-ctx.Done():
			return
		}
	}
}

// removeEntry must be called with lock held
func (c *Memory) removeEntry(userID int64) {
	if entry, exists := c.entries[userID]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, userID)
	}
}

// evictLRU must be called with lock held
func (c *Memory) evictLRU() {
	back := c.lruList.Back()
	if back == nil {
		return
	}
	userID := back.Value.(int64)
	c.lruList.Remove(back)
	delete(c.entries, userID)
}
