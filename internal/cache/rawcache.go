// Package cache holds raw per-broker file content under a bounded
// byte budget with TTL expiry, fronting the object store for the
// aggregation passes that re-read the same files many times per run.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"brokerflow/internal/dates"
	apperrors "brokerflow/internal/errors"
	"brokerflow/internal/filters"
	"brokerflow/internal/storage"
)

// evictionTarget is the fraction of capacity eviction drains to before
// admitting a new entry.
const evictionTarget = 0.9

type entry struct {
	content   string
	size      int64
	fetchedAt time.Time
	key       string
	date      string
}

// Stats is a point-in-time snapshot of the cache counters.
type Stats struct {
	Hits          int64
	Misses        int64
	Evictions     int64
	ResidentBytes int64
	Entries       int
}

// RawFileCache caches raw broker transaction file content keyed by the
// canonical object key. Admission evicts oldest-fetched entries first
// until resident size fits under the eviction target; TTL-expired
// entries are misses even while still resident.
type RawFileCache struct {
	store    storage.ObjectStore
	capacity int64
	ttl      time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	size    int64
	stats   Stats

	now func() time.Time
}

// New creates a cache over the given store with a byte capacity and
// entry TTL.
func New(store storage.ObjectStore, capacityBytes int64, ttl time.Duration) *RawFileCache {
	return &RawFileCache{
		store:    store,
		capacity: capacityBytes,
		ttl:      ttl,
		entries:  make(map[string]*entry),
		now:      time.Now,
	}
}

// Get returns the raw content of one broker's file for the given
// filter combination and date. The date accepts both the 4-digit-year
// and 2-digit-year encodings; both resolve to the same cache slot.
// A file missing under both encodings is a NOT_FOUND, never a failure.
func (c *RawFileCache) Get(ctx context.Context, combo filters.Combination, brokerCode, date string) (string, error) {
	canonical, err := dates.Normalize(date)
	if err != nil {
		return "", err
	}

	slot := combo.TransactionKey(canonical, brokerCode)

	c.mu.Lock()
	if e, ok := c.entries[slot]; ok {
		if c.now().Sub(e.fetchedAt) < c.ttl {
			e.fetchedAt = c.now()
			c.stats.Hits++
			hitsTotal.Inc()
			content := e.content
			c.mu.Unlock()
			return content, nil
		}
		// Expired: drop now, refetch below.
		c.removeLocked(slot)
	}
	c.stats.Misses++
	missesTotal.Inc()
	c.mu.Unlock()

	content, err := c.fetch(ctx, combo, brokerCode, canonical)
	if err != nil {
		return "", err
	}

	c.admit(slot, canonical, content)
	return content, nil
}

// fetch tries the canonical-encoding key first, then the alternate
// 2-digit-year key referencing the same object.
func (c *RawFileCache) fetch(ctx context.Context, combo filters.Combination, brokerCode, canonical string) (string, error) {
	content, err := c.store.GetText(ctx, combo.TransactionKey(canonical, brokerCode))
	if err == nil {
		return content, nil
	}
	if !apperrors.IsNotFound(err) {
		return "", err
	}

	alt := dates.Alternate(canonical)
	if alt == "" {
		return "", err
	}

	content, altErr := c.store.GetText(ctx, combo.TransactionKey(alt, brokerCode))
	if altErr == nil {
		return content, nil
	}
	if apperrors.IsNotFound(altErr) {
		return "", apperrors.NewNotFoundError(
			fmt.Sprintf("broker %s has no file for %s under either date encoding", brokerCode, canonical), nil)
	}
	return "", altErr
}

// admit inserts content under slot, evicting oldest-fetched entries
// until the resident size fits. The entry being inserted is never a
// candidate for its own eviction pass.
func (c *RawFileCache) admit(slot, date, content string) {
	size := int64(len(content))

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.entries[slot]; ok {
		c.size -= prev.size
		delete(c.entries, slot)
	}

	if c.size+size > c.capacity {
		target := int64(float64(c.capacity) * evictionTarget)
		for c.size > target && len(c.entries) > 0 {
			c.evictOldestLocked()
		}
	}

	c.entries[slot] = &entry{
		content:   content,
		size:      size,
		fetchedAt: c.now(),
		key:       slot,
		date:      date,
	}
	c.size += size
	residentBytes.Set(float64(c.size))
}

// evictOldestLocked removes the entry with the oldest fetch timestamp.
func (c *RawFileCache) evictOldestLocked() {
	var oldest *entry
	for _, e := range c.entries {
		if oldest == nil || e.fetchedAt.Before(oldest.fetchedAt) {
			oldest = e
		}
	}
	if oldest != nil {
		c.removeLocked(oldest.key)
		c.stats.Evictions++
		evictionsTotal.Inc()
	}
}

func (c *RawFileCache) removeLocked(slot string) {
	if e, ok := c.entries[slot]; ok {
		c.size -= e.size
		delete(c.entries, slot)
		residentBytes.Set(float64(c.size))
	}
}

// ClearDate drops every resident entry for one processing date, used
// to bound peak memory once a date's processing completes. The date
// accepts both encodings.
func (c *RawFileCache) ClearDate(date string) {
	canonical, err := dates.Normalize(date)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for slot, e := range c.entries {
		if e.date == canonical {
			c.removeLocked(slot)
		}
	}
}

// Clear drops every resident entry.
func (c *RawFileCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.size = 0
	residentBytes.Set(0)
}

// Stats returns a snapshot of the diagnostic counters.
func (c *RawFileCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.ResidentBytes = c.size
	s.Entries = len(c.entries)
	return s
}

// String renders the stats for log lines.
func (s Stats) String() string {
	return fmt.Sprintf("hits=%d misses=%d evictions=%d resident=%dB entries=%d",
		s.Hits, s.Misses, s.Evictions, s.ResidentBytes, s.Entries)
}
