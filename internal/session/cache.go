// Package session holds the in-process cache of account snapshots used by the
// authentication gateway.
//
// Entries expire lazily: a lookup that finds an entry older than the TTL drops
// it and reports a miss. There is no background sweep. When the cache is full,
// inserting a new key evicts the entry with the oldest insertion stamp.
package session

import (
	"sync"
	"time"

	"github.com/revmak/marketplace-api/internal/domain"
)

const (
	DefaultTTL        = 15 * time.Minute
	DefaultMaxEntries = 1000
)

// CachedAccount is a point-in-time snapshot of an account.
type CachedAccount struct {
	ID          string
	DisplayName string
	Role        domain.Role
	Active      bool
	InsertedAt  time.Time
}

// Snapshot copies the fields the gateway needs out of a loaded account.
func Snapshot(account *domain.Account) CachedAccount {
	return CachedAccount{
		ID:          account.ID,
		DisplayName: account.Name,
		Role:        account.Role,
		Active:      account.Active,
	}
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache is a bounded TTL store keyed by account id. Safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]CachedAccount
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewCache builds an empty cache. Non-positive bounds fall back to the defaults.
func NewCache(ttl time.Duration, maxEntries int, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &Cache{
		entries:    make(map[string]CachedAccount, maxEntries),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the entry for id. Entries older than the TTL are
// removed and reported as absent.
func (c *Cache) Get(id string) (CachedAccount, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return CachedAccount{}, false
	}
	if c.now().Sub(entry.InsertedAt) > c.ttl {
		delete(c.entries, id)
		return CachedAccount{}, false
	}
	return entry, true
}

// Put inserts or replaces the entry for id, stamped with the current time, and
// returns the stored copy.
func (c *Cache) Put(id string, account CachedAccount) CachedAccount {
	c.mu.Lock()
	defer c.mu.Unlock()

	account.ID = id
	account.InsertedAt = c.now()

	if _, exists := c.entries[id]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[id] = account
	return account
}

// Invalidate removes the entry for id if present.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Len returns the number of stored entries, including ones not yet lazily expired.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func (c *Cache) evictOldestLocked() {
	var (
		oldestID string
		oldestAt time.Time
		found    bool
	)
	for id, entry := range c.entries {
		if !found || entry.InsertedAt.Before(oldestAt) {
			oldestID, oldestAt, found = id, entry.InsertedAt, true
		}
	}
	if found {
		delete(c.entries, oldestID)
	}
}
