package ledgerstub

import (
	"sync"
	"time"
)

type IdempotencyEntry struct {
	Key          string
	UserID       int64
	RequestHash  string
	StatusCode   int
	ResponseBody []byte
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// InFlight reports whether the reserving request has not finished yet.
func (e *IdempotencyEntry) InFlight() bool { return e.StatusCode == 0 }

type idempotencyKey struct {
	key    string
	userID int64
}

// IdempotencyCache keeps mutation responses per (key, user) until they
// expire. A key is reserved before the request runs, so of two concurrent
// requests with the same key only one reaches the ledger.
type IdempotencyCache struct {
	now func() time.Time

	mu      sync.Mutex
	entries map[idempotencyKey]*IdempotencyEntry
}

func NewIdempotencyCache() *IdempotencyCache {
	return &IdempotencyCache{
		now:     time.Now,
		entries: make(map[idempotencyKey]*IdempotencyEntry),
	}
}

// Reserve claims key for userID. When an unexpired entry already holds the
// key, a copy of it is returned and nothing is claimed.
func (c *IdempotencyCache) Reserve(key string, userID int64, requestHash string, ttl time.Duration) (*IdempotencyEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := idempotencyKey{key, userID}
	now := c.now()
	if e, ok := c.entries[k]; ok && e.ExpiresAt.After(now) {
		out := *e
		return &out, false
	}
	c.entries[k] = &IdempotencyEntry{
		Key:         key,
		UserID:      userID,
		RequestHash: requestHash,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	return nil, true
}

// Complete stores the response for a reservation. It is a no-op when the
// reservation is gone.
func (c *IdempotencyCache) Complete(key string, userID int64, status int, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[idempotencyKey{key, userID}]
	if !ok || !e.InFlight() {
		return
	}
	e.StatusCode = status
	e.ResponseBody = body
}

// Release drops an unfinished reservation so the request can be retried.
func (c *IdempotencyCache) Release(key string, userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := idempotencyKey{key, userID}
	if e, ok := c.entries[k]; ok && e.InFlight() {
		delete(c.entries, k)
	}
}

// CleanExpired drops expired entries and reports how many were removed.
func (c *IdempotencyCache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.entries {
		if !e.ExpiresAt.After(now) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}
