// Package usage implements Usage & Cache Accounting: per-chunk token
// tracking, the cache create/read phase machine, and the persisted
// per-listener SessionTokenTotals file.
package usage

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// CacheEntry is a ConversationCacheState record (spec.md §3).
type CacheEntry struct {
	CacheableTokenEstimate int
	LastSeenEpoch          int64
	TurnCount              int
}

// hotWindow is how fresh a cache entry must be to count as "read" instead
// of "create" (spec.md §4.4).
const hotWindow = 5 * time.Minute

// evictionTTL is how long an idle entry survives before the LRU's own
// sweep drops it, standing in for spec.md's "periodic sweep removes
// entries older than 10 minutes" — the library's built-in TTL eviction
// does this for free instead of a hand-rolled ticker.
const evictionTTL = 10 * time.Minute

// invalidationDelta is the tolerance spec.md allows before a changed
// cacheable-token count is treated as invalidation ("differs from stored
// by more than a small delta").
const invalidationDelta = 8

// Cache is the process-wide ConversationCacheState mapping.
type Cache struct {
	lru *lru.LRU[string, *CacheEntry]
}

// NewCache builds the cache with a generous size bound so an unbounded
// number of distinct conversations can't grow memory without limit, and
// the library's TTL eviction standing in for the spec's periodic sweep.
func NewCache() *Cache {
	return &Cache{lru: lru.NewLRU[string, *CacheEntry](4096, nil, evictionTTL)}
}

// Key derives the conversation key from spec.md §4.4: model plus either an
// externally provided session id or a hash of the first user message.
func Key(model, sessionID, firstUserMessage string) string {
	if sessionID != "" {
		return model + "|" + sessionID
	}
	h := sha256.Sum256([]byte(truncate(firstUserMessage, 50)))
	return model + "|" + hex.EncodeToString(h[:])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Phase is the result of Lookup: which accounting phase a turn falls into
// and what usage fields to set.
type Phase struct {
	Create              bool
	CacheCreationTokens int
	CacheReadTokens     int
}

// Lookup implements the cache state machine (spec.md §4.4): absent or
// stale key → create; present and fresh → read, unless the cacheable
// token estimate drifted enough to count as invalidation.
func (c *Cache) Lookup(key string, cacheableTokens int, now time.Time) Phase {
	nowEpoch := now.Unix()
	entry, ok := c.lru.Get(key)

	stale := !ok || nowEpoch-entry.LastSeenEpoch > int64(hotWindow.Seconds())
	invalidated := ok && !stale && absInt(entry.CacheableTokenEstimate-cacheableTokens) > invalidationDelta

	if stale || invalidated {
		c.lru.Add(key, &CacheEntry{
			CacheableTokenEstimate: cacheableTokens,
			LastSeenEpoch:          nowEpoch,
			TurnCount:              1,
		})
		return Phase{Create: true, CacheCreationTokens: cacheableTokens}
	}

	entry.LastSeenEpoch = nowEpoch
	entry.TurnCount++
	c.lru.Add(key, entry)
	return Phase{Create: false, CacheReadTokens: cacheableTokens}
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
