package votes

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Oracle answers whether a user currently belongs to a channel. Lookups hit
// an external directory and may be slow, rate-limited, or fail with a
// classified OracleError.
type Oracle interface {
	IsMember(ctx context.Context, channelId string, userId string) (bool, error)
}

type memberKey struct {
	ChannelId string
	UserId    string
}

type memberEntry struct {
	isMember   bool
	observedAt time.Time
}

// Cache holds time-bounded membership observations so repeated clicks do
// not hammer the directory.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   clockwork.Clock
	entries map[memberKey]memberEntry
}

func NewCache(ttl time.Duration, clock clockwork.Clock) *Cache {
	return &Cache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[memberKey]memberEntry),
	}
}

// Get returns the cached membership flag. fresh is false when the entry is
// absent or older than the TTL; the caller must then consult the oracle.
func (c *Cache) Get(channelId, userId string) (isMember bool, fresh bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[memberKey{channelId, userId}]
	if !ok {
		return false, false
	}
	if c.clock.Now().Sub(entry.observedAt) >= c.ttl {
		return entry.isMember, false
	}
	return entry.isMember, true
}

// Put overwrites unconditionally; last write wins.
func (c *Cache) Put(channelId, userId string, isMember bool, observedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[memberKey{channelId, userId}] = memberEntry{isMember: isMember, observedAt: observedAt}
}

// Invalidate drops the entry so the next Get forces a fresh oracle call.
func (c *Cache) Invalidate(channelId, userId string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, memberKey{channelId, userId})
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Sweep removes entries older than maxAge and reports how many went. Keys
// are snapshotted first so the lock is not held across the whole pass while
// votes keep arriving.
func (c *Cache) Sweep(maxAge time.Duration) int {
	c.mu.Lock()
	keys := make([]memberKey, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	cleaned := 0
	for _, k := range keys {
		c.mu.Lock()
		if entry, ok := c.entries[k]; ok && c.clock.Now().Sub(entry.observedAt) > maxAge {
			delete(c.entries, k)
			cleaned++
		}
		c.mu.Unlock()
	}
	return cleaned
}

// Checker combines the cache and the oracle into the membership
// determination the ledger needs. Transient oracle failures are retried
// with doubling backoff; permission and unknown-subject failures fail
// closed immediately but keep their classification so the operator surface
// can tell a misconfigured bot apart from a non-member.
type Checker struct {
	cache   *Cache
	oracle  Oracle
	retries int
	backoff time.Duration
	timeout time.Duration
	clock   clockwork.Clock
}

func NewChecker(cache *Cache, oracle Oracle, retries int, backoff, timeout time.Duration, clock clockwork.Clock) *Checker {
	return &Checker{
		cache:   cache,
		oracle:  oracle,
		retries: retries,
		backoff: backoff,
		timeout: timeout,
		clock:   clock,
	}
}

// Check answers from the cache when the entry is within TTL, otherwise
// consults the oracle and refills the cache.
func (c *Checker) Check(ctx context.Context, channelId, userId string) (bool, error) {
	if isMember, fresh := c.cache.Get(channelId, userId); fresh {
		return isMember, nil
	}
	return c.lookup(ctx, channelId, userId)
}

// CheckFresh bypasses any cached entry. Used at the moment a vote is
// accepted or a revocation re-check fires, where a stale answer must not
// decide the outcome.
func (c *Checker) CheckFresh(ctx context.Context, channelId, userId string) (bool, error) {
	c.cache.Invalidate(channelId, userId)
	return c.lookup(ctx, channelId, userId)
}

func (c *Checker) lookup(ctx context.Context, channelId, userId string) (bool, error) {
	backoff := c.backoff
	var lastErr error

	for attempt := 0; ; attempt++ {
		isMember, err := c.callOracle(ctx, channelId, userId)
		if err == nil {
			c.cache.Put(channelId, userId, isMember, c.clock.Now())
			return isMember, nil
		}

		oe := asOracleError(err)
		if oe.Kind != KindUnavailable {
			// fail closed, nothing to retry
			return false, oe
		}

		lastErr = oe
		if attempt >= c.retries {
			return false, lastErr
		}

		select {
		case <-c.clock.After(backoff):
		case <-ctx.Done():
			return false, &OracleError{Kind: KindUnavailable, Err: ctx.Err()}
		}
		backoff *= 2
	}
}

func (c *Checker) callOracle(ctx context.Context, channelId, userId string) (bool, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.oracle.IsMember(ctx, channelId, userId)
}

func asOracleError(err error) *OracleError {
	if oe, ok := err.(*OracleError); ok {
		return oe
	}
	return &OracleError{Kind: KindUnavailable, Err: err}
}
