// Package ratelimit guards a host's per-connection send rate. Each
// connection gets its own token bucket; an abusive or runaway peer
// never affects anyone else's budget.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limits describes a token bucket's sustained rate and burst capacity.
type Limits struct {
	PerSecond float64
	Burst     int
}

// PerConnection tracks one rate.Limiter per connection, keyed by an
// opaque owner ID (ConnectionToken.OwnerID). Entries are created
// lazily on first use and must be cleaned up by the caller on
// disconnect via Remove.
type PerConnection struct {
	limits Limits

	mu       sync.Mutex
	limiters map[uint64]*rate.Limiter
}

// New builds a PerConnection limiter pool with the given per-connection
// limits.
func New(limits Limits) *PerConnection {
	return &PerConnection{
		limits:   limits,
		limiters: make(map[uint64]*rate.Limiter),
	}
}

// Allow reports whether ownerID may send a frame right now, consuming
// one token if so. A connection's limiter is created on first call.
func (p *PerConnection) Allow(ownerID uint64) bool {
	return p.limiterFor(ownerID).Allow()
}

// AllowN reports whether ownerID may send n bytes worth of frames
// right now, consuming n tokens if so. Callers that want to rate
// limit by byte volume rather than frame count pass len(payload).
func (p *PerConnection) AllowN(ownerID uint64, n int) bool {
	return p.limiterFor(ownerID).AllowN(time.Now(), n)
}

func (p *PerConnection) limiterFor(ownerID uint64) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	lim, ok := p.limiters[ownerID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(p.limits.PerSecond), p.limits.Burst)
		p.limiters[ownerID] = lim
	}
	return lim
}

// Remove drops the limiter state for a connection that has
// disconnected, so its memory does not linger forever.
func (p *PerConnection) Remove(ownerID uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.limiters, ownerID)
}
