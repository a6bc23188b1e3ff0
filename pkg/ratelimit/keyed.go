// Package ratelimit holds the two throttles used by the API: an in-process
// token bucket per key and a redis backed cooldown lock.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter gives every key its own token bucket.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
}

// NewKeyed creates a limiter allowing rps requests per second with the given burst per key.
func NewKeyed(rps float64, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  10 * time.Minute,
	}
}

// Allow reports whether a request for key may proceed now.
func (k *KeyedLimiter) Allow(key string) bool {
	return k.get(key).Allow()
}

func (k *KeyedLimiter) get(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := time.Now()
	if e, ok := k.limiters[key]; ok {
		e.lastSeen = now
		return e.limiter
	}

	// Forget idle keys on insert so the map tracks active clients only.
	for other, e := range k.limiters {
		if now.Sub(e.lastSeen) > k.idleTTL {
			delete(k.limiters, other)
		}
	}

	l := rate.NewLimiter(k.limit, k.burst)
	k.limiters[key] = &entry{limiter: l, lastSeen: now}
	return l
}
