package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result of one Allow call.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter throttles puzzle attempts per invite token. The gates never see
// a throttled request; a retried attempt after the throttle window goes
// through the gate's normal idempotent path.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

type bucket struct {
	tokens float64
	last   time.Time
}

// MemoryBucket is a per-key token bucket held in process memory. Suitable
// for single-instance deployments; multi-instance setups should use the
// redis bucket instead.
type MemoryBucket struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   int
	now     func() time.Time

	lastSweep time.Time
}

const sweepInterval = 10 * time.Minute

// fallbackRate stands in for misconfigured limits. A non-positive rate
// never refills and divides by zero in the retry-after math.
const fallbackRate = 1.0

func NewMemoryBucket(rate float64, burst int) *MemoryBucket {
	if rate <= 0 {
		rate = fallbackRate
	}
	if burst < 1 {
		burst = 1
	}
	return &MemoryBucket{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		now:     time.Now,
	}
}

func (m *MemoryBucket) Allow(ctx context.Context, key string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)

	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(m.burst), last: now}
		m.buckets[key] = b
	} else {
		elapsed := now.Sub(b.last).Seconds()
		if elapsed > 0 {
			b.tokens += elapsed * m.rate
			if b.tokens > float64(m.burst) {
				b.tokens = float64(m.burst)
			}
		}
		b.last = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return Result{Allowed: true}, nil
	}

	needed := 1 - b.tokens
	return Result{
		Allowed:    false,
		RetryAfter: time.Duration(needed / m.rate * float64(time.Second)),
	}, nil
}

// sweepLocked drops buckets that have fully refilled; keeping them would
// just leak one entry per token ever seen.
func (m *MemoryBucket) sweepLocked(now time.Time) {
	if now.Sub(m.lastSweep) < sweepInterval {
		return
	}
	m.lastSweep = now
	full := time.Duration(float64(m.burst) / m.rate * float64(time.Second))
	for key, b := range m.buckets {
		if now.Sub(b.last) > full {
			delete(m.buckets, key)
		}
	}
}
