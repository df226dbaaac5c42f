package memorylimiter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter is an in-memory sliding-window rate limiter keyed by (bucket, client).
// It serves single-node deployments and tests; use the redis limiter when
// several replicas share the budget.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	windows map[string][]time.Time // oldest first
	now     func() time.Time
}

// New constructs a limiter with per-bucket limits. The "default" entry, if
// present, applies to buckets without their own limit.
func New(limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{
		limits:  limits,
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

func (l *Limiter) limitFor(bucket string) Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return Limit{Limit: 100, Window: time.Minute}
}

// AllowNamed records a hit for key in bucket and reports whether it fits the
// bucket's window. Denied hits are not recorded.
func (l *Limiter) AllowNamed(_ context.Context, bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}
	lim := l.limitFor(bucket)
	now := l.now()
	cutoff := now.Add(-lim.Window)
	id := bucket + ":" + key

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.windows[id]
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	hits = hits[i:]

	if len(hits) >= lim.Limit {
		l.windows[id] = hits
		return false, nil
	}
	l.windows[id] = append(hits, now)
	return true, nil
}

// Sweep drops windows with no hits newer than the longest configured window.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	longest := time.Minute
	for _, v := range l.limits {
		if v.Window > longest {
			longest = v.Window
		}
	}
	cutoff := l.now().Add(-longest)
	for id, hits := range l.windows {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(l.windows, id)
		}
	}
}
