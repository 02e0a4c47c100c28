package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/params"
)

// MemoryLimiter keeps counters in process. Counters are not shared between
// instances.
type MemoryLimiter struct {
	opts    Options
	mu      sync.Mutex
	entries map[string]*window
	now     func() time.Time
}

func (l *MemoryLimiter) Check(ctx context.Context, key string) (Result, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		w := l.opts.newWindow(now)
		l.entries[key] = &w
		return l.opts.result(w, now), nil
	}
	entry.count++
	return l.opts.result(*entry, now), nil
}

// Sweep drops every entry whose window has passed.
func (l *MemoryLimiter) Sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, entry := range l.entries {
		if !now.Before(entry.resetAt) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Run sweeps expired entries every params.RateLimitSweepInterval until ctx is done.
func (l *MemoryLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(params.RateLimitSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func NewMemoryLimiter(opts Options) *MemoryLimiter {
	return &MemoryLimiter{
		opts:    opts,
		entries: make(map[string]*window),
		now:     time.Now,
	}
}
