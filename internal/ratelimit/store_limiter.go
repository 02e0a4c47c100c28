package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/internal/store"
	"github.com/ayyo42069/tuning-portal-react-sub000/params"
)

type storeEntry struct {
	Count   int   `redis:"count"`
	ResetAt int64 `redis:"reset_at"` // unix milliseconds
}

// StoreLimiter keeps counters in a shared key-value store so every instance
// sees the same windows.
type StoreLimiter struct {
	opts    Options
	entries store.Store[storeEntry]
	now     func() time.Time
}

func (l *StoreLimiter) Check(ctx context.Context, key string) (Result, error) {
	now := l.now()
	entry, err := l.entries.Get(ctx, key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Result{}, err
	}

	if errors.Is(err, store.ErrNotFound) || now.UnixMilli() >= entry.ResetAt {
		w := l.opts.newWindow(now)
		entry = storeEntry{Count: w.count, ResetAt: w.resetAt.UnixMilli()}
		if err := l.entries.Set(ctx, key, entry, l.opts.Window+params.RateLimitEntryGrace); err != nil {
			return Result{}, err
		}
		return l.opts.result(w, now), nil
	}

	count, err := l.entries.IncrAttr(ctx, key, "count", 1)
	if err != nil {
		return Result{}, err
	}
	return l.opts.result(window{count: int(count), resetAt: time.UnixMilli(entry.ResetAt)}, now), nil
}

func NewStoreLimiter(storage store.Storage, purpose string, opts Options) *StoreLimiter {
	return &StoreLimiter{
		opts:    opts,
		entries: store.New[storeEntry](storage, params.RateLimitKeyPrefix+purpose+":"),
		now:     time.Now,
	}
}
