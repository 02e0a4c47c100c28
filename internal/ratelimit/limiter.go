package ratelimit

import (
	"context"
	"time"
)

// Result describes the state of a key after one Check.
type Result struct {
	Success      bool
	Limit        int
	Remaining    int
	MsBeforeNext int64
}

// Limiter counts requests per key in fixed windows. The first request of a
// window starts it; once the window has passed the entry is replaced.
type Limiter interface {
	Check(ctx context.Context, key string) (Result, error)
}

type Options struct {
	Limit  int
	Window time.Duration
}

type window struct {
	count   int
	resetAt time.Time
}

func (o Options) result(w window, now time.Time) Result {
	res := Result{
		Success:      w.count <= o.Limit,
		Limit:        o.Limit,
		Remaining:    max(o.Limit-w.count, 0),
		MsBeforeNext: w.resetAt.Sub(now).Milliseconds(),
	}
	if res.MsBeforeNext < 1 {
		res.MsBeforeNext = 1
	}
	return res
}

func (o Options) newWindow(now time.Time) window {
	return window{count: 1, resetAt: now.Add(o.Window)}
}
