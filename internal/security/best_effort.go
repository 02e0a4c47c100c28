package security

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ayyo42069/tuning-portal-react-sub000/internal/metrics"
)

// BestEffort is the outcome of a secondary security check. A failed check must
// never fail the request that triggered it, so callers log it and carry on.
type BestEffort struct {
	Op  string
	Err error
}

func (b BestEffort) OK() bool {
	return b.Err == nil
}

func (b BestEffort) Log(ctx context.Context) {
	if b.Err == nil {
		return
	}
	metrics.BestEffortFailures.WithLabelValues(b.Op).Inc()
	slog.ErrorContext(ctx, "Security check failed", "op", b.Op, "error", b.Err)
}

func bestEffort(op string, errs ...error) BestEffort {
	return BestEffort{Op: op, Err: errors.Join(errs...)}
}

func (b BestEffort) join(other BestEffort) BestEffort {
	op := b.Op
	if op == "" {
		op = other.Op
	}
	return BestEffort{Op: op, Err: errors.Join(b.Err, other.Err)}
}
