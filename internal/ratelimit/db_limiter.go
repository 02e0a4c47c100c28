package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/ayyo42069/tuning-portal-react-sub000/params"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBLimiter keeps counters in the rate_limits table. It reads and then writes
// without a transaction, so concurrent requests may both be admitted at the
// edge of the limit.
type DBLimiter struct {
	opts   Options
	db     *gorm.DB
	prefix string
	now    func() time.Time
}

func (l *DBLimiter) Check(ctx context.Context, key string) (Result, error) {
	now := l.now()
	key = l.prefix + key
	db := l.db.WithContext(ctx)

	var entry model.RateLimitEntry
	err := db.Where(clause.Eq{Column: "rate_key", Value: key}).Take(&entry).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return Result{}, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) || !now.Before(entry.ResetAt) {
		w := l.opts.newWindow(now)
		entry = model.RateLimitEntry{Key: key, Count: w.count, ResetAt: w.resetAt}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "rate_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"count", "reset_at"}),
		}).Create(&entry).Error
		if err != nil {
			return Result{}, err
		}
		return l.opts.result(w, now), nil
	}

	err = db.Model(&model.RateLimitEntry{}).
		Where(clause.Eq{Column: "rate_key", Value: key}).
		UpdateColumn("count", gorm.Expr("count + ?", 1)).Error
	if err != nil {
		return Result{}, err
	}
	return l.opts.result(window{count: entry.Count + 1, resetAt: entry.ResetAt}, now), nil
}

// Sweep deletes rows whose window has passed.
func (l *DBLimiter) Sweep(ctx context.Context) (int64, error) {
	ret := l.db.WithContext(ctx).
		Where(clause.Like{Column: "rate_key", Value: l.prefix + "%"}).
		Where(clause.Lte{Column: "reset_at", Value: l.now()}).
		Delete(&model.RateLimitEntry{})
	return ret.RowsAffected, ret.Error
}

func (l *DBLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(params.RateLimitSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := l.Sweep(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Failed to sweep rate limit entries", "error", err)
			}
		}
	}
}

func NewDBLimiter(db *gorm.DB, purpose string, opts Options) *DBLimiter {
	return &DBLimiter{
		opts:   opts,
		db:     db,
		prefix: params.RateLimitKeyPrefix + purpose + ":",
		now:    time.Now,
	}
}
