package security

import (
	"context"
	"log/slog"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/internal/metrics"
	"github.com/ayyo42069/tuning-portal-react-sub000/params"
	"github.com/robfig/cron/v3"
)

type SweepResult struct {
	EventsDeleted int64
	AlertsDeleted int64
}

// RetentionSweeper purges security events older than params.EventRetention and
// alerts resolved more than params.ResolvedAlertRetention ago.
type RetentionSweeper struct {
	events EventRepository
	alerts AlertRepository
	now    func() time.Time
}

func (s *RetentionSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	now := s.now()

	deleted, err := s.events.DeleteBefore(ctx, now.Add(-params.EventRetention))
	if err != nil {
		return result, err
	}
	result.EventsDeleted = deleted
	metrics.RetentionRowsDeleted.WithLabelValues("security_events").Add(float64(deleted))

	deleted, err = s.alerts.DeleteResolvedBefore(ctx, now.Add(-params.ResolvedAlertRetention))
	if err != nil {
		return result, err
	}
	result.AlertsDeleted = deleted
	metrics.RetentionRowsDeleted.WithLabelValues("security_alerts").Add(float64(deleted))
	return result, nil
}

// Schedule registers the sweep on c. The job stops running when ctx is done.
func (s *RetentionSweeper) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		result, err := s.Sweep(ctx)
		if err != nil {
			slog.Error("Retention sweep failed", "error", err)
			return
		}
		slog.Info("Retention sweep finished", "events", result.EventsDeleted, "alerts", result.AlertsDeleted)
	})
}

func NewRetentionSweeper(events EventRepository, alerts AlertRepository) *RetentionSweeper {
	return &RetentionSweeper{
		events: events,
		alerts: alerts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}
