package security

import (
	"context"
	"errors"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/ayyo42069/tuning-portal-react-sub000/params"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SecurityStats struct {
	TotalEvents      int64                     `json:"totalEvents"`
	EventsByType     map[model.EventType]int64 `json:"eventsByType"`
	EventsBySeverity map[model.Severity]int64  `json:"eventsBySeverity"`
	RecentAlerts     int64                     `json:"recentAlerts"`
	UnresolvedAlerts int64                     `json:"unresolvedAlerts"`
}

type SecurityLogStats struct {
	WindowDays                 int                       `json:"windowDays"`
	TotalEvents                int64                     `json:"totalEvents"`
	EventsByType               map[model.EventType]int64 `json:"eventsByType"`
	EventsBySeverity           map[model.Severity]int64  `json:"eventsBySeverity"`
	RecentFailedLogins         int64                     `json:"recentFailedLogins"`
	RecentSuspiciousActivities int64                     `json:"recentSuspiciousActivities"`
	RecentAPIAccess            int64                     `json:"recentApiAccess"`
}

type LogQuery struct {
	UserID    *uint
	EventType model.EventType
	Severity  model.Severity
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type LogPage struct {
	Logs  []*model.SecurityEvent `json:"logs"`
	Total int64                  `json:"total"`
}

// Reporter answers the admin dashboard. It only reads, except for alert
// resolution.
type Reporter struct {
	events EventRepository
	alerts AlertRepository
	now    func() time.Time
}

func eventTypeCondition(eventType model.EventType) clause.Expression {
	if eventType == model.EventAPIAccess {
		return clause.IN{
			Column: model.ColEventType,
			Values: []interface{}{model.EventAPIAccess, model.EventSensitiveDataAccess},
		}
	}
	return clause.Eq{Column: model.ColEventType, Value: eventType}
}

func (r *Reporter) GetSecurityStats(ctx context.Context) (*SecurityStats, error) {
	var (
		stats SecurityStats
		err   error
	)
	if stats.TotalEvents, err = r.events.Count(ctx); err != nil {
		return nil, err
	}
	if stats.EventsByType, err = r.events.CountByType(ctx); err != nil {
		return nil, err
	}
	if stats.EventsBySeverity, err = r.events.CountBySeverity(ctx); err != nil {
		return nil, err
	}
	recentSince := r.now().Add(-params.RecentActivityWindow)
	if stats.RecentAlerts, err = r.alerts.Count(ctx, clause.Gte{Column: model.ColAlertCreatedAt, Value: recentSince}); err != nil {
		return nil, err
	}
	if stats.UnresolvedAlerts, err = r.alerts.Count(ctx, clause.Eq{Column: model.ColAlertResolved, Value: false}); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetSecurityLogStats aggregates events of the last windowDays days. The
// recent counters always cover the last 24 hours.
func (r *Reporter) GetSecurityLogStats(ctx context.Context, windowDays int) (*SecurityLogStats, error) {
	if windowDays <= 0 {
		windowDays = params.DefaultLogStatsWindowDays
	}
	if windowDays > params.MaxLogStatsWindowDays {
		windowDays = params.MaxLogStatsWindowDays
	}
	now := r.now()
	inWindow := clause.Gte{Column: model.ColEventCreatedAt, Value: now.AddDate(0, 0, -windowDays)}
	recent := clause.Gte{Column: model.ColEventCreatedAt, Value: now.Add(-params.RecentActivityWindow)}

	stats := SecurityLogStats{WindowDays: windowDays}
	var err error
	if stats.TotalEvents, err = r.events.Count(ctx, inWindow); err != nil {
		return nil, err
	}
	if stats.EventsByType, err = r.events.CountByType(ctx, inWindow); err != nil {
		return nil, err
	}
	if stats.EventsBySeverity, err = r.events.CountBySeverity(ctx, inWindow); err != nil {
		return nil, err
	}
	if stats.RecentFailedLogins, err = r.events.Count(ctx, recent, eventTypeCondition(model.EventLoginFailure)); err != nil {
		return nil, err
	}
	if stats.RecentSuspiciousActivities, err = r.events.Count(ctx, recent, eventTypeCondition(model.EventSuspiciousActivity)); err != nil {
		return nil, err
	}
	if stats.RecentAPIAccess, err = r.events.Count(ctx, recent, eventTypeCondition(model.EventAPIAccess)); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *Reporter) GetSecurityLogs(ctx context.Context, query LogQuery) (*LogPage, error) {
	var conds []clause.Expression
	if query.UserID != nil {
		conds = append(conds, clause.Eq{Column: model.ColEventUserID, Value: *query.UserID})
	}
	if query.EventType != "" {
		if !query.EventType.Valid() {
			return nil, ErrInvalidEventType
		}
		conds = append(conds, eventTypeCondition(query.EventType))
	}
	if query.Severity != "" {
		if !query.Severity.Valid() {
			return nil, ErrInvalidSeverity
		}
		conds = append(conds, clause.Eq{Column: model.ColEventSeverity, Value: query.Severity})
	}
	if query.From != nil {
		conds = append(conds, clause.Gte{Column: model.ColEventCreatedAt, Value: *query.From})
	}
	if query.To != nil {
		conds = append(conds, clause.Lte{Column: model.ColEventCreatedAt, Value: *query.To})
	}

	limit := query.Limit
	if limit <= 0 {
		limit = params.DefaultLogsPageSize
	}
	if limit > params.MaxLogsPageSize {
		limit = params.MaxLogsPageSize
	}
	offset := max(query.Offset, 0)

	total, err := r.events.Count(ctx, conds...)
	if err != nil {
		return nil, err
	}
	logs, err := r.events.Find(ctx, offset, limit, conds...)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []*model.SecurityEvent{}
	}
	return &LogPage{Logs: logs, Total: total}, nil
}

// ResolveSecurityAlert marks an alert resolved. Resolving an alert twice
// overwrites the earlier resolution.
func (r *Reporter) ResolveSecurityAlert(ctx context.Context, alertID uint64, resolvedBy uint, notes string) (bool, error) {
	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}
	affected, err := r.alerts.Resolve(ctx, alertID, resolvedBy, notesPtr, r.now())
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}
	// mysql reports zero affected rows when nothing changed
	_, err = r.alerts.First(ctx, clause.Eq{Column: "id", Value: alertID})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, ErrAlertNotFound
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Reporter) GetUnresolvedAlerts(ctx context.Context, limit int) ([]*AlertView, error) {
	if limit <= 0 {
		limit = params.DefaultUnresolvedAlertsLimit
	}
	if limit > params.MaxUnresolvedAlertsLimit {
		limit = params.MaxUnresolvedAlertsLimit
	}
	alerts, err := r.alerts.FindUnresolved(ctx, limit)
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []*AlertView{}
	}
	return alerts, nil
}

func NewReporter(events EventRepository, alerts AlertRepository) *Reporter {
	return &Reporter{
		events: events,
		alerts: alerts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}
