package security

import (
	"context"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AlertView is an unresolved alert joined with its originating event and user.
// Joined columns are nil when the event or user no longer exists.
type AlertView struct {
	ID        uint64         `json:"id"`
	EventID   uint64         `json:"eventId"`
	UserID    *uint          `json:"userId,omitempty"`
	AlertType string         `json:"alertType"`
	Severity  model.Severity `json:"severity"`
	Message   string         `json:"message"`
	CreatedAt time.Time      `json:"createdAt"`
	EventType *string        `json:"eventType,omitempty"`
	IPAddress *string        `json:"ipAddress,omitempty"`
	UserAgent *string        `json:"userAgent,omitempty"`
	Username  *string        `json:"username,omitempty"`
	Email     *string        `json:"email,omitempty"`
}

type AlertRepository interface {
	Create(ctx context.Context, alert *model.SecurityAlert) error
	First(ctx context.Context, conds ...clause.Expression) (*model.SecurityAlert, error)
	Count(ctx context.Context, conds ...clause.Expression) (int64, error)
	Resolve(ctx context.Context, alertID uint64, resolvedBy uint, notes *string, resolvedAt time.Time) (int64, error)
	FindUnresolved(ctx context.Context, limit int) ([]*AlertView, error)
	DeleteResolvedBefore(ctx context.Context, before time.Time) (int64, error)
}

type alertRepository struct {
	db *gorm.DB
}

func (r *alertRepository) Create(ctx context.Context, alert *model.SecurityAlert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *alertRepository) First(ctx context.Context, conds ...clause.Expression) (*model.SecurityAlert, error) {
	var alert model.SecurityAlert
	err := where(r.db.WithContext(ctx), conds).First(&alert).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) Count(ctx context.Context, conds ...clause.Expression) (int64, error) {
	var total int64
	err := where(r.db.WithContext(ctx).Model(&model.SecurityAlert{}), conds).Count(&total).Error
	return total, err
}

func (r *alertRepository) Resolve(ctx context.Context, alertID uint64, resolvedBy uint, notes *string, resolvedAt time.Time) (int64, error) {
	ret := r.db.WithContext(ctx).
		Model(&model.SecurityAlert{}).
		Where(clause.Eq{Column: "id", Value: alertID}).
		Updates(map[string]interface{}{
			model.ColAlertResolved:        true,
			model.ColAlertResolvedBy:      resolvedBy,
			model.ColAlertResolutionNotes: notes,
			model.ColAlertResolvedAt:      resolvedAt,
		})
	return ret.RowsAffected, ret.Error
}

func (r *alertRepository) FindUnresolved(ctx context.Context, limit int) ([]*AlertView, error) {
	var views []*AlertView
	err := r.db.WithContext(ctx).
		Table("security_alerts AS a").
		Select("a.id, a.event_id, a.user_id, a.alert_type, a.severity, a.message, a.created_at, " +
			"e.event_type, e.ip_address, e.user_agent, u.username, u.email").
		Joins("LEFT JOIN security_events AS e ON e.id = a.event_id").
		Joins("LEFT JOIN users AS u ON u.id = a.user_id").
		Where("a.resolved = ?", false).
		Order("CASE a.severity WHEN 'critical' THEN 0 WHEN 'error' THEN 1 WHEN 'warning' THEN 2 ELSE 3 END").
		Order("a.created_at DESC").
		Order("a.id DESC").
		Limit(limit).
		Scan(&views).Error
	return views, err
}

func (r *alertRepository) DeleteResolvedBefore(ctx context.Context, before time.Time) (int64, error) {
	ret := r.db.WithContext(ctx).
		Where(clause.Eq{Column: model.ColAlertResolved, Value: true}).
		Where(clause.Lt{Column: model.ColAlertResolvedAt, Value: before}).
		Delete(&model.SecurityAlert{})
	return ret.RowsAffected, ret.Error
}

func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}
