package security

import (
	"context"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

type EventRepository interface {
	WithPrimary() EventRepository
	Create(ctx context.Context, event *model.SecurityEvent) error
	First(ctx context.Context, conds ...clause.Expression) (*model.SecurityEvent, error)
	Count(ctx context.Context, conds ...clause.Expression) (int64, error)
	Find(ctx context.Context, offset, limit int, conds ...clause.Expression) ([]*model.SecurityEvent, error)
	CountByType(ctx context.Context, conds ...clause.Expression) (map[model.EventType]int64, error)
	CountBySeverity(ctx context.Context, conds ...clause.Expression) (map[model.Severity]int64, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

type eventRepository struct {
	db *gorm.DB
}

func (r *eventRepository) WithPrimary() EventRepository {
	return &eventRepository{db: r.db.Clauses(dbresolver.Write).Session(&gorm.Session{})}
}

func (r *eventRepository) Create(ctx context.Context, event *model.SecurityEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) First(ctx context.Context, conds ...clause.Expression) (*model.SecurityEvent, error) {
	var event model.SecurityEvent
	err := where(r.db.WithContext(ctx), conds).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) Count(ctx context.Context, conds ...clause.Expression) (int64, error) {
	var total int64
	err := where(r.db.WithContext(ctx).Model(&model.SecurityEvent{}), conds).Count(&total).Error
	return total, err
}

func (r *eventRepository) Find(ctx context.Context, offset, limit int, conds ...clause.Expression) ([]*model.SecurityEvent, error) {
	var events []*model.SecurityEvent
	err := where(r.db.WithContext(ctx), conds).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: model.ColEventCreatedAt}, Desc: true},
			{Column: clause.Column{Name: "id"}, Desc: true},
		}}).
		Offset(offset).
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *eventRepository) countGrouped(ctx context.Context, column string, conds []clause.Expression) ([]groupCount, error) {
	var rows []groupCount
	err := where(r.db.WithContext(ctx).Model(&model.SecurityEvent{}), conds).
		Select(column + " AS name, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	return rows, err
}

func (r *eventRepository) CountByType(ctx context.Context, conds ...clause.Expression) (map[model.EventType]int64, error) {
	rows, err := r.countGrouped(ctx, model.ColEventType, conds)
	if err != nil {
		return nil, err
	}
	counts := make(map[model.EventType]int64, len(rows))
	for _, row := range rows {
		counts[model.EventType(row.Name)] = row.Total
	}
	return counts, nil
}

func (r *eventRepository) CountBySeverity(ctx context.Context, conds ...clause.Expression) (map[model.Severity]int64, error) {
	rows, err := r.countGrouped(ctx, model.ColEventSeverity, conds)
	if err != nil {
		return nil, err
	}
	counts := make(map[model.Severity]int64, len(rows))
	for _, row := range rows {
		counts[model.Severity(row.Name)] = row.Total
	}
	return counts, nil
}

func (r *eventRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	ret := r.db.WithContext(ctx).
		Where(clause.Lt{Column: model.ColEventCreatedAt, Value: before}).
		Delete(&model.SecurityEvent{})
	return ret.RowsAffected, ret.Error
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}
