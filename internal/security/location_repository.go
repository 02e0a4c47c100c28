package security

import (
	"context"

	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

type LocationRepository interface {
	Create(ctx context.Context, location *model.UserAccessLocation) error
	Count(ctx context.Context, conds ...clause.Expression) (int64, error)
}

type locationRepository struct {
	db *gorm.DB
}

func (r *locationRepository) Create(ctx context.Context, location *model.UserAccessLocation) error {
	return r.db.WithContext(ctx).Create(location).Error
}

// Count reads from the primary so a login right after another one sees its row.
func (r *locationRepository) Count(ctx context.Context, conds ...clause.Expression) (int64, error) {
	var total int64
	err := where(r.db.WithContext(ctx).Clauses(dbresolver.Write).Model(&model.UserAccessLocation{}), conds).
		Count(&total).Error
	return total, err
}

func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepository{db: db}
}
