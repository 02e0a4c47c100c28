package users

import (
	"context"

	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

type UserRepository interface {
	First(ctx context.Context, conds ...clause.Expression) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	Updates(ctx context.Context, columns map[string]interface{}, conds ...clause.Expression) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// First always reads from the primary, lockout decisions depend on the latest
// counter values.
func (r *userRepository) First(ctx context.Context, conds ...clause.Expression) (*model.User, error) {
	var user model.User
	tx := r.db.WithContext(ctx).Clauses(dbresolver.Write)
	if len(conds) > 0 {
		tx = tx.Clauses(clause.Where{Exprs: conds})
	}
	if err := tx.First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Updates(ctx context.Context, columns map[string]interface{}, conds ...clause.Expression) (int64, error) {
	ret := r.db.WithContext(ctx).Model(&model.User{}).Clauses(clause.Where{Exprs: conds}).Updates(columns)
	return ret.RowsAffected, ret.Error
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}
