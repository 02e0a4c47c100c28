package security

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func where(db *gorm.DB, conds []clause.Expression) *gorm.DB {
	if len(conds) == 0 {
		return db
	}
	return db.Clauses(clause.Where{Exprs: conds})
}

type groupCount struct {
	Name  string
	Total int64
}
