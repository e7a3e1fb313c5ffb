package database

import (
	"github.com/ul-gh/hdscope/domain/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplyOptions scopes a GORM session to the filters, sort keys and page of
// the given options.
func ApplyOptions(db *gorm.DB, options ...store.Option) *gorm.DB {
	q := store.Build(options...)
	db = where(db, q)
	for _, s := range q.Sorts() {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: s.Field}, Desc: s.Desc})
	}
	if q.Limit() > 0 {
		db = db.Limit(q.Limit())
	}
	if q.Offset() > 0 {
		db = db.Offset(q.Offset())
	}
	return db
}

// ApplyConditions applies only the filters, for COUNT and DELETE.
func ApplyConditions(db *gorm.DB, options ...store.Option) *gorm.DB {
	return where(db, store.Build(options...))
}

func where(db *gorm.DB, q store.Query) *gorm.DB {
	for _, f := range q.Filters() {
		col := clause.Column{Name: f.Field}
		switch f.Op {
		case store.OpIn:
			db = db.Where(clause.IN{Column: col, Values: f.Value.([]any)})
		case store.OpAfter:
			db = db.Where(clause.Gt{Column: col, Value: f.Value})
		case store.OpBefore:
			db = db.Where(clause.Lt{Column: col, Value: f.Value})
		default:
			db = db.Where(clause.Eq{Column: col, Value: f.Value})
		}
	}
	return db
}
