// Package store describes lookups on persisted entities without tying them
// to a database.
package store

import (
	"fmt"
	"slices"
	"time"
)

// Op is the comparison a Filter applies.
type Op int

// Filter comparisons.
const (
	OpEqual Op = iota
	OpIn
	OpAfter
	OpBefore
)

var opSymbols = map[Op]string{
	OpEqual:  "=",
	OpIn:     "IN",
	OpAfter:  ">",
	OpBefore: "<",
}

// Symbol returns the SQL operator for op.
func (o Op) Symbol() string { return opSymbols[o] }

// Filter restricts a lookup to rows where Field compares to Value by Op.
// For OpIn, Value is a []any.
type Filter struct {
	Field string
	Op    Op
	Value any
}

func (f Filter) String() string {
	if t, ok := f.Value.(time.Time); ok {
		return fmt.Sprintf("%s %s %s", f.Field, f.Op.Symbol(), t.Format(time.RFC3339Nano))
	}
	return fmt.Sprintf("%s %s %v", f.Field, f.Op.Symbol(), f.Value)
}

// Sort orders results by Field, ascending unless Desc is set.
type Sort struct {
	Field string
	Desc  bool
}

// Query is the accumulated result of a list of Options.
type Query struct {
	filters []Filter
	sorts   []Sort
	limit   int
	offset  int
}

// Option adds to a Query.
type Option func(*Query)

// Build applies options in order.
func Build(options ...Option) Query {
	var q Query
	for _, opt := range options {
		opt(&q)
	}
	return q
}

// Filters returns a copy of the filters.
func (q Query) Filters() []Filter { return slices.Clone(q.filters) }

// Sorts returns a copy of the sort keys, most significant first.
func (q Query) Sorts() []Sort { return slices.Clone(q.sorts) }

// Limit is the maximum row count, 0 for no limit.
func (q Query) Limit() int { return q.limit }

// Offset is the number of rows skipped.
func (q Query) Offset() int { return q.offset }

func where(f Filter) Option {
	return func(q *Query) { q.filters = append(q.filters, f) }
}

// Where matches rows whose field equals value.
func Where(field string, value any) Option {
	return where(Filter{Field: field, Op: OpEqual, Value: value})
}

// WhereIn matches rows whose field is one of values.
func WhereIn[T any](field string, values []T) Option {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return where(Filter{Field: field, Op: OpIn, Value: vs})
}

// After matches rows whose time column is strictly later than t.
func After(field string, t time.Time) Option {
	return where(Filter{Field: field, Op: OpAfter, Value: t})
}

// Before matches rows whose time column is strictly earlier than t.
func Before(field string, t time.Time) Option {
	return where(Filter{Field: field, Op: OpBefore, Value: t})
}

// ByID matches a single primary key.
func ByID(id int64) Option { return Where("id", id) }

// OrderBy appends an ascending sort key.
func OrderBy(field string) Option {
	return func(q *Query) { q.sorts = append(q.sorts, Sort{Field: field}) }
}

// OrderByDesc appends a descending sort key.
func OrderByDesc(field string) Option {
	return func(q *Query) { q.sorts = append(q.sorts, Sort{Field: field, Desc: true}) }
}

// Page limits the result to limit rows starting at offset. Non-positive
// values leave the corresponding bound unset.
func Page(limit, offset int) Option {
	return func(q *Query) {
		q.limit = max(limit, 0)
		q.offset = max(offset, 0)
	}
}
