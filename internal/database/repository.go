package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/ul-gh/hdscope/domain/store"
	"gorm.io/gorm"
)

// ErrNotFound wraps store.ErrNotFound for lookups that match no row.
var ErrNotFound = fmt.Errorf("entity %w", store.ErrNotFound)

// Mapper converts between a domain value D and its row model M.
type Mapper[D, M any] interface {
	ToDomain(row M) D
	ToModel(value D) M
}

// Table reads and deletes domain values stored as rows of model M.
// Writes stay with the concrete store, which knows its own timestamps.
type Table[D, M any] struct {
	db     Database
	mapper Mapper[D, M]
	name   string
}

// NewTable binds a mapper to db. name labels errors.
func NewTable[D, M any](db Database, mapper Mapper[D, M], name string) Table[D, M] {
	return Table[D, M]{db: db, mapper: mapper, name: name}
}

// Session returns a GORM handle on the table's model bound to ctx.
func (t Table[D, M]) Session(ctx context.Context) *gorm.DB {
	return t.db.Session(ctx).Model(new(M))
}

// Mapper returns the row mapper.
func (t Table[D, M]) Mapper() Mapper[D, M] { return t.mapper }

// Find returns every value matching options, in the options' order.
func (t Table[D, M]) Find(ctx context.Context, options ...store.Option) ([]D, error) {
	var rows []M
	if err := ApplyOptions(t.Session(ctx), options...).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find %s: %w", t.name, err)
	}
	out := make([]D, 0, len(rows))
	for _, row := range rows {
		out = append(out, t.mapper.ToDomain(row))
	}
	return out, nil
}

// FindOne returns the first value matching options, or ErrNotFound.
func (t Table[D, M]) FindOne(ctx context.Context, options ...store.Option) (D, error) {
	var row M
	err := ApplyOptions(t.Session(ctx), options...).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		var zero D
		return zero, fmt.Errorf("%w: %s", ErrNotFound, t.name)
	case err != nil:
		var zero D
		return zero, fmt.Errorf("find %s: %w", t.name, err)
	}
	return t.mapper.ToDomain(row), nil
}

// Count counts the rows matching the filters in options. Sorting and
// paging are ignored.
func (t Table[D, M]) Count(ctx context.Context, options ...store.Option) (int64, error) {
	var n int64
	if err := ApplyConditions(t.Session(ctx), options...).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", t.name, err)
	}
	return n, nil
}

// Exists reports whether any row matches options.
func (t Table[D, M]) Exists(ctx context.Context, options ...store.Option) (bool, error) {
	n, err := t.Count(ctx, options...)
	return n > 0, err
}

// DeleteBy deletes every row matching the filters in options.
func (t Table[D, M]) DeleteBy(ctx context.Context, options ...store.Option) error {
	if err := ApplyConditions(t.db.Session(ctx), options...).Delete(new(M)).Error; err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	return nil
}
