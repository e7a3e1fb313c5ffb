package database

import (
	"context"

	"gorm.io/gorm"
)

// Atomic runs fn inside a transaction and returns its result. The Database
// handed to fn is bound to the transaction; an error or panic from fn rolls
// everything back.
func Atomic[T any](ctx context.Context, d Database, fn func(tx Database) (T, error)) (T, error) {
	var out T
	err := d.Session(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := fn(Database{db: tx})
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
