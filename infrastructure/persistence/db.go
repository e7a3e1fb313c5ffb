// Package persistence stores capture metadata in SQL and sample data in files.
package persistence

import "github.com/ul-gh/hdscope/internal/database"

// AutoMigrate creates or updates the capture tables.
func AutoMigrate(db database.Database) error {
	return db.Migrate(&CaptureModel{})
}
