// Package testdb opens migrated in-memory catalogues for tests.
package testdb

import (
	"testing"

	"github.com/ul-gh/hdscope/infrastructure/persistence"
	"github.com/ul-gh/hdscope/internal/database"
)

// New opens a private in-memory SQLite catalogue with the capture tables
// created. It is closed when the test ends.
func New(t *testing.T) database.Database {
	t.Helper()
	db, err := database.Open(t.Context(), "sqlite:///:memory:", nil)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := persistence.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// Stores returns a capture store on a fresh catalogue and sample files
// under a per-test directory.
func Stores(t *testing.T) (persistence.CaptureStore, persistence.SampleFiles) {
	t.Helper()
	return persistence.NewCaptureStore(New(t)), persistence.NewSampleFiles(t.TempDir())
}
