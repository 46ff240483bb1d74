// Package storetest opens throwaway in-memory databases for tests.
package storetest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/judyrop/sil-crm/store"
)

// NewDB returns a migrated in-memory sqlite database private to t. The
// pool is pinned to one connection so the database lives as long as t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := store.Open(store.DriverSQLite, dsn, logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("%v", err)
	}
	return db
}

// WithTestTransaction runs fn against a transaction that is rolled back
// afterwards.
func WithTestTransaction(t *testing.T, fn func(tx *gorm.DB)) {
	t.Helper()
	db := NewDB(t)
	tx := db.Begin()
	if tx.Error != nil {
		t.Fatal(tx.Error)
	}
	defer tx.Rollback()
	fn(tx)
}
