// Package store is the persistence layer for customers, products and
// orders. It wraps a *gorm.DB and translates gorm failures into apperr
// kinds so the services above it never inspect driver errors.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/judyrop/sil-crm/apperr"
	"github.com/judyrop/sil-crm/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the database named by driver and dsn. TranslateError is
// always on so unique violations surface as gorm.ErrDuplicatedKey.
func Open(driver, dsn string, log logger.Interface) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	cfg := &gorm.Config{TranslateError: true}
	if log != nil {
		cfg.Logger = log
	}
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithTx runs fn inside a transaction. Nested calls open a savepoint, so a
// failing inner fn rolls back only its own writes.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// wrap maps a gorm error onto an apperr kind. what names the record.
func wrap(what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &apperr.Error{Kind: apperr.KindNotFound, Message: what + " not found", Err: err}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &apperr.Error{Kind: apperr.KindConflict, Message: what + " already exists", Err: err}
	default:
		return apperr.Store(what+" query failed", err)
	}
}

// Page bounds a list query. A nil First means no limit; zero yields an
// empty page.
type Page struct {
	First  *int
	Offset int
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	if p.First != nil {
		q = q.Limit(*p.First)
	}
	return q
}

// orderClause turns "name" or "-name" (camelCase accepted) into an ORDER BY
// clause, allowing only id and the given columns. Ties break on id.
func orderClause(orderBy string, allowed ...string) (string, error) {
	if orderBy == "" {
		return "id asc", nil
	}
	dir := "asc"
	field := orderBy
	if strings.HasPrefix(field, "-") {
		dir = "desc"
		field = field[1:]
	}
	field = snakeCase(field)
	if field == "id" {
		return "id " + dir, nil
	}
	for _, col := range allowed {
		if col == field {
			return field + " " + dir + ", id " + dir, nil
		}
	}
	return "", apperr.Validation(fmt.Sprintf("Cannot order by %q", orderBy))
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func likeAny(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

// DeleteAll removes every order, customer and product. Leases are kept.
func (s *Store) DeleteAll(ctx context.Context) error {
	return s.WithTx(ctx, func(tx *Store) error {
		db := tx.conn(ctx)
		for _, table := range []string{"order_products", "orders", "customers", "products"} {
			if err := db.Exec("DELETE FROM " + table).Error; err != nil {
				return wrap(table, err)
			}
		}
		return nil
	})
}
