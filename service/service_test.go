package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/judyrop/sil-crm/models"
	"github.com/judyrop/sil-crm/observability"
	"github.com/judyrop/sil-crm/store"
	"github.com/judyrop/sil-crm/store/storetest"
)

var fixedNow = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

type fixture struct {
	db  *gorm.DB
	st  *store.Store
	svc *Services
}

func newFixture(t *testing.T) *fixture {
	db := storetest.NewDB(t)
	st := store.New(db)
	return &fixture{
		db: db,
		st: st,
		svc: New(Deps{
			Store:   st,
			Logger:  zap.NewNop(),
			Metrics: observability.NewMetrics(prometheus.NewRegistry()),
			Now:     func() time.Time { return fixedNow },
		}),
	}
}

func (f *fixture) customer(t *testing.T, name, email string) *models.Customer {
	t.Helper()
	c, err := f.svc.Customers.CreateCustomer(context.Background(), CustomerInput{Name: name, Email: email})
	require.NoError(t, err)
	return c
}

func (f *fixture) product(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	p, err := f.svc.Products.CreateProduct(context.Background(), ProductInput{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}
