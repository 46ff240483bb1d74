package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/judyrop/sil-crm/service"
	"github.com/judyrop/sil-crm/store"
)

var ErrNotEmpty = errors.New("database already holds products; seed with reset to replace them")

type SeedResult struct {
	Customers int
	Products  int
	Orders    int
}

var (
	seedCustomers = []service.CustomerInput{
		{Name: "Alice Johnson", Email: "alice@example.com", Phone: "+1234567890"},
		{Name: "Bob Smith", Email: "bob@example.com", Phone: "123-456-7890"},
		{Name: "Carol White", Email: "carol@example.com"},
	}
	seedProducts = []service.ProductInput{
		{Name: "Laptop", Price: decimal.RequireFromString("999.99"), Stock: 10},
		{Name: "Phone", Price: decimal.RequireFromString("499.99"), Stock: 25},
		{Name: "Headphones", Price: decimal.RequireFromString("89.99"), Stock: 50},
	}
)

// Seed loads the sample data set: three customers, three products and one
// order for the first customer holding the first two products. With reset
// the existing records are deleted first.
func Seed(ctx context.Context, st *store.Store, svc *service.Services, log *zap.Logger, reset bool) (SeedResult, error) {
	if reset {
		if err := st.DeleteAll(ctx); err != nil {
			return SeedResult{}, err
		}
	} else {
		n, err := st.CountProducts(ctx)
		if err != nil {
			return SeedResult{}, err
		}
		if n > 0 {
			return SeedResult{}, ErrNotEmpty
		}
	}

	bulk, err := svc.Customers.BulkCreateCustomers(ctx, seedCustomers)
	if err != nil {
		return SeedResult{}, err
	}
	for _, msg := range bulk.Errors {
		log.Warn("seed customer skipped", zap.String("reason", msg))
	}
	if len(bulk.Created) == 0 {
		return SeedResult{}, errors.New("no seed customers could be created")
	}

	productIDs := make([]uint, 0, len(seedProducts))
	for _, in := range seedProducts {
		p, err := svc.Products.CreateProduct(ctx, in)
		if err != nil {
			return SeedResult{}, fmt.Errorf("seed product %s: %w", in.Name, err)
		}
		productIDs = append(productIDs, p.ID)
	}

	if _, err := svc.Orders.CreateOrder(ctx, service.OrderInput{
		CustomerID: bulk.Created[0].ID,
		ProductIDs: productIDs[:2],
	}); err != nil {
		return SeedResult{}, fmt.Errorf("seed order: %w", err)
	}

	res := SeedResult{Customers: len(bulk.Created), Products: len(productIDs), Orders: 1}
	log.Info("database seeded",
		zap.Int("customers", res.Customers),
		zap.Int("products", res.Products),
		zap.Int("orders", res.Orders))
	return res, nil
}
