// Package service implements the CRM operations exposed to the GraphQL
// resolvers and the scheduled jobs. Every write runs inside one store
// transaction and is checked by the validation package first.
package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/judyrop/sil-crm/observability"
	"github.com/judyrop/sil-crm/store"
)

type Deps struct {
	Store   *store.Store
	Logger  *zap.Logger
	Metrics *observability.Metrics
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

type Services struct {
	Customers CustomerService
	Products  ProductService
	Orders    OrderService
	Restocker Restocker
}

func New(d Deps) *Services {
	d = d.withDefaults()
	return &Services{
		Customers: NewCustomerService(d),
		Products:  NewProductService(d),
		Orders:    NewOrderService(d),
		Restocker: NewRestocker(d),
	}
}
