package features

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/judyrop/sil-crm/apperr"
	"github.com/judyrop/sil-crm/models"
	"github.com/judyrop/sil-crm/service"
	"github.com/judyrop/sil-crm/store"
	"github.com/judyrop/sil-crm/store/storetest"
)

// unknownProductID stands in for products a scenario never created.
const unknownProductID = 999999

type crmTestContext struct {
	db        *gorm.DB
	svc       *service.Services
	customers map[string]uint
	products  map[string]uint
	order     *models.Order
	restock   service.RestockResult
	err       error
}

func (c *crmTestContext) reset(db *gorm.DB) {
	c.db = db
	c.svc = service.New(service.Deps{Store: store.New(db)})
	c.customers = map[string]uint{}
	c.products = map[string]uint{}
	c.order = nil
	c.restock = service.RestockResult{}
	c.err = nil
}

func (c *crmTestContext) productIDs(names string) []uint {
	var ids []uint
	for _, name := range strings.Split(names, ",") {
		id, ok := c.products[strings.TrimSpace(name)]
		if !ok {
			id = unknownProductID
		}
		ids = append(ids, id)
	}
	return ids
}

// Given steps

func (c *crmTestContext) aCustomerWithEmail(name, email string) error {
	cust, err := c.svc.Customers.CreateCustomer(context.Background(), service.CustomerInput{Name: name, Email: email})
	if err != nil {
		return err
	}
	c.customers[name] = cust.ID
	return nil
}

func (c *crmTestContext) aProductPricedAtWithStock(name, price string, stock int) error {
	d, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}
	p, err := c.svc.Products.CreateProduct(context.Background(), service.ProductInput{Name: name, Price: d, Stock: stock})
	if err != nil {
		return err
	}
	c.products[name] = p.ID
	return nil
}

// When steps

func (c *crmTestContext) customerOrders(customer, products string) error {
	id, ok := c.customers[customer]
	if !ok {
		return fmt.Errorf("unknown customer %q", customer)
	}
	c.order, c.err = c.svc.Orders.CreateOrder(context.Background(), service.OrderInput{
		CustomerID: id,
		ProductIDs: c.productIDs(products),
	})
	return nil
}

func (c *crmTestContext) theOrderProductsAreReplacedWith(products string) error {
	if c.order == nil {
		return errors.New("no order placed")
	}
	c.order, c.err = c.svc.Orders.ReplaceProducts(context.Background(), c.order.ID, c.productIDs(products))
	return nil
}

func (c *crmTestContext) thePriceOfChangesTo(name, price string) error {
	d, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}
	return c.db.Model(&models.Product{}).Where("id = ?", c.products[name]).Update("price", d).Error
}

func (c *crmTestContext) theOrderTotalIsRecomputed() error {
	if c.order == nil {
		return errors.New("no order placed")
	}
	_, _, err := c.svc.Orders.RecomputeTotal(context.Background(), c.order.ID)
	return err
}

func (c *crmTestContext) lowStockProductsAreRestocked(threshold, increment int) error {
	c.restock, c.err = c.svc.Restocker.RestockLowStock(context.Background(), threshold, increment)
	return nil
}

// Then steps

func (c *crmTestContext) theOrderTotalIs(want string) error {
	if c.err != nil {
		return fmt.Errorf("unexpected error: %w", c.err)
	}
	if c.order == nil {
		return errors.New("no order placed")
	}
	o, err := c.svc.Orders.GetOrder(context.Background(), c.order.ID)
	if err != nil {
		return err
	}
	if got := o.TotalAmount.StringFixed(2); got != want {
		return fmt.Errorf("expected total %s, got %s", want, got)
	}
	return nil
}

func (c *crmTestContext) theRequestFailsWith(msg string) error {
	if c.err == nil {
		return errors.New("expected an error, got none")
	}
	if got := apperr.Message(c.err); got != msg {
		return fmt.Errorf("expected error %q, got %q", msg, got)
	}
	return nil
}

func (c *crmTestContext) thereAreOrders(n int) error {
	var count int64
	if err := c.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != n {
		return fmt.Errorf("expected %d orders, got %d", n, count)
	}
	return nil
}

func (c *crmTestContext) theRestockSummaryIs(want string) error {
	if c.err != nil {
		return fmt.Errorf("unexpected error: %w", c.err)
	}
	if c.restock.Summary != want {
		return fmt.Errorf("expected summary %q, got %q", want, c.restock.Summary)
	}
	return nil
}

func (c *crmTestContext) productHasStock(name string, stock int) error {
	p, err := c.svc.Products.GetProduct(context.Background(), c.products[name])
	if err != nil {
		return err
	}
	if p.Stock != stock {
		return fmt.Errorf("expected %s stock %d, got %d", name, stock, p.Stock)
	}
	return nil
}

func initializeScenario(t *testing.T) func(*godog.ScenarioContext) {
	return func(ctx *godog.ScenarioContext) {
		tc := &crmTestContext{}

		ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
			tc.reset(storetest.NewDB(t))
			return ctx, nil
		})

		// Given steps
		ctx.Step(`^a customer "([^"]*)" with email "([^"]*)"$`, tc.aCustomerWithEmail)
		ctx.Step(`^a product "([^"]*)" priced at "([^"]*)" with stock (\d+)$`, tc.aProductPricedAtWithStock)

		// When steps
		ctx.Step(`^"([^"]*)" orders "([^"]*)"$`, tc.customerOrders)
		ctx.Step(`^the order products are replaced with "([^"]*)"$`, tc.theOrderProductsAreReplacedWith)
		ctx.Step(`^the price of "([^"]*)" changes to "([^"]*)"$`, tc.thePriceOfChangesTo)
		ctx.Step(`^the order total is recomputed$`, tc.theOrderTotalIsRecomputed)
		ctx.Step(`^low-stock products are restocked with threshold (\d+) and increment (-?\d+)$`, tc.lowStockProductsAreRestocked)

		// Then steps
		ctx.Step(`^the order total is "([^"]*)"$`, tc.theOrderTotalIs)
		ctx.Step(`^the request fails with "([^"]*)"$`, tc.theRequestFailsWith)
		ctx.Step(`^there are (\d+) orders$`, tc.thereAreOrders)
		ctx.Step(`^the restock summary is "([^"]*)"$`, tc.theRestockSummaryIs)
		ctx.Step(`^"([^"]*)" has stock (\d+)$`, tc.productHasStock)
	}
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario(t),
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"orders.feature", "restock.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
