package graph

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/judyrop/sil-crm/models"
	"github.com/judyrop/sil-crm/service"
	"github.com/judyrop/sil-crm/store"
	"github.com/judyrop/sil-crm/store/storetest"
)

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func newTestExecutor(t *testing.T) (*Executor, *service.Services) {
	t.Helper()
	db := storetest.NewDB(t)
	svc := service.New(service.Deps{Store: store.New(db), Logger: zap.NewNop()})
	e, err := NewExecutor(Config{Services: svc, Logger: zap.NewNop()})
	require.NoError(t, err)
	return e, svc
}

// run executes query and decodes data into out. It returns the error
// messages, if any.
func run(t *testing.T, e *Executor, query string, vars map[string]interface{}, out interface{}) []string {
	t.Helper()
	res := e.Execute(context.Background(), Request{Query: query, Variables: vars})
	raw, err := json.Marshal(res)
	require.NoError(t, err)
	var resp gqlResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	if out != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, out))
	}
	msgs := make([]string, 0, len(resp.Errors))
	for _, e := range resp.Errors {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

type seeded struct {
	alice, bob               *models.Customer
	laptop, phone, headphone *models.Product
}

func seed(t *testing.T, svc *service.Services) seeded {
	t.Helper()
	ctx := context.Background()
	var s seeded
	var err error
	s.alice, err = svc.Customers.CreateCustomer(ctx, service.CustomerInput{Name: "Alice Johnson", Email: "alice@example.com", Phone: "+1234567890"})
	require.NoError(t, err)
	s.bob, err = svc.Customers.CreateCustomer(ctx, service.CustomerInput{Name: "Bob Smith", Email: "bob@example.com", Phone: "123-456-7890"})
	require.NoError(t, err)
	s.laptop, err = svc.Products.CreateProduct(ctx, service.ProductInput{Name: "Laptop", Price: decimal.RequireFromString("999.99"), Stock: 10})
	require.NoError(t, err)
	s.phone, err = svc.Products.CreateProduct(ctx, service.ProductInput{Name: "Phone", Price: decimal.RequireFromString("499.99"), Stock: 5})
	require.NoError(t, err)
	s.headphone, err = svc.Products.CreateProduct(ctx, service.ProductInput{Name: "Headphones", Price: decimal.RequireFromString("89.99"), Stock: 50})
	require.NoError(t, err)
	return s
}

func TestHello(t *testing.T) {
	e, _ := newTestExecutor(t)
	var out struct{ Hello string }
	assert.Empty(t, run(t, e, `{ hello }`, nil, &out))
	assert.Equal(t, "Hello, GraphQL!", out.Hello)
}

func TestCreateCustomerMutation(t *testing.T) {
	e, _ := newTestExecutor(t)
	const q = `mutation($input: CustomerInput!) {
		createCustomer(input: $input) { message customer { id name email phone } }
	}`
	var out struct {
		CreateCustomer struct {
			Message  string
			Customer struct {
				ID    string
				Name  string
				Email string
				Phone *string
			}
		}
	}
	errs := run(t, e, q, map[string]interface{}{
		"input": map[string]interface{}{"name": "Alice", "email": "alice@example.com", "phone": "+1234567890"},
	}, &out)
	require.Empty(t, errs)
	assert.Equal(t, "Customer created successfully", out.CreateCustomer.Message)
	assert.Equal(t, "alice@example.com", out.CreateCustomer.Customer.Email)
	require.NotNil(t, out.CreateCustomer.Customer.Phone)
	assert.NotEmpty(t, out.CreateCustomer.Customer.ID)

	errs = run(t, e, q, map[string]interface{}{
		"input": map[string]interface{}{"name": "Alice 2", "email": "alice@example.com"},
	}, nil)
	assert.Equal(t, []string{"Email already exists"}, errs)

	errs = run(t, e, q, map[string]interface{}{
		"input": map[string]interface{}{"name": "Bob", "email": "bob@example.com", "phone": "12"},
	}, nil)
	assert.Equal(t, []string{"Invalid phone format"}, errs)
}

func TestBulkCreateCustomersMutation(t *testing.T) {
	e, _ := newTestExecutor(t)
	var out struct {
		BulkCreateCustomers struct {
			Customers []struct{ Email string }
			Errors    []string
		}
	}
	errs := run(t, e, `mutation {
		bulkCreateCustomers(input: [
			{name: "A", email: "a@example.com"},
			{name: "B", email: "b@example.com", phone: "bad"},
			{name: "C", email: "c@example.com"},
			{name: "A2", email: "a@example.com"}
		]) { customers { email } errors }
	}`, nil, &out)
	require.Empty(t, errs)
	require.Len(t, out.BulkCreateCustomers.Customers, 2)
	assert.Equal(t, "a@example.com", out.BulkCreateCustomers.Customers[0].Email)
	assert.Equal(t, []string{
		"Invalid phone format: bad",
		"Email already exists: a@example.com",
	}, out.BulkCreateCustomers.Errors)
}

func TestCreateProductMutation(t *testing.T) {
	e, _ := newTestExecutor(t)
	var out struct {
		CreateProduct struct {
			Message string
			Product struct {
				Price string
				Stock int
			}
		}
	}
	errs := run(t, e, `mutation { createProduct(input: {name: "Laptop", price: "999.99"}) { message product { price stock } } }`, nil, &out)
	require.Empty(t, errs)
	assert.Equal(t, "Product created successfully", out.CreateProduct.Message)
	assert.Equal(t, "999.99", out.CreateProduct.Product.Price)
	assert.Equal(t, 0, out.CreateProduct.Product.Stock)

	errs = run(t, e, `mutation { createProduct(input: {name: "Free", price: 0}) { message } }`, nil, nil)
	assert.Equal(t, []string{"Price must be positive"}, errs)

	errs = run(t, e, `mutation { createProduct(input: {name: "Bolt", price: "0.004", stock: 1}) { product { price } } }`, nil, nil)
	assert.Equal(t, []string{"Price must have at most two decimal places"}, errs)

	errs = run(t, e, `mutation { createProduct(input: {name: "Yacht", price: "100000000"}) { message } }`, nil, nil)
	assert.Equal(t, []string{"Price must be less than 100000000"}, errs)

	errs = run(t, e, `mutation { createProduct(input: {name: "Owed", price: 1.5, stock: -1}) { message } }`, nil, nil)
	assert.Equal(t, []string{"Stock cannot be negative"}, errs)
}

func TestCreateOrderMutation(t *testing.T) {
	e, svc := newTestExecutor(t)
	s := seed(t, svc)
	const q = `mutation($input: OrderInput!) {
		createOrder(input: $input) { message order { totalAmount customer { email } products { name } } }
	}`
	var out struct {
		CreateOrder struct {
			Message string
			Order   struct {
				TotalAmount string
				Customer    struct{ Email string }
				Products    []struct{ Name string }
			}
		}
	}
	errs := run(t, e, q, map[string]interface{}{
		"input": map[string]interface{}{
			"customerId": formatID(s.alice.ID),
			"productIds": []interface{}{formatID(s.laptop.ID), formatID(s.phone.ID)},
		},
	}, &out)
	require.Empty(t, errs)
	assert.Equal(t, "Order created successfully", out.CreateOrder.Message)
	assert.Equal(t, "1499.98", out.CreateOrder.Order.TotalAmount)
	assert.Equal(t, "alice@example.com", out.CreateOrder.Order.Customer.Email)
	assert.Len(t, out.CreateOrder.Order.Products, 2)

	errs = run(t, e, q, map[string]interface{}{
		"input": map[string]interface{}{"customerId": "999", "productIds": []interface{}{formatID(s.laptop.ID)}},
	}, nil)
	assert.Equal(t, []string{"Invalid customer ID"}, errs)

	errs = run(t, e, q, map[string]interface{}{
		"input": map[string]interface{}{"customerId": formatID(s.alice.ID), "productIds": []interface{}{}},
	}, nil)
	assert.Equal(t, []string{"At least one product ID is required"}, errs)

	errs = run(t, e, q, map[string]interface{}{
		"input": map[string]interface{}{"customerId": formatID(s.alice.ID), "productIds": []interface{}{"abc"}},
	}, nil)
	assert.Equal(t, []string{"One or more product IDs are invalid"}, errs)
}

func TestUpdateOrderProductsMutation(t *testing.T) {
	e, svc := newTestExecutor(t)
	s := seed(t, svc)
	o, err := svc.Orders.CreateOrder(context.Background(), service.OrderInput{CustomerID: s.alice.ID, ProductIDs: []uint{s.laptop.ID}})
	require.NoError(t, err)

	var out struct {
		UpdateOrderProducts struct {
			Message string
			Order   struct{ TotalAmount string }
		}
	}
	errs := run(t, e, `mutation($id: ID!, $ids: [ID!]!) {
		updateOrderProducts(orderId: $id, productIds: $ids) { message order { totalAmount } }
	}`, map[string]interface{}{
		"id":  formatID(o.ID),
		"ids": []interface{}{formatID(s.headphone.ID), formatID(s.headphone.ID)},
	}, &out)
	require.Empty(t, errs)
	assert.Equal(t, "Order products updated successfully", out.UpdateOrderProducts.Message)
	assert.Equal(t, "89.99", out.UpdateOrderProducts.Order.TotalAmount)
}

func TestUpdateLowStockProductsMutation(t *testing.T) {
	e, svc := newTestExecutor(t)
	seed(t, svc)

	var out struct {
		UpdateLowStockProducts struct {
			Success         string
			UpdatedProducts []struct {
				Name  string
				Stock int
			}
		}
	}
	errs := run(t, e, `mutation { updateLowStockProducts { success updatedProducts { name stock } } }`, nil, &out)
	require.Empty(t, errs)
	assert.Equal(t, "Updated 1 low-stock products.", out.UpdateLowStockProducts.Success)
	require.Len(t, out.UpdateLowStockProducts.UpdatedProducts, 1)
	assert.Equal(t, "Phone", out.UpdateLowStockProducts.UpdatedProducts[0].Name)
	assert.Equal(t, 15, out.UpdateLowStockProducts.UpdatedProducts[0].Stock)

	errs = run(t, e, `mutation { updateLowStockProducts(increment: 0) { success } }`, nil, nil)
	assert.Equal(t, []string{"Increment must be positive"}, errs)
}

func TestDeleteCustomerMutation(t *testing.T) {
	e, svc := newTestExecutor(t)
	s := seed(t, svc)

	var out struct {
		DeleteCustomer struct {
			OK      bool
			Message string
		}
	}
	errs := run(t, e, `mutation($id: ID!) { deleteCustomer(id: $id) { ok message } }`,
		map[string]interface{}{"id": formatID(s.bob.ID)}, &out)
	require.Empty(t, errs)
	assert.True(t, out.DeleteCustomer.OK)

	var lookup struct{ Customer *struct{ ID string } }
	require.Empty(t, run(t, e, `query($id: ID!) { customer(id: $id) { id } }`,
		map[string]interface{}{"id": formatID(s.bob.ID)}, &lookup))
	assert.Nil(t, lookup.Customer)
}

type productConn struct {
	TotalCount int
	Edges      []struct {
		Cursor string
		Node   struct {
			Name  string
			Price string
		}
	}
	PageInfo struct {
		HasNextPage     bool
		HasPreviousPage bool
		EndCursor       *string
	}
}

func TestAllProductsFilterOrderAndPaging(t *testing.T) {
	e, svc := newTestExecutor(t)
	seed(t, svc)

	const q = `query($after: String) {
		allProducts(priceGte: "90", orderBy: "-price", first: 1, after: $after) {
			totalCount
			edges { cursor node { name price } }
			pageInfo { hasNextPage hasPreviousPage endCursor }
		}
	}`
	var first struct{ AllProducts productConn }
	require.Empty(t, run(t, e, q, nil, &first))
	assert.Equal(t, 2, first.AllProducts.TotalCount)
	require.Len(t, first.AllProducts.Edges, 1)
	assert.Equal(t, "Laptop", first.AllProducts.Edges[0].Node.Name)
	assert.True(t, first.AllProducts.PageInfo.HasNextPage)
	assert.False(t, first.AllProducts.PageInfo.HasPreviousPage)
	require.NotNil(t, first.AllProducts.PageInfo.EndCursor)

	var second struct{ AllProducts productConn }
	require.Empty(t, run(t, e, q, map[string]interface{}{"after": *first.AllProducts.PageInfo.EndCursor}, &second))
	require.Len(t, second.AllProducts.Edges, 1)
	assert.Equal(t, "Phone", second.AllProducts.Edges[0].Node.Name)
	assert.False(t, second.AllProducts.PageInfo.HasNextPage)
	assert.True(t, second.AllProducts.PageInfo.HasPreviousPage)

	errs := run(t, e, `{ allProducts(orderBy: "bogus") { totalCount } }`, nil, nil)
	assert.Equal(t, []string{`Cannot order by "bogus"`}, errs)

	errs = run(t, e, `{ allProducts(after: "%%%") { totalCount } }`, nil, nil)
	assert.Equal(t, []string{"Invalid cursor"}, errs)

	var empty struct{ AllProducts productConn }
	require.Empty(t, run(t, e, `{ allProducts(first: 0) { totalCount edges { cursor } pageInfo { hasNextPage endCursor } } }`, nil, &empty))
	assert.Equal(t, 3, empty.AllProducts.TotalCount)
	assert.Empty(t, empty.AllProducts.Edges)
	assert.True(t, empty.AllProducts.PageInfo.HasNextPage)
	assert.Nil(t, empty.AllProducts.PageInfo.EndCursor)
}

func TestAllCustomersAndOrdersFilters(t *testing.T) {
	e, svc := newTestExecutor(t)
	s := seed(t, svc)
	ctx := context.Background()
	_, err := svc.Orders.CreateOrder(ctx, service.OrderInput{CustomerID: s.alice.ID, ProductIDs: []uint{s.laptop.ID, s.phone.ID}})
	require.NoError(t, err)
	_, err = svc.Orders.CreateOrder(ctx, service.OrderInput{CustomerID: s.bob.ID, ProductIDs: []uint{s.headphone.ID}})
	require.NoError(t, err)

	var customers struct {
		AllCustomers struct {
			TotalCount int
			Edges      []struct {
				Node struct {
					Name   string
					Orders []struct{ TotalAmount string }
				}
			}
		}
	}
	require.Empty(t, run(t, e, `{ allCustomers(nameIcontains: "ALICE") { totalCount edges { node { name orders { totalAmount } } } } }`, nil, &customers))
	assert.Equal(t, 1, customers.AllCustomers.TotalCount)
	require.Len(t, customers.AllCustomers.Edges, 1)
	require.Len(t, customers.AllCustomers.Edges[0].Node.Orders, 1)
	assert.Equal(t, "1499.98", customers.AllCustomers.Edges[0].Node.Orders[0].TotalAmount)

	var orders struct {
		AllOrders struct {
			TotalCount int
			Edges      []struct {
				Node struct {
					TotalAmount string
					Customer    struct{ Name string }
				}
			}
		}
	}
	require.Empty(t, run(t, e, `{ allOrders(productNameIcontains: "head") { totalCount edges { node { totalAmount customer { name } } } } }`, nil, &orders))
	assert.Equal(t, 1, orders.AllOrders.TotalCount)
	assert.Equal(t, "Bob Smith", orders.AllOrders.Edges[0].Node.Customer.Name)

	require.Empty(t, run(t, e, `{ allOrders(orderBy: "-totalAmount") { totalCount edges { node { totalAmount customer { name } } } } }`, nil, &orders))
	assert.Equal(t, 2, orders.AllOrders.TotalCount)
	assert.Equal(t, "1499.98", orders.AllOrders.Edges[0].Node.TotalAmount)
}
