package graph

import (
	"time"

	"github.com/graphql-go/graphql"

	"github.com/judyrop/sil-crm/apperr"
	"github.com/judyrop/sil-crm/service"
	"github.com/judyrop/sil-crm/validation"
)

const (
	msgCustomerCreated = "Customer created successfully"
	msgProductCreated  = "Product created successfully"
	msgOrderCreated    = "Order created successfully"
	msgOrderUpdated    = "Order products updated successfully"
	msgCustomerDeleted = "Customer deleted successfully"
)

func payload(name string, fields graphql.Fields) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{Name: name, Fields: fields})
}

// Payload objects are plain maps, read by graphql-go's default resolver.
func (r *resolver) mutationType(t *types) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createCustomer": &graphql.Field{
				Type: payload("CreateCustomerPayload", graphql.Fields{
					"customer": &graphql.Field{Type: t.customer},
					"message":  &graphql.Field{Type: graphql.String},
				}),
				Args:    graphql.FieldConfigArgument{"input": {Type: nonNull(t.customerInput)}},
				Resolve: r.createCustomer,
			},
			"bulkCreateCustomers": &graphql.Field{
				Type: payload("BulkCreateCustomersPayload", graphql.Fields{
					"customers": &graphql.Field{Type: listOf(t.customer)},
					"errors":    &graphql.Field{Type: listOf(graphql.String)},
				}),
				Args:    graphql.FieldConfigArgument{"input": {Type: listOf(t.customerInput)}},
				Resolve: r.bulkCreateCustomers,
			},
			"createProduct": &graphql.Field{
				Type: payload("CreateProductPayload", graphql.Fields{
					"product": &graphql.Field{Type: t.product},
					"message": &graphql.Field{Type: graphql.String},
				}),
				Args:    graphql.FieldConfigArgument{"input": {Type: nonNull(t.productInput)}},
				Resolve: r.createProduct,
			},
			"createOrder": &graphql.Field{
				Type: payload("CreateOrderPayload", graphql.Fields{
					"order":   &graphql.Field{Type: t.order},
					"message": &graphql.Field{Type: graphql.String},
				}),
				Args:    graphql.FieldConfigArgument{"input": {Type: nonNull(t.orderInput)}},
				Resolve: r.createOrder,
			},
			"updateOrderProducts": &graphql.Field{
				Type: payload("UpdateOrderProductsPayload", graphql.Fields{
					"order":   &graphql.Field{Type: t.order},
					"message": &graphql.Field{Type: graphql.String},
				}),
				Args: graphql.FieldConfigArgument{
					"orderId":    {Type: nonNull(graphql.ID)},
					"productIds": {Type: listOf(graphql.ID)},
				},
				Resolve: r.updateOrderProducts,
			},
			"updateLowStockProducts": &graphql.Field{
				Type: payload("UpdateLowStockProductsPayload", graphql.Fields{
					"success":         &graphql.Field{Type: graphql.String},
					"updatedProducts": &graphql.Field{Type: listOf(t.product)},
				}),
				Args: graphql.FieldConfigArgument{
					"threshold": {Type: graphql.Int, DefaultValue: r.restockThreshold},
					"increment": {Type: graphql.Int, DefaultValue: r.restockIncrement},
				},
				Resolve: r.updateLowStockProducts,
			},
			"deleteCustomer": &graphql.Field{
				Type: payload("DeleteCustomerPayload", graphql.Fields{
					"ok":      &graphql.Field{Type: graphql.Boolean},
					"message": &graphql.Field{Type: graphql.String},
				}),
				Args:    graphql.FieldConfigArgument{"id": {Type: nonNull(graphql.ID)}},
				Resolve: r.deleteCustomer,
			},
		},
	})
}

func customerInput(v interface{}) service.CustomerInput {
	m, _ := v.(map[string]interface{})
	return service.CustomerInput{
		Name:  argString(m, "name"),
		Email: argString(m, "email"),
		Phone: argString(m, "phone"),
	}
}

func (r *resolver) createCustomer(p graphql.ResolveParams) (interface{}, error) {
	c, err := r.svc.Customers.CreateCustomer(p.Context, customerInput(p.Args["input"]))
	if err != nil {
		return nil, r.fail("createCustomer", err)
	}
	return map[string]interface{}{"customer": c, "message": msgCustomerCreated}, nil
}

func (r *resolver) bulkCreateCustomers(p graphql.ResolveParams) (interface{}, error) {
	items, _ := p.Args["input"].([]interface{})
	in := make([]service.CustomerInput, 0, len(items))
	for _, item := range items {
		in = append(in, customerInput(item))
	}
	res, err := r.svc.Customers.BulkCreateCustomers(p.Context, in)
	if err != nil {
		return nil, r.fail("bulkCreateCustomers", err)
	}
	return map[string]interface{}{
		"customers": customerNodes(res.Created),
		"errors":    res.Errors,
	}, nil
}

func (r *resolver) createProduct(p graphql.ResolveParams) (interface{}, error) {
	m, _ := p.Args["input"].(map[string]interface{})
	in := service.ProductInput{Name: argString(m, "name")}
	if d := argDecimal(m, "price"); d != nil {
		in.Price = *d
	}
	if n := argInt(m, "stock"); n != nil {
		in.Stock = *n
	}
	prod, err := r.svc.Products.CreateProduct(p.Context, in)
	if err != nil {
		return nil, r.fail("createProduct", err)
	}
	return map[string]interface{}{"product": prod, "message": msgProductCreated}, nil
}

func (r *resolver) createOrder(p graphql.ResolveParams) (interface{}, error) {
	m, _ := p.Args["input"].(map[string]interface{})
	customerID, ok := parseID(m["customerId"])
	if !ok {
		return nil, r.fail("createOrder", apperr.NotFound(validation.MsgInvalidCustomer))
	}
	productIDs, err := productIDs(m["productIds"])
	if err != nil {
		return nil, r.fail("createOrder", err)
	}
	in := service.OrderInput{CustomerID: customerID, ProductIDs: productIDs}
	if t := argTime(m, "orderDate"); t != nil {
		date := t.UTC().Truncate(time.Microsecond)
		in.OrderDate = &date
	}
	o, err := r.svc.Orders.CreateOrder(p.Context, in)
	if err != nil {
		return nil, r.fail("createOrder", err)
	}
	return map[string]interface{}{"order": o, "message": msgOrderCreated}, nil
}

func (r *resolver) updateOrderProducts(p graphql.ResolveParams) (interface{}, error) {
	orderID, ok := parseID(p.Args["orderId"])
	if !ok {
		return nil, r.fail("updateOrderProducts", apperr.NotFound(service.MsgInvalidOrder))
	}
	ids, err := productIDs(p.Args["productIds"])
	if err != nil {
		return nil, r.fail("updateOrderProducts", err)
	}
	o, err := r.svc.Orders.ReplaceProducts(p.Context, orderID, ids)
	if err != nil {
		return nil, r.fail("updateOrderProducts", err)
	}
	return map[string]interface{}{"order": o, "message": msgOrderUpdated}, nil
}

func (r *resolver) updateLowStockProducts(p graphql.ResolveParams) (interface{}, error) {
	threshold := r.restockThreshold
	if n := argInt(p.Args, "threshold"); n != nil {
		threshold = *n
	}
	increment := r.restockIncrement
	if n := argInt(p.Args, "increment"); n != nil {
		increment = *n
	}
	res, err := r.svc.Restocker.RestockLowStock(p.Context, threshold, increment)
	if err != nil {
		return nil, r.fail("updateLowStockProducts", err)
	}
	return map[string]interface{}{
		"success":         res.Summary,
		"updatedProducts": productNodes(res.Updated),
	}, nil
}

func (r *resolver) deleteCustomer(p graphql.ResolveParams) (interface{}, error) {
	id, ok := parseID(p.Args["id"])
	if !ok {
		return nil, r.fail("deleteCustomer", apperr.NotFound("customer not found"))
	}
	if err := r.svc.Customers.DeleteCustomer(p.Context, id); err != nil {
		return nil, r.fail("deleteCustomer", err)
	}
	return map[string]interface{}{"ok": true, "message": msgCustomerDeleted}, nil
}

// productIDs parses a list of ID arguments. An id that cannot name a
// product is reported the same way as an unknown one.
func productIDs(v interface{}) ([]uint, error) {
	raw, _ := v.([]interface{})
	ids := make([]uint, 0, len(raw))
	for _, item := range raw {
		id, ok := parseID(item)
		if !ok {
			return nil, apperr.NotFound(validation.MsgInvalidProducts)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
