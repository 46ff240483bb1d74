package graph

import (
	"github.com/graphql-go/graphql"

	"github.com/judyrop/sil-crm/apperr"
	"github.com/judyrop/sil-crm/store"
)

const helloMessage = "Hello, GraphQL!"

func pagingArgs(extra graphql.FieldConfigArgument) graphql.FieldConfigArgument {
	extra["first"] = &graphql.ArgumentConfig{Type: graphql.Int}
	extra["after"] = &graphql.ArgumentConfig{Type: graphql.String}
	extra["orderBy"] = &graphql.ArgumentConfig{
		Type:        graphql.String,
		Description: "Field to sort on; prefix with - for descending.",
	}
	return extra
}

func (r *resolver) queryType(t *types) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"hello": &graphql.Field{
				Type: nonNull(graphql.String),
				Resolve: func(graphql.ResolveParams) (interface{}, error) {
					return helloMessage, nil
				},
			},
			"allCustomers": &graphql.Field{
				Type: nonNull(t.customerConn),
				Args: pagingArgs(graphql.FieldConfigArgument{
					"nameIcontains":   {Type: graphql.String},
					"emailIcontains":  {Type: graphql.String},
					"phoneStartsWith": {Type: graphql.String},
					"createdAtGte":    {Type: graphql.DateTime},
					"createdAtLte":    {Type: graphql.DateTime},
				}),
				Resolve: r.allCustomers,
			},
			"allProducts": &graphql.Field{
				Type: nonNull(t.productConn),
				Args: pagingArgs(graphql.FieldConfigArgument{
					"nameIcontains": {Type: graphql.String},
					"priceGte":      {Type: Decimal},
					"priceLte":      {Type: Decimal},
					"stockGte":      {Type: graphql.Int},
					"stockLte":      {Type: graphql.Int},
				}),
				Resolve: r.allProducts,
			},
			"allOrders": &graphql.Field{
				Type: nonNull(t.orderConn),
				Args: pagingArgs(graphql.FieldConfigArgument{
					"customerId":            {Type: graphql.ID},
					"customerNameIcontains": {Type: graphql.String},
					"productNameIcontains":  {Type: graphql.String},
					"totalAmountGte":        {Type: Decimal},
					"totalAmountLte":        {Type: Decimal},
					"orderDateGte":          {Type: graphql.DateTime},
					"orderDateLte":          {Type: graphql.DateTime},
				}),
				Resolve: r.allOrders,
			},
			"customer": &graphql.Field{
				Type:    t.customer,
				Args:    graphql.FieldConfigArgument{"id": {Type: nonNull(graphql.ID)}},
				Resolve: r.customerByID,
			},
			"product": &graphql.Field{
				Type:    t.product,
				Args:    graphql.FieldConfigArgument{"id": {Type: nonNull(graphql.ID)}},
				Resolve: r.productByID,
			},
			"order": &graphql.Field{
				Type:    t.order,
				Args:    graphql.FieldConfigArgument{"id": {Type: nonNull(graphql.ID)}},
				Resolve: r.orderByID,
			},
		},
	})
}

func (r *resolver) allCustomers(p graphql.ResolveParams) (interface{}, error) {
	page, err := pageArgs(p.Args)
	if err != nil {
		return nil, r.fail("allCustomers", err)
	}
	f := store.CustomerFilter{
		NameContains:  argString(p.Args, "nameIcontains"),
		EmailContains: argString(p.Args, "emailIcontains"),
		PhonePrefix:   argString(p.Args, "phoneStartsWith"),
		CreatedAfter:  argTime(p.Args, "createdAtGte"),
		CreatedBefore: argTime(p.Args, "createdAtLte"),
	}
	rows, total, err := r.svc.Customers.ListCustomers(p.Context, f, argString(p.Args, "orderBy"), page)
	if err != nil {
		return nil, r.fail("allCustomers", err)
	}
	return connectionOf(customerNodes(rows), total, page.Offset), nil
}

func (r *resolver) allProducts(p graphql.ResolveParams) (interface{}, error) {
	page, err := pageArgs(p.Args)
	if err != nil {
		return nil, r.fail("allProducts", err)
	}
	f := store.ProductFilter{
		NameContains: argString(p.Args, "nameIcontains"),
		PriceMin:     argDecimal(p.Args, "priceGte"),
		PriceMax:     argDecimal(p.Args, "priceLte"),
		StockMin:     argInt(p.Args, "stockGte"),
		StockMax:     argInt(p.Args, "stockLte"),
	}
	rows, total, err := r.svc.Products.ListProducts(p.Context, f, argString(p.Args, "orderBy"), page)
	if err != nil {
		return nil, r.fail("allProducts", err)
	}
	return connectionOf(productNodes(rows), total, page.Offset), nil
}

func (r *resolver) allOrders(p graphql.ResolveParams) (interface{}, error) {
	page, err := pageArgs(p.Args)
	if err != nil {
		return nil, r.fail("allOrders", err)
	}
	f := store.OrderFilter{
		CustomerNameContains: argString(p.Args, "customerNameIcontains"),
		ProductNameContains:  argString(p.Args, "productNameIcontains"),
		TotalMin:             argDecimal(p.Args, "totalAmountGte"),
		TotalMax:             argDecimal(p.Args, "totalAmountLte"),
		OrderedAfter:         argTime(p.Args, "orderDateGte"),
		OrderedBefore:        argTime(p.Args, "orderDateLte"),
	}
	if _, ok := p.Args["customerId"]; ok {
		id, err := argID(p.Args, "customerId")
		if err != nil {
			return nil, r.fail("allOrders", err)
		}
		f.CustomerID = &id
	}
	rows, total, err := r.svc.Orders.ListOrders(p.Context, f, argString(p.Args, "orderBy"), page)
	if err != nil {
		return nil, r.fail("allOrders", err)
	}
	return connectionOf(orderNodes(rows), total, page.Offset), nil
}

// Single-record lookups resolve to null for unknown ids.

func (r *resolver) customerByID(p graphql.ResolveParams) (interface{}, error) {
	id, ok := parseID(p.Args["id"])
	if !ok {
		return nil, nil
	}
	c, err := r.svc.Customers.GetCustomer(p.Context, id)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.fail("customer", err)
	}
	return c, nil
}

func (r *resolver) productByID(p graphql.ResolveParams) (interface{}, error) {
	id, ok := parseID(p.Args["id"])
	if !ok {
		return nil, nil
	}
	pr, err := r.svc.Products.GetProduct(p.Context, id)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.fail("product", err)
	}
	return pr, nil
}

func (r *resolver) orderByID(p graphql.ResolveParams) (interface{}, error) {
	id, ok := parseID(p.Args["id"])
	if !ok {
		return nil, nil
	}
	o, err := r.svc.Orders.GetOrder(p.Context, id)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.fail("order", err)
	}
	return o, nil
}
