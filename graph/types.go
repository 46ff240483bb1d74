package graph

import (
	"github.com/graphql-go/graphql"

	"github.com/judyrop/sil-crm/models"
	"github.com/judyrop/sil-crm/store"
)

type types struct {
	customer *graphql.Object
	product  *graphql.Object
	order    *graphql.Object

	customerConn *graphql.Object
	productConn  *graphql.Object
	orderConn    *graphql.Object

	customerInput *graphql.InputObject
	productInput  *graphql.InputObject
	orderInput    *graphql.InputObject
}

func nonNull(t graphql.Type) graphql.Type {
	return graphql.NewNonNull(t)
}

func listOf(t graphql.Type) graphql.Type {
	return graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(t)))
}

func (r *resolver) buildTypes() *types {
	t := &types{}

	t.customer = graphql.NewObject(graphql.ObjectConfig{
		Name: "Customer",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: nonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return formatID(p.Source.(*models.Customer).ID), nil
				},
			},
			"name": &graphql.Field{
				Type: nonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*models.Customer).Name, nil
				},
			},
			"email": &graphql.Field{
				Type: nonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*models.Customer).Email, nil
				},
			},
			"phone": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if phone := p.Source.(*models.Customer).Phone; phone != nil {
						return *phone, nil
					}
					return nil, nil
				},
			},
			"createdAt": &graphql.Field{
				Type: nonNull(graphql.DateTime),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*models.Customer).CreatedAt, nil
				},
			},
		},
	})

	t.product = graphql.NewObject(graphql.ObjectConfig{
		Name: "Product",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: nonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return formatID(p.Source.(*models.Product).ID), nil
				},
			},
			"name": &graphql.Field{
				Type: nonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*models.Product).Name, nil
				},
			},
			"price": &graphql.Field{
				Type: nonNull(Decimal),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*models.Product).Price, nil
				},
			},
			"stock": &graphql.Field{
				Type: nonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*models.Product).Stock, nil
				},
			},
			"createdAt": &graphql.Field{
				Type: nonNull(graphql.DateTime),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*models.Product).CreatedAt, nil
				},
			},
		},
	})

	t.order = graphql.NewObject(graphql.ObjectConfig{
		Name: "Order",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: nonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return formatID(p.Source.(*models.Order).ID), nil
				},
			},
			"customer": &graphql.Field{
				Type: nonNull(t.customer),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return &p.Source.(*models.Order).Customer, nil
				},
			},
			"products": &graphql.Field{
				Type: listOf(t.product),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return productNodes(p.Source.(*models.Order).Products), nil
				},
			},
			"totalAmount": &graphql.Field{
				Type: nonNull(Decimal),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*models.Order).TotalAmount, nil
				},
			},
			"orderDate": &graphql.Field{
				Type: nonNull(graphql.DateTime),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*models.Order).OrderDate, nil
				},
			},
			"createdAt": &graphql.Field{
				Type: nonNull(graphql.DateTime),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*models.Order).CreatedAt, nil
				},
			},
		},
	})

	t.customer.AddFieldConfig("orders", &graphql.Field{
		Type: listOf(t.order),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			id := p.Source.(*models.Customer).ID
			rows, _, err := r.svc.Orders.ListOrders(p.Context, store.OrderFilter{CustomerID: &id}, "orderDate", store.Page{})
			if err != nil {
				return nil, r.fail("Customer.orders", err)
			}
			return orderNodes(rows), nil
		},
	})

	pageInfo := graphql.NewObject(graphql.ObjectConfig{
		Name: "PageInfo",
		Fields: graphql.Fields{
			"hasNextPage":     &graphql.Field{Type: nonNull(graphql.Boolean)},
			"hasPreviousPage": &graphql.Field{Type: nonNull(graphql.Boolean)},
			"startCursor":     &graphql.Field{Type: graphql.String},
			"endCursor":       &graphql.Field{Type: graphql.String},
		},
	})
	t.customerConn = connectionType("Customer", t.customer, pageInfo)
	t.productConn = connectionType("Product", t.product, pageInfo)
	t.orderConn = connectionType("Order", t.order, pageInfo)

	t.customerInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CustomerInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"name":  &graphql.InputObjectFieldConfig{Type: nonNull(graphql.String)},
			"email": &graphql.InputObjectFieldConfig{Type: nonNull(graphql.String)},
			"phone": &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})
	t.productInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "ProductInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"name":  &graphql.InputObjectFieldConfig{Type: nonNull(graphql.String)},
			"price": &graphql.InputObjectFieldConfig{Type: nonNull(Decimal)},
			"stock": &graphql.InputObjectFieldConfig{Type: graphql.Int, DefaultValue: 0},
		},
	})
	t.orderInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "OrderInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"customerId": &graphql.InputObjectFieldConfig{Type: nonNull(graphql.ID)},
			"productIds": &graphql.InputObjectFieldConfig{Type: listOf(graphql.ID)},
			"orderDate":  &graphql.InputObjectFieldConfig{Type: graphql.DateTime},
		},
	})
	return t
}

func connectionType(name string, node *graphql.Object, pageInfo *graphql.Object) *graphql.Object {
	edge := graphql.NewObject(graphql.ObjectConfig{
		Name: name + "Edge",
		Fields: graphql.Fields{
			"cursor": &graphql.Field{Type: nonNull(graphql.String)},
			"node":   &graphql.Field{Type: nonNull(node)},
		},
	})
	return graphql.NewObject(graphql.ObjectConfig{
		Name: name + "Connection",
		Fields: graphql.Fields{
			"totalCount": &graphql.Field{Type: nonNull(graphql.Int)},
			"edges":      &graphql.Field{Type: listOf(edge)},
			"pageInfo":   &graphql.Field{Type: nonNull(pageInfo)},
		},
	})
}

func customerNodes(rows []models.Customer) []interface{} {
	out := make([]interface{}, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}

func productNodes(rows []models.Product) []interface{} {
	out := make([]interface{}, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}

func orderNodes(rows []models.Order) []interface{} {
	out := make([]interface{}, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}
