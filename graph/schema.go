// Package graph exposes the CRM services as a GraphQL schema built with
// graphql-go. The same Executor serves HTTP requests and the in-process
// queries run by scheduled jobs.
package graph

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/judyrop/sil-crm/observability"
	"github.com/judyrop/sil-crm/service"
)

type Config struct {
	Services *service.Services
	Logger   *zap.Logger
	// Defaults for updateLowStockProducts.
	RestockThreshold int
	RestockIncrement int
}

type resolver struct {
	svc              *service.Services
	logger           *zap.Logger
	restockThreshold int
	restockIncrement int
}

// Request is a GraphQL request as posted over HTTP.
type Request struct {
	Query         string                 `json:"query" form:"query"`
	OperationName string                 `json:"operationName" form:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

type Executor struct {
	schema graphql.Schema
	logger *zap.Logger
}

func NewExecutor(cfg Config) (*Executor, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RestockThreshold == 0 && cfg.RestockIncrement == 0 {
		cfg.RestockThreshold = service.DefaultRestockThreshold
		cfg.RestockIncrement = service.DefaultRestockIncrement
	}
	r := &resolver{
		svc:              cfg.Services,
		logger:           cfg.Logger,
		restockThreshold: cfg.RestockThreshold,
		restockIncrement: cfg.RestockIncrement,
	}
	t := r.buildTypes()
	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    r.queryType(t),
		Mutation: r.mutationType(t),
	})
	if err != nil {
		return nil, fmt.Errorf("build graphql schema: %w", err)
	}
	return &Executor{schema: schema, logger: cfg.Logger}, nil
}

func (e *Executor) Schema() graphql.Schema {
	return e.schema
}

// Execute runs req against the schema. Errors are reported in the result,
// never returned.
func (e *Executor) Execute(ctx context.Context, req Request) *graphql.Result {
	ctx, span := observability.StartSpan(ctx, "graphql.Execute")
	defer span.End()

	res := graphql.Do(graphql.Params{
		Schema:         e.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
	if res.HasErrors() {
		e.logger.Debug("graphql request returned errors",
			zap.String("operation", req.OperationName),
			zap.Int("errors", len(res.Errors)))
	}
	return res
}
