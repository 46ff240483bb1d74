package app

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/judyrop/sil-crm/graph"
	"github.com/judyrop/sil-crm/observability"
)

const serviceName = "crm"

type RouterDeps struct {
	Executor *graph.Executor
	Logger   *zap.Logger
	Gatherer prometheus.Gatherer
	// Verifier, when set, guards /graphql with bearer-token auth.
	Verifier TokenVerifier
}

func SetupRouter(d RouterDeps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	r := gin.New()
	r.Use(gin.Recovery(), observability.RequestID(), observability.GinLogger(d.Logger), otelgin.Middleware(serviceName))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	gql := r.Group("/graphql")
	if d.Verifier != nil {
		gql.Use(AuthMiddleware(d.Verifier))
	}
	handler := graphqlHandler(d.Executor)
	gql.POST("", handler)
	gql.GET("", handler)

	return r
}

func graphqlHandler(exec *graph.Executor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req graph.Request
		if c.Request.Method == http.MethodGet {
			req.Query = c.Query("query")
			req.OperationName = c.Query("operationName")
			if v := c.Query("variables"); v != "" {
				if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "variables must be a JSON object"})
					return
				}
			}
		} else if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if strings.TrimSpace(req.Query) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query"})
			return
		}
		if c.Request.Method == http.MethodGet && isMutation(req.Query, req.OperationName) {
			c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Mutations must be sent with POST"})
			return
		}
		c.JSON(http.StatusOK, exec.Execute(c.Request.Context(), req))
	}
}

// isMutation reports whether the operation selected by op is a mutation.
// Unparseable documents are left for the executor to reject.
func isMutation(query, op string) bool {
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return false
	}
	for _, def := range doc.Definitions {
		od, ok := def.(*ast.OperationDefinition)
		if !ok || od.Operation != ast.OperationTypeMutation {
			continue
		}
		if op == "" || (od.Name != nil && od.Name.Value == op) {
			return true
		}
	}
	return false
}
