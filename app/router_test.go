package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/judyrop/sil-crm/graph"
	"github.com/judyrop/sil-crm/observability"
	"github.com/judyrop/sil-crm/service"
	"github.com/judyrop/sil-crm/store"
	"github.com/judyrop/sil-crm/store/storetest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, db *gorm.DB, verifier TokenVerifier) *gin.Engine {
	t.Helper()
	reg := prometheus.NewRegistry()
	svc := service.New(service.Deps{
		Store:   store.New(db),
		Logger:  zap.NewNop(),
		Metrics: observability.NewMetrics(reg),
	})
	exec, err := graph.NewExecutor(graph.Config{Services: svc})
	require.NoError(t, err)
	return SetupRouter(RouterDeps{Executor: exec, Gatherer: reg, Verifier: verifier})
}

func postGraphQL(router *gin.Engine, query string, vars map[string]interface{}, header http.Header) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]interface{}{"query": query, "variables": vars})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/graphql", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	router.ServeHTTP(w, req)
	return w
}

// ----------------------- TESTS ----------------------- //

func TestHealth(t *testing.T) {
	router := SetupRouter(RouterDeps{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(observability.RequestIDHeader))
}

func TestGraphQLCreateCustomer(t *testing.T) {
	storetest.WithTestTransaction(t, func(db *gorm.DB) {
		router := newTestRouter(t, db, nil)

		w := postGraphQL(router, `mutation($input: CustomerInput!) {
			createCustomer(input: $input) { message customer { name email } }
		}`, map[string]interface{}{
			"input": map[string]interface{}{"name": "June Jun", "email": "junejun@gmail.com", "phone": "+254712345678"},
		}, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data struct {
				CreateCustomer struct {
					Message  string
					Customer struct{ Name, Email string }
				}
			}
			Errors []struct{ Message string }
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Errors)
		assert.Equal(t, "Customer created successfully", resp.Data.CreateCustomer.Message)
		assert.Equal(t, "June Jun", resp.Data.CreateCustomer.Customer.Name)
	})
}

func TestGraphQLValidationErrorIsReported(t *testing.T) {
	storetest.WithTestTransaction(t, func(db *gorm.DB) {
		router := newTestRouter(t, db, nil)

		w := postGraphQL(router, `mutation { createCustomer(input: {name: "X", email: "x@example.com", phone: "0712345678"}) { message } }`, nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Errors []struct{ Message string }
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "Invalid phone format", resp.Errors[0].Message)
	})
}

func TestGraphQLBadRequests(t *testing.T) {
	storetest.WithTestTransaction(t, func(db *gorm.DB) {
		router := newTestRouter(t, db, nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/graphql", bytes.NewBufferString("not json"))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = postGraphQL(router, "  ", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGraphQLOverGet(t *testing.T) {
	storetest.WithTestTransaction(t, func(db *gorm.DB) {
		router := newTestRouter(t, db, nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/graphql?query="+url.QueryEscape("{ hello }"), nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":{"hello":"Hello, GraphQL!"}}`, w.Body.String())

		w = httptest.NewRecorder()
		mutation := `mutation { updateLowStockProducts { success } }`
		req, _ = http.NewRequest("GET", "/graphql?query="+url.QueryEscape(mutation), nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, raw string) (*oidc.IDToken, error) {
	if raw != "good-token" {
		return nil, errors.New("bad signature")
	}
	return &oidc.IDToken{Subject: "user-1"}, nil
}

func TestGraphQLRequiresBearerTokenWhenConfigured(t *testing.T) {
	storetest.WithTestTransaction(t, func(db *gorm.DB) {
		router := newTestRouter(t, db, fakeVerifier{})

		w := postGraphQL(router, `{ hello }`, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = postGraphQL(router, `{ hello }`, nil, http.Header{"Authorization": {"Bearer nope"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Invalid token"}`, w.Body.String())

		w = postGraphQL(router, `{ hello }`, nil, http.Header{"Authorization": {"Bearer good-token"}})
		assert.Equal(t, http.StatusOK, w.Code)

		// health stays public
		w = httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/health", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	storetest.WithTestTransaction(t, func(db *gorm.DB) {
		router := newTestRouter(t, db, nil)
		postGraphQL(router, `mutation { createProduct(input: {name: "Laptop", price: "10.00", stock: 1}) { message } }`, nil, nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/metrics", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `crm_mutations_total{operation="create_product",status="success"} 1`)
	})
}
