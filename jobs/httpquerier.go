package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"

	"github.com/judyrop/sil-crm/graph"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPQuerier sends GraphQL requests to a running server. Transport
// failures and non-200 responses come back as result errors.
type HTTPQuerier struct {
	url    string
	client *http.Client
}

// NewHTTPQuerier targets the /graphql endpoint at url. A nil client gets
// a 10s timeout.
func NewHTTPQuerier(url string, client *http.Client) *HTTPQuerier {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPQuerier{url: url, client: client}
}

func (q *HTTPQuerier) Execute(ctx context.Context, req graph.Request) *graphql.Result {
	body, err := json.Marshal(req)
	if err != nil {
		return failed(err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, q.url, bytes.NewReader(body))
	if err != nil {
		return failed(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := q.client.Do(httpReq)
	if err != nil {
		return failed(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return failed(fmt.Errorf("graphql endpoint %s returned %s", q.url, resp.Status))
	}

	var res graphql.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return failed(fmt.Errorf("decode graphql response: %w", err))
	}
	return &res
}

func failed(err error) *graphql.Result {
	return &graphql.Result{Errors: []gqlerrors.FormattedError{gqlerrors.NewFormattedError(err.Error())}}
}
