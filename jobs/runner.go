// Package jobs holds the CRM's scheduled tasks and the cron scheduler that
// runs them. Each task appends human-readable lines to its own file under
// the configured log directory.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/judyrop/sil-crm/graph"
	"github.com/judyrop/sil-crm/service"
)

const (
	HeartbeatJob = "heartbeat"
	RestockJob   = "restock"
	ReportJob    = "report"
	ReminderJob  = "order_reminders"

	HeartbeatLogFile = "crm_heartbeat_log.txt"
	RestockLogFile   = "low_stock_updates_log.txt"
	ReportLogFile    = "crm_report_log.txt"
	ReminderLogFile  = "order_reminders_log.txt"

	heartbeatTimeLayout = "02/01/2006-15:04:05"
	timeLayout          = "2006-01-02 15:04:05"

	DefaultReminderWindow = 7 * 24 * time.Hour
)

const reportQuery = `{
	allCustomers { totalCount }
	allOrders { totalCount edges { node { totalAmount } } }
}`

// Querier runs GraphQL requests. *graph.Executor answers in-process;
// *HTTPQuerier goes through a running server.
type Querier interface {
	Execute(ctx context.Context, req graph.Request) *graphql.Result
}

type RunnerConfig struct {
	// Querier serves the report query.
	Querier Querier
	// Endpoint is what the heartbeat checks, normally an *HTTPQuerier on
	// the served /graphql route. Without it the heartbeat falls back to
	// Querier, which only shows the schema executes.
	Endpoint Querier
	Services *service.Services
	Logger   *zap.Logger
	LogDir   string
	// Now defaults to time.Now.
	Now              func() time.Time
	RestockThreshold int
	RestockIncrement int
	ReminderWindow   time.Duration
}

// Runner implements the job bodies. It is safe for concurrent use.
type Runner struct {
	cfg       RunnerConfig
	heartbeat *LineLog
	restock   *LineLog
	report    *LineLog
	reminders *LineLog
}

func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RestockThreshold == 0 && cfg.RestockIncrement == 0 {
		cfg.RestockThreshold = service.DefaultRestockThreshold
		cfg.RestockIncrement = service.DefaultRestockIncrement
	}
	if cfg.Endpoint == nil {
		cfg.Endpoint = cfg.Querier
	}
	if cfg.ReminderWindow <= 0 {
		cfg.ReminderWindow = DefaultReminderWindow
	}
	return &Runner{
		cfg:       cfg,
		heartbeat: NewLineLog(cfg.LogDir, HeartbeatLogFile),
		restock:   NewLineLog(cfg.LogDir, RestockLogFile),
		report:    NewLineLog(cfg.LogDir, ReportLogFile),
		reminders: NewLineLog(cfg.LogDir, ReminderLogFile),
	}
}

// Heartbeat records that the process is alive and checks that the GraphQL
// endpoint answers { hello }. A failed check is logged, not returned.
func (r *Runner) Heartbeat(ctx context.Context) error {
	line := r.cfg.Now().Format(heartbeatTimeLayout) + " CRM is alive"
	if err := r.heartbeat.Append(line); err != nil {
		return err
	}
	var out struct {
		Hello string `json:"hello"`
	}
	if err := query(ctx, r.cfg.Endpoint, `{ hello }`, &out); err != nil {
		r.cfg.Logger.Warn("graphql hello check failed", zap.Error(err))
		return nil
	}
	r.cfg.Logger.Debug("graphql hello check", zap.String("hello", out.Hello))
	return nil
}

// Restock raises low-stock products and logs one line per product.
func (r *Runner) Restock(ctx context.Context) error {
	res, err := r.cfg.Services.Restocker.RestockLowStock(ctx, r.cfg.RestockThreshold, r.cfg.RestockIncrement)
	if err != nil {
		return fmt.Errorf("restock failed: %w", err)
	}
	ts := r.cfg.Now().Format(timeLayout)
	lines := make([]string, 0, len(res.Updated))
	for _, p := range res.Updated {
		lines = append(lines, fmt.Sprintf("%s - %s: stock now %d", ts, p.Name, p.Stock))
	}
	if err := r.restock.Append(lines...); err != nil {
		return err
	}
	r.cfg.Logger.Info(res.Summary)
	return nil
}

type Report struct {
	Customers int
	Orders    int
	Revenue   decimal.Decimal
}

func (rep Report) String() string {
	return fmt.Sprintf("Report: %d customers, %d orders, %s revenue",
		rep.Customers, rep.Orders, rep.Revenue.StringFixed(2))
}

// Report totals customers, orders and revenue through the GraphQL API and
// appends the summary line.
func (r *Runner) Report(ctx context.Context) (Report, error) {
	var out struct {
		AllCustomers struct {
			TotalCount int `json:"totalCount"`
		} `json:"allCustomers"`
		AllOrders struct {
			TotalCount int `json:"totalCount"`
			Edges      []struct {
				Node struct {
					TotalAmount string `json:"totalAmount"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"allOrders"`
	}
	if err := query(ctx, r.cfg.Querier, reportQuery, &out); err != nil {
		return Report{}, fmt.Errorf("report query failed: %w", err)
	}

	rep := Report{
		Customers: out.AllCustomers.TotalCount,
		Orders:    out.AllOrders.TotalCount,
		Revenue:   decimal.Zero,
	}
	for _, e := range out.AllOrders.Edges {
		amount, err := decimal.NewFromString(e.Node.TotalAmount)
		if err != nil {
			return Report{}, fmt.Errorf("bad order total %q: %w", e.Node.TotalAmount, err)
		}
		rep.Revenue = rep.Revenue.Add(amount)
	}
	if err := r.report.Append(r.cfg.Now().Format(timeLayout) + " - " + rep.String()); err != nil {
		return Report{}, err
	}
	r.cfg.Logger.Info("report generated",
		zap.Int("customers", rep.Customers),
		zap.Int("orders", rep.Orders),
		zap.String("revenue", rep.Revenue.StringFixed(2)))
	return rep, nil
}

// Remind logs a reminder line for every order placed within the reminder
// window. Failures are also written to the reminder log.
func (r *Runner) Remind(ctx context.Context) (int, error) {
	ts := r.cfg.Now().Format(timeLayout)
	orders, err := r.cfg.Services.Orders.OrdersSince(ctx, r.cfg.ReminderWindow)
	if err != nil {
		_ = r.reminders.Append(fmt.Sprintf("%s - Error processing order reminders: %v", ts, err))
		return 0, err
	}
	lines := make([]string, 0, len(orders))
	for _, o := range orders {
		lines = append(lines, fmt.Sprintf("%s - Order ID: %d - Email: %s", ts, o.ID, o.Customer.Email))
	}
	if err := r.reminders.Append(lines...); err != nil {
		return 0, err
	}
	r.cfg.Logger.Info("order reminders processed", zap.Int("orders", len(orders)))
	return len(orders), nil
}

func query(ctx context.Context, q Querier, query string, out interface{}) error {
	if q == nil {
		return errors.New("no graphql executor configured")
	}
	res := q.Execute(ctx, graph.Request{Query: query})
	if res.HasErrors() {
		return errors.New(res.Errors[0].Message)
	}
	raw, err := json.Marshal(res.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
