// Package app wires configuration, storage, services, the GraphQL executor,
// the HTTP router and the job scheduler into one runnable process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/judyrop/sil-crm/graph"
	"github.com/judyrop/sil-crm/jobs"
	"github.com/judyrop/sil-crm/observability"
	"github.com/judyrop/sil-crm/service"
	"github.com/judyrop/sil-crm/store"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Config    Config
	Logger    *zap.Logger
	DB        *gorm.DB
	Store     *store.Store
	Registry  *prometheus.Registry
	Metrics   *observability.Metrics
	Services  *service.Services
	Executor  *graph.Executor
	Runner    *jobs.Runner
	Scheduler *jobs.Scheduler

	shutdownTracer func(context.Context) error
}

// New opens the database and builds every component. The schema is
// migrated on open.
func New(cfg Config) (*App, error) {
	log, err := observability.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return nil, err
	}
	shutdownTracer, err := observability.InitTracer(serviceName, cfg.TraceStdout)
	if err != nil {
		return nil, err
	}

	gormLevel := logger.Warn
	if cfg.Log.Level == "debug" {
		gormLevel = logger.Info
	}
	db, err := store.Open(cfg.DB.Driver, cfg.DB.DSN, logger.Default.LogMode(gormLevel))
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(db); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	st := store.New(db)
	svc := service.New(service.Deps{Store: st, Logger: log, Metrics: metrics})
	exec, err := graph.NewExecutor(graph.Config{
		Services:         svc,
		Logger:           log,
		RestockThreshold: cfg.Restock.Threshold,
		RestockIncrement: cfg.Restock.Increment,
	})
	if err != nil {
		return nil, err
	}
	runner := jobs.NewRunner(jobs.RunnerConfig{
		Querier:          exec,
		Endpoint:         jobs.NewHTTPQuerier(cfg.GraphQLURL(), nil),
		Services:         svc,
		Logger:           log.Named("jobs"),
		LogDir:           cfg.Jobs.LogDir,
		RestockThreshold: cfg.Restock.Threshold,
		RestockIncrement: cfg.Restock.Increment,
	})
	sched := jobs.NewScheduler(jobs.SchedulerConfig{
		Store:   st,
		Logger:  log.Named("scheduler"),
		Metrics: metrics,
	})

	return &App{
		Config:         cfg,
		Logger:         log,
		DB:             db,
		Store:          st,
		Registry:       reg,
		Metrics:        metrics,
		Services:       svc,
		Executor:       exec,
		Runner:         runner,
		Scheduler:      sched,
		shutdownTracer: shutdownTracer,
	}, nil
}

// Router builds the HTTP handler, discovering the OIDC provider when one
// is configured.
func (a *App) Router(ctx context.Context) (*gin.Engine, error) {
	deps := RouterDeps{Executor: a.Executor, Logger: a.Logger, Gatherer: a.Registry}
	if a.Config.OIDC.Issuer != "" {
		v, err := NewOIDCVerifier(ctx, a.Config.OIDC.Issuer, a.Config.OIDC.ClientID)
		if err != nil {
			return nil, err
		}
		deps.Verifier = v
	}
	if a.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return SetupRouter(deps), nil
}

// Serve runs the HTTP server and, if enabled, the job scheduler until ctx
// is cancelled or either fails.
func (a *App) Serve(ctx context.Context) error {
	router, err := a.Router(ctx)
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: a.Config.Addr(), Handler: router, ReadHeaderTimeout: 10 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if a.Config.Jobs.Enabled {
		for _, job := range a.Runner.Jobs(a.Config.Jobs.Schedules) {
			if err := a.Scheduler.Register(job); err != nil {
				return err
			}
		}
		g.Go(func() error {
			if err := a.Scheduler.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			a.Scheduler.Stop()
			return nil
		})
	}
	return g.Wait()
}

// RunJob runs one named job now, under the same lease as scheduled runs.
func (a *App) RunJob(ctx context.Context, name string) error {
	job, ok := a.Runner.Job(name)
	if !ok {
		return fmt.Errorf("%w: %s", jobs.ErrUnknownJob, name)
	}
	return a.Scheduler.Run(ctx, job)
}

func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.shutdownTracer != nil {
		errs = append(errs, a.shutdownTracer(ctx))
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}
