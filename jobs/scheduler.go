package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/judyrop/sil-crm/observability"
	"github.com/judyrop/sil-crm/store"
)

var (
	ErrJobRunning     = errors.New("job is already running")
	ErrUnknownJob     = errors.New("unknown job")
	ErrAlreadyStarted = errors.New("scheduler is already running")
)

const DefaultLeaseTTL = 30 * time.Minute

type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

type SchedulerConfig struct {
	Store   *store.Store
	Logger  *zap.Logger
	Metrics *observability.Metrics
	// LeaseTTL bounds how long a crashed holder blocks a job.
	LeaseTTL time.Duration
	Now      func() time.Time
}

// Scheduler runs registered jobs on their cron schedules. A job never
// overlaps itself: SkipIfStillRunning guards this process and a database
// lease guards every process sharing the database.
type Scheduler struct {
	cron     *cron.Cron
	store    *store.Store
	logger   *zap.Logger
	metrics  *observability.Metrics
	holder   string
	leaseTTL time.Duration
	now      func() time.Time

	mu      sync.Mutex
	jobs    map[string]Job
	ctx     context.Context
	running bool
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = DefaultLeaseTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cl := cronLogger{cfg.Logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		store:    cfg.Store,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		holder:   uuid.NewString(),
		leaseTTL: cfg.LeaseTTL,
		now:      cfg.Now,
		jobs:     make(map[string]Job),
		ctx:      context.Background(),
	}
}

// Register adds job under its schedule. It fails on a malformed schedule
// or a duplicate name.
func (s *Scheduler) Register(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("job %q already registered", job.Name)
	}
	_, err := s.cron.AddFunc(job.Schedule, func() {
		_ = s.execute(s.baseContext(), job)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", job.Schedule, job.Name, err)
	}
	s.jobs[job.Name] = job
	return nil
}

// Start begins firing jobs. Cancelling ctx stops the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.running = true
	s.ctx = ctx
	s.mu.Unlock()

	s.logger.Info("job scheduler starting", zap.Int("jobs", len(s.jobs)), zap.String("holder", s.holder))
	s.cron.Start()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("job scheduler stopped")
}

// RunNow runs the named job immediately, honouring the lease.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(ctx, job)
}

// Run executes job once under the same lease as scheduled runs. The job
// need not be registered.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	return s.execute(ctx, job)
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) execute(ctx context.Context, job Job) (err error) {
	ctx, span := observability.StartSpan(ctx, "job."+job.Name)
	defer func() { observability.EndSpan(span, err) }()

	if s.store != nil {
		acquired, err := s.store.AcquireLease(ctx, job.Name, s.holder, s.leaseTTL, s.now())
		if err != nil {
			s.metrics.RecordJob(job.Name, time.Now(), err)
			s.logger.Error("job lease failed", zap.String("job", job.Name), zap.Error(err))
			return err
		}
		if !acquired {
			s.metrics.RecordJobSkipped(job.Name)
			s.logger.Info("job skipped, lease held elsewhere", zap.String("job", job.Name))
			return ErrJobRunning
		}
		defer func() {
			if rerr := s.store.ReleaseLease(context.WithoutCancel(ctx), job.Name, s.holder); rerr != nil {
				s.logger.Warn("job lease release failed", zap.String("job", job.Name), zap.Error(rerr))
			}
		}()
	}

	started := time.Now()
	err = job.Run(ctx)
	s.metrics.RecordJob(job.Name, started, err)
	if err != nil {
		s.logger.Error("job failed", zap.String("job", job.Name), zap.Error(err))
		return err
	}
	s.logger.Info("job finished", zap.String("job", job.Name), zap.Duration("duration", time.Since(started)))
	return nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
