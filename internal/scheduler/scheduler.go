// Package scheduler triggers fetch runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

type Job func(ctx context.Context) error

type Options struct {
	Spec       string
	RunOnStart bool
	Logger     *slog.Logger
}

// Scheduler wraps robfig/cron. A tick that fires while the previous run is
// still going is skipped, so runs never overlap.
type Scheduler struct {
	cron  *cron.Cron
	job   Job
	opts  Options
	log   *slog.Logger
	entry cron.EntryID

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(job Job, opts Options) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("scheduler: nil job")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if _, err := cron.ParseStandard(opts.Spec); err != nil {
		return nil, fmt.Errorf("scheduler: bad spec %q: %w", opts.Spec, err)
	}

	cl := cronLogger{log: opts.Logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		job:  job,
		opts: opts,
		log:  opts.Logger,
	}, nil
}

// Start registers the job and starts ticking. Runs see a context that is
// cancelled by Stop or when ctx ends.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("scheduler: already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	id, err := s.cron.AddFunc(s.opts.Spec, s.run)
	if err != nil {
		s.cancel()
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.entry = id
	s.cron.Start()
	s.log.Info("scheduler started", "spec", s.opts.Spec, "next", s.cron.Entry(id).Next)

	if s.opts.RunOnStart {
		s.Trigger()
	}
	return nil
}

// Trigger runs the job now through the same skip-if-running chain.
func (s *Scheduler) Trigger() {
	e := s.cron.Entry(s.entry)
	if e.WrappedJob == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		e.WrappedJob.Run()
	}()
}

// Stop halts ticking, cancels a running job and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	s.log.Info("scheduled run started")
	if err := s.job(ctx); err != nil {
		s.log.Error("scheduled run failed", "err", err)
		return
	}
	s.log.Info("scheduled run finished")
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, kv...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, append([]any{"err", err}, kv...)...)
}
