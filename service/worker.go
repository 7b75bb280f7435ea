/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/vinyldash/vinylgw/log"
)

// ErrPeriodicWorkerStop may be returned by a worker to finish the PeriodicWorker loop without an error.
var ErrPeriodicWorkerStop = errors.New("stop periodic worker")

// ErrWorkerUnitStopTimeoutExceeded is returned by WorkerUnit.Stop when the graceful stop takes too long.
var ErrWorkerUnitStopTimeoutExceeded = errors.New("worker unit stop timeout exceeded")

// Worker performs some (usually long-running) work until the context is done.
type Worker interface {
	Run(ctx context.Context) error
}

// WorkerFunc is an adapter to allow the use of ordinary functions as Worker.
type WorkerFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f WorkerFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// PeriodicWorker runs the underlying worker with a delay between runs.
// An error of a single run is logged, and the loop goes on.
type PeriodicWorker struct {
	worker       Worker
	logger       log.FieldLogger
	interval     time.Duration
	initialDelay time.Duration
	nextDelay    func(worker Worker, err error) time.Duration
}

// PeriodicWorkerOpts represents options for NewPeriodicWorkerWithOpts.
type PeriodicWorkerOpts struct {
	// Name is added to the log messages of the worker.
	Name         string
	InitialDelay time.Duration
	// IntervalDelayFunc overrides the constant interval, it gets the result of the last run.
	IntervalDelayFunc func(worker Worker, err error) time.Duration
}

// NewPeriodicWorker creates a new PeriodicWorker with a constant interval.
func NewPeriodicWorker(worker Worker, interval time.Duration, logger log.FieldLogger) *PeriodicWorker {
	return NewPeriodicWorkerWithOpts(worker, interval, logger, PeriodicWorkerOpts{})
}

// NewPeriodicWorkerWithOpts is the same as NewPeriodicWorker but with options.
func NewPeriodicWorkerWithOpts(
	worker Worker, interval time.Duration, logger log.FieldLogger, opts PeriodicWorkerOpts,
) *PeriodicWorker {
	if opts.Name != "" {
		logger = logger.With(log.String("worker", opts.Name))
	}
	return &PeriodicWorker{
		worker:       worker,
		logger:       logger,
		interval:     interval,
		initialDelay: opts.InitialDelay,
		nextDelay:    opts.IntervalDelayFunc,
	}
}

// Run runs the loop until the context is done or the worker returns ErrPeriodicWorkerStop.
func (pw *PeriodicWorker) Run(ctx context.Context) error {
	defer pw.logPanic()

	pw.logger.Info("periodic worker started",
		log.Duration("initial_delay", pw.initialDelay), log.Duration("interval", pw.interval))

	timer := time.NewTimer(pw.initialDelay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			pw.logger.Info("periodic worker stopped")
			return nil
		case <-timer.C:
		}

		err := pw.worker.Run(ctx)
		if errors.Is(err, ErrPeriodicWorkerStop) {
			pw.logger.Info("periodic worker stopped by itself")
			return nil
		}
		if err != nil {
			pw.logger.Error("periodic worker run failed", log.Error(err))
		}

		delay := pw.interval
		if pw.nextDelay != nil {
			delay = pw.nextDelay(pw.worker, err)
		}
		timer.Reset(delay)
	}
}

func (pw *PeriodicWorker) logPanic() {
	p := recover()
	if p == nil {
		return
	}
	stack := make([]byte, 8192)
	stack = stack[:runtime.Stack(stack, false)]
	pw.logger.Error(fmt.Sprintf("periodic worker panic: %+v", p), log.Bytes("stack", stack))
	panic(p)
}

// WorkerUnit presents a Worker as a Unit. The worker's context is canceled on Stop.
type WorkerUnit struct {
	worker  Worker
	opts    WorkerUnitOpts
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started chan struct{}
}

var (
	_ Unit              = (*WorkerUnit)(nil)
	_ MetricsRegisterer = (*WorkerUnit)(nil)
)

// WorkerUnitOpts represents options for NewWorkerUnitWithOpts.
type WorkerUnitOpts struct {
	MetricsRegisterer MetricsRegisterer
	// GracefulStopTimeout limits waiting for the worker on the graceful stop. Zero means no limit.
	GracefulStopTimeout time.Duration
}

// NewWorkerUnit creates a new WorkerUnit.
func NewWorkerUnit(worker Worker) *WorkerUnit {
	return NewWorkerUnitWithOpts(worker, WorkerUnitOpts{})
}

// NewWorkerUnitWithOpts is the same as NewWorkerUnit but with options.
func NewWorkerUnitWithOpts(worker Worker, opts WorkerUnitOpts) *WorkerUnit {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerUnit{
		worker:  worker,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		started: make(chan struct{}),
	}
}

// Start runs the worker and blocks until it returns.
func (u *WorkerUnit) Start(fatalError chan<- error) {
	close(u.started)
	defer close(u.done)
	if err := u.worker.Run(u.ctx); err != nil {
		fatalError <- err
	}
}

// Stop cancels the worker's context. On the graceful stop it also waits for the worker to return
// (if it was started).
func (u *WorkerUnit) Stop(gracefully bool) error {
	u.cancel()
	if !gracefully {
		return nil
	}
	select {
	case <-u.started:
	default:
		return nil
	}
	var timeout <-chan time.Time
	if u.opts.GracefulStopTimeout > 0 {
		timer := time.NewTimer(u.opts.GracefulStopTimeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-u.done:
		return nil
	case <-timeout:
		return ErrWorkerUnitStopTimeoutExceeded
	}
}

// MustRegisterMetrics registers the worker's metrics.
func (u *WorkerUnit) MustRegisterMetrics() {
	if u.opts.MetricsRegisterer != nil {
		u.opts.MetricsRegisterer.MustRegisterMetrics()
	}
}

// UnregisterMetrics unregisters the worker's metrics.
func (u *WorkerUnit) UnregisterMetrics() {
	if u.opts.MetricsRegisterer != nil {
		u.opts.MetricsRegisterer.UnregisterMetrics()
	}
}
