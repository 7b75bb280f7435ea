/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vinyldash/vinylgw/log"
	"github.com/vinyldash/vinylgw/ratelimit"
	"github.com/vinyldash/vinylgw/retry"
)

// Operation is a call to an upstream resource. The context is owned by the Orchestrator
// and is canceled only when the Orchestrator is forced to stop.
type Operation func(ctx context.Context) (any, error)

type request struct {
	op            Operation
	future        *Future
	dedupeKey     string
	retryCount    int
	retryAfter    time.Duration
	hasRetryAfter bool
	enqueuedAt    time.Time
	// backoff is created on the first retry and shared by all retry copies of the request.
	backoff backoff.BackOff
}

type inflightCall struct {
	future    *Future
	createdAt time.Time
}

type resourceQueue struct {
	name     string
	items    []*request
	draining bool
}

type retryTimer struct {
	resource string
	req      *request
	timer    Timer
}

// Opts represents options for the Orchestrator.
type Opts struct {
	Logger           log.FieldLogger
	Clock            Clock
	MetricsCollector MetricsCollector
}

// Stats is a snapshot of the Orchestrator state.
type Stats struct {
	Queued         map[string]int `json:"queued"`
	InFlight       int            `json:"inFlight"`
	PendingRetries int            `json:"pendingRetries"`
	Closed         bool           `json:"closed"`
}

// Orchestrator queues, deduplicates, rate-limits and retries calls to upstream resources.
// Calls of the same resource are executed sequentially, different resources progress independently.
type Orchestrator struct {
	batchSize       int
	maxRetries      int
	interBatchPause time.Duration
	inFlightTTL     time.Duration
	maxBackoff      time.Duration
	backoffPolicy   retry.Policy

	limiter *ratelimit.Registry
	logger  log.FieldLogger
	clock   Clock
	metrics MetricsCollector

	baseCtx    context.Context
	cancelBase context.CancelFunc
	stopCh     chan struct{}
	wg         sync.WaitGroup

	mu       sync.Mutex
	queues   map[string]*resourceQueue
	inflight map[string]*inflightCall
	timers   map[*retryTimer]struct{}
	closed   bool
}

// New creates a new Orchestrator with the given configuration.
func New(cfg *Config) (*Orchestrator, error) {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts creates a new Orchestrator with the given configuration and options.
func NewWithOpts(cfg *Config, opts Opts) (*Orchestrator, error) {
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries cannot be negative, got %d", cfg.MaxRetries)
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}

	limiter, err := ratelimit.NewRegistryWithOpts(cfg.Rates(), ratelimit.RegistryOpts{Clock: opts.Clock.Now})
	if err != nil {
		return nil, err
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		batchSize:       cfg.BatchSize,
		maxRetries:      cfg.MaxRetries,
		interBatchPause: cfg.InterBatchPause,
		inFlightTTL:     cfg.InFlightTTL,
		maxBackoff:      cfg.MaxBackoff,
		backoffPolicy:   retry.NewDoublingBackoffPolicy(cfg.BaseBackoff, cfg.MaxBackoff, cfg.MaxRetries),
		limiter:         limiter,
		logger:          opts.Logger,
		clock:           opts.Clock,
		metrics:         opts.MetricsCollector,
		baseCtx:         baseCtx,
		cancelBase:      cancel,
		stopCh:          make(chan struct{}),
		queues:          make(map[string]*resourceQueue),
		inflight:        make(map[string]*inflightCall),
		timers:          make(map[*retryTimer]struct{}),
	}
	for _, name := range limiter.Resources() {
		o.queues[name] = &resourceQueue{name: name}
	}
	return o, nil
}

// Limiter returns the rate limiter used by the Orchestrator.
func (o *Orchestrator) Limiter() *ratelimit.Registry {
	return o.limiter
}

// Submit enqueues the operation and waits for its outcome.
// If dedupeKey is not empty and a call with the same key is in flight, no new call is made
// and the outcome of the in-flight one is returned.
// ctx bounds only the wait, the enqueued call is not canceled when ctx is done.
func (o *Orchestrator) Submit(ctx context.Context, resource, dedupeKey string, op Operation) (any, error) {
	f, err := o.Enqueue(resource, dedupeKey, op)
	if err != nil {
		return nil, err
	}
	return f.Wait(ctx)
}

// Enqueue is like Submit but returns the Future of the call instead of waiting for it.
func (o *Orchestrator) Enqueue(resource, dedupeKey string, op Operation) (*Future, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, ErrClosed
	}
	rq, ok := o.queues[resource]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ratelimit.ErrUnknownResource, resource)
	}

	now := o.clock.Now()
	if dedupeKey != "" {
		if call, found := o.inflight[dedupeKey]; found {
			if !o.isStale(call, now) {
				o.metrics.IncDedupeHits(resource)
				return call.future, nil
			}
			o.logger.Warn("replacing stale in-flight call",
				log.String("resource", resource), log.String("dedupe_key", dedupeKey),
				log.Duration("age", now.Sub(call.createdAt)))
		}
	}

	req := &request{op: op, future: newFuture(), dedupeKey: dedupeKey, enqueuedAt: now}
	if dedupeKey != "" {
		o.inflight[dedupeKey] = &inflightCall{future: req.future, createdAt: now}
	}
	rq.items = append(rq.items, req)
	o.metrics.SetQueueDepth(resource, len(rq.items))
	o.startDrainLocked(rq)
	return req.future, nil
}

// Do submits the operation and converts its result to T.
func Do[T any](ctx context.Context, o *Orchestrator, resource, dedupeKey string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	val, err := o.Submit(ctx, resource, dedupeKey, func(ctx context.Context) (any, error) {
		return op(ctx)
	})
	if err != nil {
		return zero, err
	}
	res, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected result type %T for dedupe key %q", val, dedupeKey)
	}
	return res, nil
}

// SweepStaleInFlight removes in-flight entries older than the staleness window and returns their number.
// Calls of removed entries still settle their waiters.
func (o *Orchestrator) SweepStaleInFlight() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.clock.Now()
	removed := 0
	for key, call := range o.inflight {
		if o.isStale(call, now) {
			delete(o.inflight, key)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of the Orchestrator state.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := Stats{
		Queued:         make(map[string]int, len(o.queues)),
		InFlight:       len(o.inflight),
		PendingRetries: len(o.timers),
		Closed:         o.closed,
	}
	for name, rq := range o.queues {
		st.Queued[name] = len(rq.items)
	}
	return st
}

// Close stops accepting new calls. Queued calls and calls waiting for a retry are settled with ErrClosed.
// It waits for the running calls until ctx is done, then cancels their context.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	close(o.stopCh)

	var pending []*request
	for t := range o.timers {
		t.timer.Stop()
		pending = append(pending, t.req)
	}
	o.timers = make(map[*retryTimer]struct{})
	for _, rq := range o.queues {
		pending = append(pending, rq.items...)
		rq.items = nil
		o.metrics.SetQueueDepth(rq.name, 0)
	}
	o.mu.Unlock()

	for _, req := range pending {
		o.settle(req, nil, ErrClosed)
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	defer o.cancelBase()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) isStale(call *inflightCall, now time.Time) bool {
	return o.inFlightTTL > 0 && now.Sub(call.createdAt) >= o.inFlightTTL
}

// startDrainLocked must be called with o.mu held.
func (o *Orchestrator) startDrainLocked(rq *resourceQueue) {
	if o.closed || rq.draining || len(rq.items) == 0 {
		return
	}
	rq.draining = true
	o.wg.Add(1)
	go o.drain(rq)
}

func (o *Orchestrator) drain(rq *resourceQueue) {
	defer o.wg.Done()
	for {
		batch := o.takeBatch(rq)
		if len(batch) == 0 {
			return
		}
		for i, req := range batch {
			if !o.process(rq.name, req) {
				o.abandon(batch[i:])
				o.stopDrain(rq)
				return
			}
		}
		if !o.hasMore(rq) {
			return
		}
		if !o.sleep(o.interBatchPause) {
			o.stopDrain(rq)
			return
		}
	}
}

// takeBatch removes up to batchSize requests from the head of the queue.
// It ends the drain if there is nothing to take.
func (o *Orchestrator) takeBatch(rq *resourceQueue) []*request {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || len(rq.items) == 0 {
		rq.draining = false
		return nil
	}
	n := o.batchSize
	if n > len(rq.items) {
		n = len(rq.items)
	}
	batch := make([]*request, n)
	copy(batch, rq.items[:n])
	rq.items = rq.items[n:]
	o.metrics.SetQueueDepth(rq.name, len(rq.items))
	return batch
}

// hasMore reports whether another batch should be drained. It ends the drain otherwise.
func (o *Orchestrator) hasMore(rq *resourceQueue) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || len(rq.items) == 0 {
		rq.draining = false
		return false
	}
	return true
}

func (o *Orchestrator) stopDrain(rq *resourceQueue) {
	o.mu.Lock()
	rq.draining = false
	o.mu.Unlock()
}

func (o *Orchestrator) abandon(reqs []*request) {
	for _, req := range reqs {
		o.settle(req, nil, ErrClosed)
	}
}

// process executes a single request. It returns false if the Orchestrator was closed while waiting for a slot.
func (o *Orchestrator) process(resource string, req *request) bool {
	select {
	case <-o.stopCh:
		return false
	default:
	}
	logger := o.logger.With(log.String("resource", resource))

	for {
		decision, err := o.limiter.Check(resource)
		if err != nil {
			o.metrics.IncTerminalFailures(resource)
			o.settle(req, nil, err)
			return true
		}
		if decision.Allowed {
			break
		}
		wait := decision.Wait
		if wait <= 0 {
			wait = time.Millisecond
		}
		o.metrics.ObserveLimiterWait(resource, wait.Seconds())
		logger.Debug("waiting for rate limit slot", log.Duration("wait", wait))
		if !o.sleep(wait) {
			return false
		}
	}
	if err := o.limiter.Record(resource); err != nil {
		o.metrics.IncTerminalFailures(resource)
		o.settle(req, nil, err)
		return true
	}

	val, err := o.execute(req)
	if err == nil {
		o.metrics.IncExecutions(resource, outcomeSuccess)
		o.settle(req, val, nil)
		return true
	}

	if rlErr, ok := AsRateLimitError(err); ok {
		o.metrics.IncExecutions(resource, outcomeRateLimited)
		if req.retryCount < o.maxRetries {
			o.scheduleRetry(resource, req, rlErr)
			return true
		}
		logger.Warn("retries exhausted for rate limited call",
			log.Int("retries", req.retryCount), log.String("dedupe_key", req.dedupeKey))
	} else {
		o.metrics.IncExecutions(resource, outcomeFailure)
	}
	o.metrics.IncTerminalFailures(resource)
	o.settle(req, nil, err)
	return true
}

func (o *Orchestrator) execute(req *request) (val any, err error) {
	defer func() {
		if p := recover(); p != nil {
			val, err = nil, fmt.Errorf("upstream call panicked: %v", p)
		}
	}()
	return req.op(o.baseCtx)
}

// retryDelay returns the server hint if the failure (or one of the previous failures) carried it,
// the exponential backoff delay otherwise. The backoff advances on every retry, hinted ones included,
// so the n-th retry without a hint always waits BaseBackoff*2^n.
func (o *Orchestrator) retryDelay(req *request, rlErr *RateLimitError) (delay, hint time.Duration, hasHint bool) {
	if req.backoff == nil {
		req.backoff = o.backoffPolicy.NewBackOff()
	}
	delay = req.backoff.NextBackOff()
	if delay == backoff.Stop {
		delay = o.maxBackoff
	}
	switch {
	case rlErr.HasRetryAfter:
		hint, hasHint = rlErr.RetryAfter, true
	case req.hasRetryAfter:
		hint, hasHint = req.retryAfter, true
	}
	if hasHint {
		if hint < 0 {
			hint = 0
		}
		return hint, hint, true
	}
	return delay, 0, false
}

func (o *Orchestrator) scheduleRetry(resource string, req *request, rlErr *RateLimitError) {
	delay, hint, hasHint := o.retryDelay(req, rlErr)
	retryReq := &request{
		op:            req.op,
		future:        req.future,
		dedupeKey:     req.dedupeKey,
		retryCount:    req.retryCount + 1,
		retryAfter:    hint,
		hasRetryAfter: hasHint,
		enqueuedAt:    req.enqueuedAt,
		backoff:       req.backoff,
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		o.settle(req, nil, ErrClosed)
		return
	}
	t := &retryTimer{resource: resource, req: retryReq}
	o.timers[t] = struct{}{}
	t.timer = o.clock.AfterFunc(delay, func() { o.requeue(t) })
	o.mu.Unlock()

	o.metrics.IncRetries(resource)
	o.logger.Info("rate limited call scheduled for retry",
		log.String("resource", resource), log.Int("retry", retryReq.retryCount),
		log.Duration("delay", delay), log.Bool("server_hint", hasHint))
}

// requeue puts the retried request at the front of its queue.
func (o *Orchestrator) requeue(t *retryTimer) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.timers[t]; !ok {
		return // Stopped by Close.
	}
	delete(o.timers, t)
	rq := o.queues[t.resource]
	rq.items = append([]*request{t.req}, rq.items...)
	o.metrics.SetQueueDepth(rq.name, len(rq.items))
	o.startDrainLocked(rq)
}

// settle clears the in-flight entry of the request (if it's still the registered one) and settles its future.
func (o *Orchestrator) settle(req *request, val any, err error) {
	if req.dedupeKey != "" {
		o.mu.Lock()
		if call, ok := o.inflight[req.dedupeKey]; ok && call.future == req.future {
			delete(o.inflight, req.dedupeKey)
		}
		o.mu.Unlock()
	}
	req.future.settle(val, err)
}

// sleep waits for d and returns false if the Orchestrator was closed in the meantime.
func (o *Orchestrator) sleep(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-o.stopCh:
			return false
		default:
			return true
		}
	}
	fired := make(chan struct{})
	t := o.clock.AfterFunc(d, func() { close(fired) })
	select {
	case <-fired:
		return true
	case <-o.stopCh:
		t.Stop()
		return false
	}
}
