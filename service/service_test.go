/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/vinyldash/vinylgw/log/logtest"
)

type mockUnit struct {
	startErr   error
	stopErr    error
	blockUntil chan struct{}
	started    atomic.Bool
	stopped    atomic.Bool
	gracefully atomic.Bool
	registered atomic.Int32
}

func newBlockingUnit() *mockUnit {
	return &mockUnit{blockUntil: make(chan struct{})}
}

func (u *mockUnit) Start(fatalErr chan<- error) {
	u.started.Store(true)
	if u.startErr != nil {
		fatalErr <- u.startErr
		return
	}
	if u.blockUntil != nil {
		<-u.blockUntil
	}
}

func (u *mockUnit) Stop(gracefully bool) error {
	if u.stopped.CompareAndSwap(false, true) && u.blockUntil != nil {
		close(u.blockUntil)
	}
	u.gracefully.Store(gracefully)
	return u.stopErr
}

func (u *mockUnit) MustRegisterMetrics() { u.registered.Inc() }
func (u *mockUnit) UnregisterMetrics()   { u.registered.Dec() }

func TestService_StartContext(t *testing.T) {
	t.Run("stopped gracefully by context", func(t *testing.T) {
		unit := newBlockingUnit()
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- New(logtest.NewRecorder(), unit).StartContext(ctx) }()

		require.Eventually(t, unit.started.Load, time.Second, time.Millisecond*10)
		require.EqualValues(t, 1, unit.registered.Load())
		cancel()
		require.NoError(t, <-done)
		require.True(t, unit.stopped.Load())
		require.True(t, unit.gracefully.Load())
		require.EqualValues(t, 0, unit.registered.Load())
	})

	t.Run("stopped by signal", func(t *testing.T) {
		unit := newBlockingUnit()
		svc := NewWithOpts(logtest.NewRecorder(), unit, Opts{ShutdownSignals: []os.Signal{syscall.SIGUSR1}})
		done := make(chan error, 1)
		go func() { done <- svc.Start() }()

		require.Eventually(t, unit.started.Load, time.Second, time.Millisecond*10)
		svc.Signals <- syscall.SIGUSR1
		require.NoError(t, <-done)
		require.True(t, unit.gracefully.Load())
	})

	t.Run("fatal error", func(t *testing.T) {
		startErr := errors.New("listen tcp: address already in use")
		err := New(logtest.NewRecorder(), &mockUnit{startErr: startErr}).StartContext(context.Background())
		require.ErrorIs(t, err, startErr)
	})

	t.Run("stop error", func(t *testing.T) {
		unit := newBlockingUnit()
		unit.stopErr = errors.New("close failed")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, New(logtest.NewRecorder(), unit).StartContext(ctx), unit.stopErr)
	})
}

func TestCompositeUnit(t *testing.T) {
	t.Run("start and stop", func(t *testing.T) {
		units := []*mockUnit{newBlockingUnit(), newBlockingUnit()}
		cu := NewCompositeUnit(units[0], units[1])
		cu.MustRegisterMetrics()

		fatalErr := make(chan error, 1)
		startDone := make(chan struct{})
		go func() {
			cu.Start(fatalErr)
			close(startDone)
		}()
		require.Eventually(t, func() bool { return units[0].started.Load() && units[1].started.Load() },
			time.Second, time.Millisecond*10)

		require.NoError(t, cu.Stop(true))
		<-startDone
		require.Empty(t, fatalErr)
		for _, u := range units {
			require.True(t, u.gracefully.Load())
			require.EqualValues(t, 1, u.registered.Load())
		}
		cu.UnregisterMetrics()
		require.EqualValues(t, 0, units[0].registered.Load())
	})

	t.Run("failed unit stops others", func(t *testing.T) {
		startErr := errors.New("start failed")
		stopErr := errors.New("stop failed")
		running := newBlockingUnit()
		running.stopErr = stopErr
		cu := NewCompositeUnit(running, &mockUnit{startErr: startErr})

		fatalErr := make(chan error, 1)
		cu.Start(fatalErr)

		err := <-fatalErr
		var cuErr *CompositeUnitError
		require.ErrorAs(t, err, &cuErr)
		require.ErrorIs(t, err, startErr)
		require.ErrorIs(t, err, stopErr)
		require.True(t, running.stopped.Load())
		require.False(t, running.gracefully.Load())
	})
}

func TestPeriodicWorker(t *testing.T) {
	var runs atomic.Int32
	worker := WorkerFunc(func(ctx context.Context) error {
		switch runs.Inc() {
		case 1:
			return errors.New("redis: connection refused")
		case 3:
			return ErrPeriodicWorkerStop
		}
		return nil
	})
	logger := logtest.NewRecorder()
	var delays []error
	pw := NewPeriodicWorkerWithOpts(worker, time.Hour, logger, PeriodicWorkerOpts{
		Name: "cache_cleaner",
		IntervalDelayFunc: func(_ Worker, err error) time.Duration {
			delays = append(delays, err)
			return time.Millisecond
		},
	})

	require.NoError(t, pw.Run(context.Background()))
	require.EqualValues(t, 3, runs.Load())
	require.Len(t, delays, 2)
	require.Error(t, delays[0])
	require.NoError(t, delays[1])

	entry, found := logger.FindEntry("periodic worker run failed")
	require.True(t, found)
	field, found := entry.FindField("worker")
	require.True(t, found)
	require.Equal(t, "cache_cleaner", string(field.Bytes))
}

func TestPeriodicWorker_ContextCanceled(t *testing.T) {
	var runs atomic.Int32
	pw := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
		runs.Inc()
		return nil
	}), time.Millisecond*10, logtest.NewRecorder())

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*100)
	defer cancel()
	require.NoError(t, pw.Run(ctx))
	require.Greater(t, runs.Load(), int32(1))
}

func TestWorkerUnit(t *testing.T) {
	t.Run("graceful stop waits for worker", func(t *testing.T) {
		var finished atomic.Bool
		unit := NewWorkerUnit(WorkerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			time.Sleep(time.Millisecond * 50)
			finished.Store(true)
			return nil
		}))
		fatalErr := make(chan error, 1)
		go unit.Start(fatalErr)
		time.Sleep(time.Millisecond * 20)

		require.NoError(t, unit.Stop(true))
		require.True(t, finished.Load())
		require.Empty(t, fatalErr)
	})

	t.Run("graceful stop timeout", func(t *testing.T) {
		unit := NewWorkerUnitWithOpts(WorkerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			time.Sleep(time.Second)
			return nil
		}), WorkerUnitOpts{GracefulStopTimeout: time.Millisecond * 50})
		go unit.Start(make(chan error, 1))
		time.Sleep(time.Millisecond * 20)

		require.ErrorIs(t, unit.Stop(true), ErrWorkerUnitStopTimeoutExceeded)
	})

	t.Run("worker error is fatal", func(t *testing.T) {
		runErr := errors.New("sqlite: database is locked")
		unit := NewWorkerUnit(WorkerFunc(func(ctx context.Context) error { return runErr }))
		fatalErr := make(chan error, 1)
		unit.Start(fatalErr)
		require.ErrorIs(t, <-fatalErr, runErr)
		require.NoError(t, unit.Stop(false))
	})

	t.Run("metrics registerer", func(t *testing.T) {
		mr := &mockUnit{}
		unit := NewWorkerUnitWithOpts(WorkerFunc(func(ctx context.Context) error { return nil }),
			WorkerUnitOpts{MetricsRegisterer: mr})
		unit.MustRegisterMetrics()
		require.EqualValues(t, 1, mr.registered.Load())
		unit.UnregisterMetrics()
		require.EqualValues(t, 0, mr.registered.Load())
	})
}
