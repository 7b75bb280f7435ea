/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"strings"
	"sync"
)

// CompositeUnit runs several units as one.
type CompositeUnit struct {
	Units []Unit
}

var (
	_ Unit              = (*CompositeUnit)(nil)
	_ MetricsRegisterer = (*CompositeUnit)(nil)
)

// NewCompositeUnit creates a new composite unit.
func NewCompositeUnit(units ...Unit) *CompositeUnit {
	return &CompositeUnit{Units: units}
}

// Start starts all units concurrently and returns when every Start call has returned.
// When any unit fails, the rest are stopped non-gracefully and a CompositeUnitError
// with the start and stop errors is sent to fatalError.
func (cu *CompositeUnit) Start(fatalError chan<- error) {
	var (
		mu       sync.Mutex
		startErr []error
		wg       sync.WaitGroup
		failed   = make(chan struct{})
		failOnce sync.Once
	)
	wg.Add(len(cu.Units))
	for _, u := range cu.Units {
		go func(u Unit) {
			defer wg.Done()
			unitErr := make(chan error, 1)
			u.Start(unitErr)
			select {
			case err := <-unitErr:
				mu.Lock()
				startErr = append(startErr, err)
				mu.Unlock()
				failOnce.Do(func() { close(failed) })
			default:
			}
		}(u)
	}

	allReturned := make(chan struct{})
	go func() {
		wg.Wait()
		close(allReturned)
	}()

	select {
	case <-allReturned:
		select {
		case <-failed:
		default:
			return
		}
	case <-failed:
	}

	stopErr := cu.Stop(false)

	mu.Lock()
	errs := append([]error(nil), startErr...)
	mu.Unlock()
	if cuErr, ok := stopErr.(*CompositeUnitError); ok {
		errs = append(errs, cuErr.UnitErrors...)
	}
	fatalError <- &CompositeUnitError{UnitErrors: errs}
}

// Stop stops all units concurrently. Errors are collected into a single CompositeUnitError.
func (cu *CompositeUnit) Stop(gracefully bool) error {
	errs := make([]error, len(cu.Units))
	var wg sync.WaitGroup
	wg.Add(len(cu.Units))
	for i := range cu.Units {
		go func(i int) {
			defer wg.Done()
			errs[i] = cu.Units[i].Stop(gracefully)
		}(i)
	}
	wg.Wait()

	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	return &CompositeUnitError{UnitErrors: nonNil}
}

// MustRegisterMetrics registers metrics of all units implementing MetricsRegisterer.
func (cu *CompositeUnit) MustRegisterMetrics() {
	cu.forEachRegisterer(MetricsRegisterer.MustRegisterMetrics)
}

// UnregisterMetrics unregisters metrics of all units implementing MetricsRegisterer.
func (cu *CompositeUnit) UnregisterMetrics() {
	cu.forEachRegisterer(MetricsRegisterer.UnregisterMetrics)
}

func (cu *CompositeUnit) forEachRegisterer(fn func(MetricsRegisterer)) {
	for _, u := range cu.Units {
		if mr, ok := u.(MetricsRegisterer); ok {
			fn(mr)
		}
	}
}

// CompositeUnitError contains errors of the composed units.
type CompositeUnitError struct {
	UnitErrors []error
}

func (e *CompositeUnitError) Error() string {
	msgs := make([]string, len(e.UnitErrors))
	for i, err := range e.UnitErrors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap allows matching the errors of the composed units with errors.Is and errors.As.
func (e *CompositeUnitError) Unwrap() []error {
	return e.UnitErrors
}
