package review

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bkyoung/review-quorum/internal/domain"
	"github.com/bkyoung/review-quorum/internal/usecase/normalize"
)

// DispatchOutcome is one adapter's raw result with timing attached. Raw and
// Err are mutually exclusive.
type DispatchOutcome struct {
	ProviderID string
	Raw        normalize.RawOutput
	Duration   time.Duration
	Err        *domain.OutcomeError
}

// Dispatcher fans one code unit out to every adapter concurrently and
// collects one outcome per adapter. It is stateless and safe for repeated,
// concurrent use with different adapter sets.
type Dispatcher struct{}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Dispatch invokes every adapter concurrently and returns outcomes in the
// caller-supplied adapter order regardless of completion order. Each
// invocation has an independent timeout; a failure or timeout in one adapter
// never cancels its siblings. The call returns only after every outcome has
// resolved.
//
// Zero adapters or duplicate adapter IDs fail fast with a ConfigurationError
// before any call is made.
func (d *Dispatcher) Dispatch(ctx context.Context, unit domain.CodeUnit, adapters []Adapter) ([]DispatchOutcome, error) {
	if len(adapters) == 0 {
		return nil, &ConfigurationError{Reason: "no provider adapters enabled"}
	}
	seen := make(map[string]bool, len(adapters))
	for _, a := range adapters {
		if seen[a.ID()] {
			return nil, &ConfigurationError{Reason: "duplicate provider adapter id: " + a.ID()}
		}
		seen[a.ID()] = true
	}

	outcomes := make([]DispatchOutcome, len(adapters))

	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func(i int, adapter Adapter) {
			defer wg.Done()
			outcomes[i] = d.invokeOne(ctx, unit, adapter)
		}(i, adapter)
	}
	wg.Wait()

	return outcomes, nil
}

type invokeResult struct {
	raw normalize.RawOutput
	err error
}

// invokeOne runs a single adapter under its own timeout. The invocation runs
// in an inner goroutine so an adapter that ignores context cancellation still
// cannot stall the review past its deadline; on expiry the outcome is marked
// as a timeout and any late partial output is discarded.
func (d *Dispatcher) invokeOne(ctx context.Context, unit domain.CodeUnit, adapter Adapter) DispatchOutcome {
	start := time.Now()

	invokeCtx, cancel := context.WithTimeout(ctx, adapter.Timeout())
	defer cancel()

	ch := make(chan invokeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- invokeResult{err: fmt.Errorf("adapter panicked: %v", r)}
			}
		}()
		raw, err := adapter.Invoke(invokeCtx, unit)
		ch <- invokeResult{raw: raw, err: err}
	}()

	var res invokeResult
	select {
	case res = <-ch:
	case <-invokeCtx.Done():
		res = invokeResult{err: invokeCtx.Err()}
	}

	outcome := DispatchOutcome{
		ProviderID: adapter.ID(),
		Duration:   time.Since(start),
	}
	if res.err != nil {
		outcome.Err = classifyOutcomeError(adapter.ID(), res.err)
		return outcome
	}
	outcome.Raw = res.raw
	return outcome
}
