// Package batch provides generic helpers to run many fallible tasks with
// bounded concurrency, and to debounce, throttle or retry function calls.
package batch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Defaults applied to zero Options fields.
const (
	DefaultBatchSize   = 10
	DefaultConcurrency = 5
)

// ErrHalted is recorded for every item left unprocessed by the Stop policy.
var ErrHalted = errors.New("processing halted")

// Policy decides what happens to the remaining items after a failure.
type Policy int

const (
	Continue Policy = iota // record the failure and keep going
	Stop                   // stop launching items, report the others as halted
)

func (p Policy) String() string {
	if p == Stop {
		return "stop"
	}
	return "continue"
}

// ParsePolicy parses "continue" or "stop".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "continue":
		return Continue, nil
	case "stop":
		return Stop, nil
	}
	return Continue, fmt.Errorf("invalid policy %q want \"continue\" or \"stop\"", s)
}

// Options configures Process.
type Options struct {
	BatchSize   int           // items per batch, defaults to DefaultBatchSize
	Concurrency int           // items in flight within a batch, defaults to DefaultConcurrency
	Delay       time.Duration // pause between two batches
	Policy      Policy
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	return o
}

// Failure is a failed item, Index is its position in the input.
type Failure struct {
	Index int
	Err   error
}

// Result is the outcome of Process. Successful is in completion order,
// Failed is sorted by Index. SuccessCount + FailureCount == Total.
type Result[R any] struct {
	Successful   []R
	Failed       []Failure
	Total        int
	SuccessCount int
	FailureCount int
}

// Stats is a progress report sent after every processed item.
type Stats struct {
	Total              int
	Processed          int
	Successful         int
	Failed             int
	Progress           float64 // percentage of processed items
	EstimatedRemaining time.Duration
}

// Func processes the item at index i.
type Func[T, R any] func(ctx context.Context, item T, i int) (R, error)

// Process runs fn over items. Items are split in batches of opts.BatchSize;
// within a batch at most opts.Concurrency calls are in flight, and items are
// started in input order. Batches run one after the other, separated by
// opts.Delay. A cancelled ctx stops launching new items, like the Stop policy.
func Process[T, R any](ctx context.Context, items []T, fn Func[T, R], opts Options) Result[R] {
	return process(ctx, items, fn, opts, nil)
}

// ProcessWithProgress is like Process but calls onProgress after each item.
// Calls to onProgress are serialized.
func ProcessWithProgress[T, R any](ctx context.Context, items []T, fn Func[T, R], opts Options, onProgress func(Stats)) Result[R] {
	return process(ctx, items, fn, opts, onProgress)
}

func process[T, R any](ctx context.Context, items []T, fn Func[T, R], opts Options, onProgress func(Stats)) Result[R] {
	opts = opts.withDefaults()
	res := Result[R]{Total: len(items)}

	var (
		mu        sync.Mutex
		halted    bool
		processed = make([]bool, len(items))
		start     = time.Now()
	)
	stopped := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return halted || ctx.Err() != nil
	}
	record := func(i int, r R, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			res.Failed = append(res.Failed, Failure{Index: i, Err: err})
			if opts.Policy == Stop {
				halted = true
			}
		} else {
			res.Successful = append(res.Successful, r)
		}
		if onProgress != nil {
			onProgress(progress(len(items), len(res.Successful), len(res.Failed), time.Since(start)))
		}
	}

	for first := 0; first < len(items) && !stopped(); first += opts.BatchSize {
		last := min(first+opts.BatchSize, len(items))
		var g errgroup.Group
		g.SetLimit(opts.Concurrency)
		for i := first; i < last; i++ {
			if stopped() {
				break
			}
			// Go blocks until a slot is free.
			g.Go(func() error {
				mu.Lock()
				if halted || ctx.Err() != nil {
					mu.Unlock()
					return nil
				}
				processed[i] = true
				mu.Unlock()

				r, err := fn(ctx, items[i], i)
				record(i, r, err)
				return nil
			})
		}
		g.Wait()

		if last < len(items) && opts.Delay > 0 && !stopped() {
			select {
			case <-ctx.Done():
			case <-time.After(opts.Delay):
			}
		}
	}

	haltErr := ErrHalted
	if err := ctx.Err(); err != nil {
		haltErr = fmt.Errorf("%w: %w", ErrHalted, err)
	}
	for i, done := range processed {
		if !done {
			res.Failed = append(res.Failed, Failure{Index: i, Err: haltErr})
		}
	}
	slices.SortFunc(res.Failed, func(a, b Failure) int { return a.Index - b.Index })
	res.SuccessCount = len(res.Successful)
	res.FailureCount = len(res.Failed)
	return res
}

func progress(total, succeeded, failed int, elapsed time.Duration) Stats {
	s := Stats{Total: total, Processed: succeeded + failed, Successful: succeeded, Failed: failed}
	if total > 0 {
		s.Progress = 100 * float64(s.Processed) / float64(total)
	}
	if s.Processed > 0 {
		s.EstimatedRemaining = elapsed / time.Duration(s.Processed) * time.Duration(total-s.Processed)
	}
	return s
}
