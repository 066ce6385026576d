package parallel

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ScheduleError reports a failure of the row mapper itself: a worker error
// or cancellation of the surrounding context.
type ScheduleError struct {
	Index int
	Err   error
}

func (e *ScheduleError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("map rows: %v", e.Err)
	}
	return fmt.Sprintf("map rows: item %d: %v", e.Index, e.Err)
}

func (e *ScheduleError) Unwrap() error {
	return e.Err
}

// MapRows applies fn to every item with at most workers concurrent calls and
// returns the results in input order. workers <= 0 uses GOMAXPROCS.
func MapRows[T, R any](ctx context.Context, items []T, workers int, fn func(ctx context.Context, index int, item T) (R, error)) ([]R, error) {
	out := make([]R, len(items))
	if len(items) == 0 {
		return out, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i := range items {
		i := i
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return &ScheduleError{Index: i, Err: err}
			}
			res, err := fn(egCtx, i, items[i])
			if err != nil {
				return &ScheduleError{Index: i, Err: err}
			}
			out[i] = res
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &ScheduleError{Index: -1, Err: err}
	}
	return out, nil
}
