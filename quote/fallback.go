package quote

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Attempt is one named way of obtaining a T.
type Attempt[T any] struct {
	Name string
	Fn   func(ctx context.Context) (T, error)
}

// First runs attempts in order and returns the first result accepted by
// check, along with the name of the attempt that produced it. Failed
// attempts are logged and skipped; when all of them fail the returned error
// joins every attempt error.
func First[T any](ctx context.Context, log zerolog.Logger, attempts []Attempt[T], check func(T) error) (T, string, error) {
	var (
		zero T
		errs []error
	)
	for i, a := range attempts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		log.Debug().Str("attempt", a.Name).Int("rank", i+1).Int("of", len(attempts)).Msg("trying")
		v, err := a.Fn(ctx)
		if err == nil && check != nil {
			err = check(v)
		}
		if err != nil {
			log.Warn().Err(err).Str("attempt", a.Name).Msg("attempt failed")
			errs = append(errs, fmt.Errorf("%s: %w", a.Name, err))
			continue
		}
		return v, a.Name, nil
	}
	if len(errs) == 0 {
		return zero, "", errors.New("nothing to try")
	}
	return zero, "", errors.Join(errs...)
}

// names returns the attempt names in order.
func names[T any](attempts []Attempt[T]) []string {
	res := make([]string, len(attempts))
	for i, a := range attempts {
		res[i] = a.Name
	}
	return res
}
