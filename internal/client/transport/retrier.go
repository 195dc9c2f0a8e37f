package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SecurityWorks/ente/internal/common"
	"github.com/SecurityWorks/ente/internal/logging"
	"github.com/sethvargo/go-retry"
)

// DefaultDelays is the wait before the second, third and fourth attempt.
func DefaultDelays() []time.Duration {
	return []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}
}

// Retrier runs network attempts under a fixed backoff schedule. It is safe
// for concurrent use.
type Retrier struct {
	delays []time.Duration
	log    logging.Logger
}

func NewRetrier(delays []time.Duration, log logging.Logger) *Retrier {
	if delays == nil {
		delays = DefaultDelays()
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Retrier{delays: delays, log: log}
}

func (r *Retrier) backoff() retry.Backoff {
	i := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		if i >= len(r.delays) {
			return 0, true
		}
		d := r.delays[i]
		i++
		return d, false
	})
}

// Do calls fn until it succeeds, fails terminally or the schedule runs out.
// Cancellation is checked before every attempt and is reported as
// common.ErrUploadCancelled, never as a failed attempt.
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		attempt++

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !Retryable(err) {
			return err
		}

		r.log.Warn(ctx, "attempt failed", "op", op, "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})

	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, common.ErrUploadCancelled)
	}
	return err
}

// Retryable reports whether another attempt could succeed. Non-2xx answers
// and network failures qualify; contract violations and rejections by the
// backend do not.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, common.ErrMissingETag),
		errors.Is(err, common.ErrDuplicateUploadURL),
		errors.Is(err, common.ErrStorageQuotaExceeded),
		errors.Is(err, common.ErrVersionConflict),
		errors.Is(err, common.ErrInvalidArgument),
		errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrUploadCancelled),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}
