package external

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// PollConfig controls how an asynchronous task is waited on.
type PollConfig struct {
	MaxAttempts  int           // status checks before giving up
	PollInterval time.Duration // wait between two checks
	Backoff      float64       // interval multiplier per attempt, 1.0 keeps it fixed
	MaxInterval  time.Duration // upper bound for the grown interval, 0 means none
}

// DefaultPollConfig checks once a second for up to 30 seconds.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		MaxAttempts:  30,
		PollInterval: time.Second,
		Backoff:      1.0,
		MaxInterval:  5 * time.Second,
	}
}

// PollFunc checks a task once. done=true stops polling with err as the result.
type PollFunc func(ctx context.Context, attempt int) (done bool, err error)

var errTaskPending = errors.New("task still pending")

// Poll calls check, then keeps calling it at the configured interval until
// check reports done, attempts run out (ErrTaskTimeout) or ctx is cancelled
// (ctx.Err()).
func Poll(ctx context.Context, cfg PollConfig, check PollFunc) error {
	attempt := 0
	err := retry.Do(ctx, pollBackoff(cfg), func(ctx context.Context) error {
		attempt++
		done, err := check(ctx, attempt)
		if !done {
			return retry.RetryableError(errTaskPending)
		}
		return err
	})
	if errors.Is(err, errTaskPending) {
		return ErrTaskTimeout
	}
	return err
}

// pollBackoff yields the waits between checks: MaxAttempts-1 of them,
// growing by Backoff and capped at MaxInterval.
func pollBackoff(cfg PollConfig) retry.Backoff {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollConfig().PollInterval
	}

	var b retry.Backoff
	if cfg.Backoff <= 1 {
		b = retry.NewConstant(cfg.PollInterval)
	} else {
		next := cfg.PollInterval
		b = retry.BackoffFunc(func() (time.Duration, bool) {
			current := next
			if cfg.MaxInterval <= 0 || next < cfg.MaxInterval {
				next = time.Duration(float64(next) * cfg.Backoff)
			}
			return current, false
		})
	}
	if cfg.MaxInterval > 0 {
		b = retry.WithCappedDuration(cfg.MaxInterval, b)
	}
	return retry.WithMaxRetries(uint64(cfg.MaxAttempts-1), b)
}
