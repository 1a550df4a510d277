package workflow

import (
	"context"
	"math/rand"
	"time"

	"offerflow/internal/erp"
)

type Strategy int

const (
	NoRetry Strategy = iota
	Immediate
	FixedDelay
	Exponential
)

// A surfaced conflict means remediation is exhausted; retrying is useless.
func Classify(err error) Strategy {
	switch {
	case err == nil:
		return NoRetry
	case erp.IsValidationError(err):
		return NoRetry
	case erp.IsConflict(err):
		return NoRetry
	case erp.IsServiceError(err):
		return Exponential
	default:
		return FixedDelay
	}
}

type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration

	sleep func(time.Duration)
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, sleep: time.Sleep}
}

func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	if p.sleep == nil {
		p.sleep = time.Sleep
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = op(ctx); err == nil {
			return nil
		}

		strategy := Classify(err)
		if strategy == NoRetry || attempt == attempts {
			return err
		}
		p.sleep(p.wait(strategy, attempt))
	}
	return err
}

func (p RetryPolicy) wait(strategy Strategy, attempt int) time.Duration {
	switch strategy {
	case Immediate:
		return 0
	case FixedDelay:
		return p.BaseDelay
	case Exponential:
		d := p.BaseDelay * (1 << (attempt - 1))
		jitter := time.Duration(rand.Int63n(int64(p.BaseDelay)/2 + 1))
		return d + jitter
	default:
		return 0
	}
}
