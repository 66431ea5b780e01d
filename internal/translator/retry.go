package translator

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// RetryPolicy bounds the retry loop around a service call.
type RetryPolicy struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// DefaultRetryPolicy retries transient failures up to 3 attempts with
// exponential backoff starting at 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// TranslateWithRetry calls svc.Translate, retrying transient failures per
// the policy. Permanent failures and context cancellation stop the loop
// immediately.
func TranslateWithRetry(ctx context.Context, svc Service, cfg Config, req Request, policy RetryPolicy, log zerolog.Logger) (*Result, error) {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.InitialInterval
	bo.MaxInterval = policy.MaxInterval
	bo.MaxElapsedTime = 0

	var result *Result
	attempt := 0
	op := func() error {
		attempt++
		r, err := svc.Translate(ctx, cfg, req)
		if err != nil {
			if !IsTransient(err) || attempt >= policy.MaxAttempts {
				return backoff.Permanent(err)
			}
			log.Warn().
				Str("service", svc.Name()).
				Int("attempt", attempt).
				Err(err).
				Msg("translation attempt failed, retrying")
			return err
		}
		result = r
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return result, nil
}
