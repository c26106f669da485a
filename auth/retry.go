package auth

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/alexjbarnes/apiconfig"
)

const defaultRefreshRetries = 3

// DefaultBackOff returns the policy RefreshWithRetry uses when given nil:
// exponential from 500ms, at most three retries.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	return backoff.WithMaxRetries(b, defaultRefreshRetries)
}

// RefreshWithRetry calls s.Refresh, retrying with b while the failure is
// transient. Credential and response format errors are returned at once.
func RefreshWithRetry(ctx context.Context, s Strategy, b backoff.BackOff) (*TokenRefreshResult, error) {
	if !s.CanRefresh() {
		return nil, apiconfig.Wrap(apiconfig.ErrRefreshNotSupported, nil, "strategy does not support token refresh")
	}
	if b == nil {
		b = DefaultBackOff()
	}

	var result *TokenRefreshResult
	op := func() error {
		res, err := s.Refresh(ctx)
		if err != nil {
			if apiconfig.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if res == nil {
			return backoff.Permanent(apiconfig.Wrap(apiconfig.ErrTokenRefresh, nil, "refresh returned no result"))
		}
		result = res
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return result, nil
}
