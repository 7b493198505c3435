// Package retrier is a thin fixed-count retry combinator. It is applied
// independently at two layers (the whole evaluation attempt and the judge
// call) which keep fully separate budgets.
package retrier

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// interAttemptDelay keeps the backoff effectively zero; consecutive
// attempts start immediately.
const interAttemptDelay = time.Millisecond

// Do calls fn until it succeeds, allowing up to retries additional attempts
// after the first. Any error is retried. The last error is returned once
// the budget is exhausted; a cancelled context stops further attempts.
func Do[T any](ctx context.Context, retries int, fn func(context.Context) (T, error)) (T, error) {
	var out T

	backoff := retry.WithMaxRetries(uint64(retries), retry.NewConstant(interAttemptDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
