package providers

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/prostaff/match-ingest/ratelimit"
)

// Параметры повторов для обоих источников: транзиентные и
// rate-limited сбои повторяются с экспоненциальной паузой,
// notFound/fatal пробрасываются сразу.
const (
	retryMaxTries       = 4
	retryInitialBackoff = 2 * time.Second
	retryMaxBackoff     = 2 * time.Minute
)

// callWithRetry выполняет запрос к источнику sourceKey: сначала ждёт
// разрешения лимитера (в том числе перед каждым повтором — пауза
// повтора не отменяет контракт интервала), затем вызывает fn.
func callWithRetry[T any](ctx context.Context, limiter ratelimit.Limiter, sourceKey string, fn func(context.Context) (T, error)) (T, error) {
	operation := func() (T, error) {
		var zero T
		if err := limiter.Wait(ctx, sourceKey); err != nil {
			return zero, backoff.Permanent(err)
		}
		value, err := fn(ctx)
		if err != nil && !retryable(err) {
			return zero, backoff.Permanent(err)
		}
		return value, err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = retryInitialBackoff
	expo.MaxInterval = retryMaxBackoff

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(retryMaxTries),
	)
}
