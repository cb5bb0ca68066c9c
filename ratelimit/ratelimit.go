package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter выдерживает минимальный интервал между последовательными
// запросами к одному внешнему источнику. Чистый примитив задержки:
// ошибка возможна только при отмене контекста.
type Limiter interface {
	Wait(ctx context.Context, sourceKey string) error
}

// IntervalLimiter держит независимый бюджет на каждый sourceKey.
// Интервалы задаются при создании; неизвестный ключ пропускается
// без задержки.
type IntervalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	spacing  map[string]time.Duration
}

func NewIntervalLimiter(spacing map[string]time.Duration) *IntervalLimiter {
	cp := make(map[string]time.Duration, len(spacing))
	for k, v := range spacing {
		cp[k] = v
	}
	return &IntervalLimiter{
		limiters: make(map[string]*rate.Limiter, len(cp)),
		spacing:  cp,
	}
}

func (l *IntervalLimiter) Wait(ctx context.Context, sourceKey string) error {
	limiter := l.limiterFor(sourceKey)
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

func (l *IntervalLimiter) limiterFor(sourceKey string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters[sourceKey]; ok {
		return limiter
	}
	interval, ok := l.spacing[sourceKey]
	if !ok || interval <= 0 {
		return nil
	}
	// burst=1: первый запрос проходит сразу, дальше строго по интервалу.
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	l.limiters[sourceKey] = limiter
	return limiter
}
