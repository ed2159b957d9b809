package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/circuitbreaker"
	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/telemetry"
	"golang.org/x/time/rate"
)

// GuardConfig tunes the protections around a provider.
type GuardConfig struct {
	// Name labels metrics and logs, usually the provider.
	Name string
	// RatePerSecond and Burst feed a token bucket; zero rate disables limiting.
	RatePerSecond float64
	Burst         int
	Retry         retry.Config
	Breaker       circuitbreaker.Config
}

// Guarded wraps a Client with a rate limiter, retry with backoff and a
// circuit breaker, all inside one overall deadline.
type Guarded struct {
	inner     Client
	name      string
	limiter   *rate.Limiter
	breaker   *circuitbreaker.Breaker
	retry     retry.Config
	log       logger.Logger
	telemetry *telemetry.Provider
}

// NewGuarded builds the wrapper. tel may be nil.
func NewGuarded(inner Client, cfg GuardConfig, log logger.Logger, tel *telemetry.Provider) *Guarded {
	g := &Guarded{
		inner:     inner,
		name:      cfg.Name,
		retry:     cfg.Retry,
		log:       log.With(logger.String("component", "oracle"), logger.String("provider", cfg.Name)),
		telemetry: tel,
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	g.limiter = rate.NewLimiter(limit, burst)

	if g.retry.IsRetryable == nil {
		g.retry.IsRetryable = isRetryable
	}

	breakerCfg := cfg.Breaker
	breakerCfg.IsFailure = func(err error) bool {
		return err != nil && !errors.Is(err, context.Canceled)
	}
	breakerCfg.OnStateChange = func(from, to circuitbreaker.State) {
		g.log.Warn("Oracle circuit breaker state changed",
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
		g.telemetry.SetBreakerState(g.name, int(to))
	}
	g.breaker = circuitbreaker.New(breakerCfg)

	return g
}

// Invoke runs the guarded call. timeout bounds every attempt and backoff together.
func (g *Guarded) Invoke(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	start := time.Now()
	out, err := invokeWithin(ctx, prompt, timeout, g.attempts)
	g.telemetry.RecordOracleCall(g.name, Outcome(err), time.Since(start))

	if err != nil && ctx.Err() == nil {
		g.log.Warn("Oracle call failed",
			logger.String("outcome", Outcome(err)),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err),
		)
	}
	return out, err
}

func (g *Guarded) attempts(ctx context.Context, prompt string) (string, error) {
	var out string
	err := retry.Retry(ctx, g.retry, func(attemptCtx context.Context) error {
		if err := g.limiter.Wait(attemptCtx); err != nil {
			return fmt.Errorf("%w: rate limit wait: %w", ErrTimeout, err)
		}
		return g.breaker.Execute(attemptCtx, func(callCtx context.Context) error {
			reply, err := g.inner.Invoke(callCtx, prompt, 0)
			if err != nil {
				return err
			}
			out = reply
			return nil
		})
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return out, err
}

// isRetryable retries throttling, 5xx and transient network errors. Timeouts,
// open circuits and configuration errors are final.
func isRetryable(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrEmptyPrompt),
		errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return false
	}
	if retryable, matched := anthropicRetryable(err); matched {
		return retryable
	}
	if retryable, matched := openAIRetryable(err); matched {
		return retryable
	}
	return retry.DefaultIsRetryable(err)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
