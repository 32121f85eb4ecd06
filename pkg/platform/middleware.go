package platform

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/halosight/presence-cli/internal/resilience"
)

// WithRateLimit wraps a runner with a token bucket so concurrent audit
// fan-out cannot exceed the vendor's request budget.
func WithRateLimit(inner Runner, limit rate.Limit, burst int) Runner {
	return &limitedRunner{
		inner:   inner,
		limiter: rate.NewLimiter(limit, burst),
	}
}

type limitedRunner struct {
	inner   Runner
	limiter *rate.Limiter
}

func (r *limitedRunner) Platform() string {
	return r.inner.Platform()
}

func (r *limitedRunner) Run(ctx context.Context, prompt Prompt) (*Answer, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "platform: rate limiter wait")
	}
	return r.inner.Run(ctx, prompt)
}

// WithBreaker wraps a runner with a circuit breaker. Once the breaker
// opens, calls fail fast with resilience.ErrCircuitOpen instead of
// burning the remaining queries of an audit against a dead vendor.
func WithBreaker(inner Runner, cb *resilience.CircuitBreaker) Runner {
	return &breakerRunner{inner: inner, cb: cb}
}

type breakerRunner struct {
	inner Runner
	cb    *resilience.CircuitBreaker
}

func (r *breakerRunner) Platform() string {
	return r.inner.Platform()
}

func (r *breakerRunner) Run(ctx context.Context, prompt Prompt) (*Answer, error) {
	return resilience.ExecuteVal(ctx, r.cb, func(ctx context.Context) (*Answer, error) {
		return r.inner.Run(ctx, prompt)
	})
}
