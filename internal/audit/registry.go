package audit

import (
	"golang.org/x/time/rate"

	"github.com/halosight/presence-cli/internal/config"
	"github.com/halosight/presence-cli/internal/cost"
	"github.com/halosight/presence-cli/internal/resilience"
	"github.com/halosight/presence-cli/pkg/platform"
	"github.com/halosight/presence-cli/pkg/platform/anthropic"
	"github.com/halosight/presence-cli/pkg/platform/gemini"
	"github.com/halosight/presence-cli/pkg/platform/grok"
	"github.com/halosight/presence-cli/pkg/platform/openai"
	"github.com/halosight/presence-cli/pkg/platform/perplexity"
)

// BuildRegistry constructs a runner for every platform with an API key
// configured, each wrapped with a per-platform rate limit and circuit
// breaker. Platforms without keys stay unregistered and fail at resolve
// time instead of at startup.
func BuildRegistry(cfg *config.Config, breakers *resilience.ServiceBreakers) *platform.Registry {
	reg := platform.NewRegistry()
	maxTokens := cfg.Audit.MaxTokens

	if cfg.OpenAI.Key != "" {
		client := openai.NewClient(cfg.OpenAI.Key)
		runner := openai.NewRunner(client, cfg.OpenAI.Model, cfg.OpenAI.SearchModel, int64(maxTokens))
		reg.Register(decorate(runner, cfg.Audit, breakers))
	}
	if cfg.Anthropic.Key != "" {
		client := anthropic.NewClient(cfg.Anthropic.Key)
		runner := anthropic.NewRunner(client, cfg.Anthropic.Model, int64(maxTokens), cfg.Anthropic.SearchMaxUses)
		reg.Register(decorate(runner, cfg.Audit, breakers))
	}
	if cfg.Perplexity.Key != "" {
		var opts []perplexity.Option
		if cfg.Perplexity.BaseURL != "" {
			opts = append(opts, perplexity.WithBaseURL(cfg.Perplexity.BaseURL))
		}
		client := perplexity.NewClient(cfg.Perplexity.Key, opts...)
		runner := perplexity.NewRunner(client, cfg.Perplexity.Model, maxTokens)
		reg.Register(decorate(runner, cfg.Audit, breakers))
	}
	if cfg.Gemini.Key != "" {
		var opts []gemini.Option
		if cfg.Gemini.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.Gemini.BaseURL))
		}
		client := gemini.NewClient(cfg.Gemini.Key, opts...)
		runner := gemini.NewRunner(client, cfg.Gemini.Model, maxTokens)
		reg.Register(decorate(runner, cfg.Audit, breakers))
	}
	if cfg.Grok.Key != "" {
		var opts []grok.Option
		if cfg.Grok.BaseURL != "" {
			opts = append(opts, grok.WithBaseURL(cfg.Grok.BaseURL))
		}
		client := grok.NewClient(cfg.Grok.Key, opts...)
		runner := grok.NewRunner(client, cfg.Grok.Model, maxTokens)
		reg.Register(decorate(runner, cfg.Audit, breakers))
	}

	return reg
}

// decorate wraps a vendor runner with the shared per-platform controls.
// The breaker sits outside the limiter so open-circuit rejections don't
// consume rate tokens. A zero rate disables limiting entirely.
func decorate(r platform.Runner, cfg config.AuditConfig, breakers *resilience.ServiceBreakers) platform.Runner {
	if cfg.PlatformRPS > 0 {
		burst := cfg.PlatformBurst
		if burst < 1 {
			burst = 1
		}
		r = platform.WithRateLimit(r, rate.Limit(cfg.PlatformRPS), burst)
	}
	return platform.WithBreaker(r, breakers.Get(r.Platform()))
}

// RatesFromConfig converts configured pricing to calculator rates,
// falling back to the built-in defaults when nothing is configured.
func RatesFromConfig(cfg config.PricingConfig) map[string]cost.Rate {
	if len(cfg.Platforms) == 0 {
		return cost.DefaultRates()
	}
	rates := make(map[string]cost.Rate, len(cfg.Platforms))
	for p, mp := range cfg.Platforms {
		rates[p] = cost.Rate{
			Input:    mp.Input,
			Output:   mp.Output,
			PerQuery: mp.PerQuery,
		}
	}
	return rates
}
