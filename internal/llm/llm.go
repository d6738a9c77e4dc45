// Package llm adapts the supported completion providers to a single
// system+user prompt interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/warehouse-agent/internal/config"
	"github.com/sells-group/warehouse-agent/internal/cost"
	"github.com/sells-group/warehouse-agent/internal/metrics"
)

// DefaultProvider is used when no provider is configured.
const DefaultProvider = "groq"

// ErrProvider marks failures returned by a completion provider.
var ErrProvider = errors.New("llm: provider error")

// Completer turns a system prompt and a user prompt into completion text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}

// Usage is the token accounting of one completion.
type Usage struct {
	InputTokens     int
	OutputTokens    int
	CacheReadTokens int
}

// providerError wraps a provider failure so that errors.Is(err, ErrProvider)
// holds while the concrete cause stays reachable with errors.As.
type providerError struct {
	provider string
	err      error
}

func (e *providerError) Error() string {
	return fmt.Sprintf("llm: %s: %v", e.provider, e.err)
}

func (e *providerError) Unwrap() error { return e.err }

func (e *providerError) Is(target error) bool { return target == ErrProvider }

func wrapProvider(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &providerError{provider: provider, err: err}
}

// Option configures a Completer built by New.
type Option func(*options)

type options struct {
	recorder *metrics.Recorder
	rates    cost.Rates
}

// WithMetrics records token usage and estimated spend on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithRates overrides the pricing table used for cost logging.
func WithRates(rates cost.Rates) Option {
	return func(o *options) { o.rates = rates }
}

type factory func(cfg config.LLMConfig) (backend, error)

// backend performs one raw completion for a provider.
type backend interface {
	complete(ctx context.Context, system, user string) (string, Usage, error)
	model() string
}

var registry = map[string]factory{
	"groq":      newGroq,
	"openai":    newOpenAI,
	"anthropic": newAnthropic,
}

// Names returns the registered provider names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// New builds the Completer for cfg.Provider. An empty provider selects groq.
func New(cfg config.LLMConfig, opts ...Option) (Completer, error) {
	o := options{rates: cost.DefaultRates()}
	for _, opt := range opts {
		opt(&o)
	}

	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = DefaultProvider
	}
	cfg.Provider = name

	mk, ok := registry[name]
	if !ok {
		return nil, eris.Errorf("llm: unknown provider %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	if cfg.APIKey() == "" {
		return nil, eris.Errorf("llm: %s: api key is required", name)
	}

	b, err := mk(cfg)
	if err != nil {
		return nil, eris.Wrapf(err, "llm: build %s", name)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &completer{
		name:     name,
		backend:  b,
		limiter:  limiter,
		calc:     cost.NewCalculator(o.rates),
		recorder: o.recorder,
	}, nil
}

// completer adds pacing, usage logging and error marking around a backend.
type completer struct {
	name     string
	backend  backend
	limiter  *rate.Limiter
	calc     *cost.Calculator
	recorder *metrics.Recorder
}

func (c *completer) Name() string { return c.name }

func (c *completer) Complete(ctx context.Context, system, user string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", wrapProvider(c.name, eris.Wrap(err, "rate limit wait"))
		}
	}

	text, usage, err := c.backend.complete(ctx, system, user)
	if err != nil {
		return "", wrapProvider(c.name, err)
	}

	model := c.backend.model()
	usd := c.calc.Completion(c.name, model, usage.InputTokens, usage.OutputTokens, usage.CacheReadTokens)
	c.recorder.AddUsage(c.name, usage.InputTokens+usage.CacheReadTokens, usage.OutputTokens, usd)
	zap.L().Debug("llm: completion",
		zap.String("provider", c.name),
		zap.String("model", model),
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
		zap.Int("cache_read_tokens", usage.CacheReadTokens),
		zap.Float64("estimated_cost_usd", usd),
	)

	if strings.TrimSpace(text) == "" {
		return "", wrapProvider(c.name, eris.New("empty completion"))
	}
	return text, nil
}
