package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sony/gobreaker"
)

// DefaultTimeout bounds a single provider attempt.
const DefaultTimeout = 5 * time.Second

// BreakerConfig controls the circuit breaker wrapped around every tier.
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig returns the breaker settings used when none are given.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

type tier struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
}

// Chain tries its providers in order and returns the first success.
type Chain struct {
	name     string
	tiers    []tier
	timeout  time.Duration
	breaker  BreakerConfig
	observer Observer
	logger   *slog.Logger
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithTimeout sets the per-tier timeout.
func WithTimeout(d time.Duration) ChainOption {
	return func(c *Chain) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBreaker overrides the circuit breaker settings.
func WithBreaker(cfg BreakerConfig) ChainOption {
	return func(c *Chain) { c.breaker = cfg }
}

// WithObserver reports every attempt to o.
func WithObserver(o Observer) ChainOption {
	return func(c *Chain) { c.observer = o }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) ChainOption {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewChain builds a chain over providers in priority order. Nil providers
// are skipped.
func NewChain(name string, providers []Provider, opts ...ChainOption) *Chain {
	c := &Chain{
		name:    name,
		timeout: DefaultTimeout,
		breaker: DefaultBreakerConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, p := range providers {
		if p == nil {
			continue
		}
		c.tiers = append(c.tiers, tier{provider: p, breaker: c.newBreaker(p.Name())})
	}
	return c
}

func (c *Chain) newBreaker(provider string) *gobreaker.CircuitBreaker {
	cfg := c.breaker
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        c.name + "/" + provider,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.logger.Warn("provider circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
		// A miss is a healthy answer. An attempt abandoned by the caller says
		// nothing about the provider.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoResult) || errors.Is(err, errCallerGone)
		},
	})
}

// Name returns the chain name.
func (c *Chain) Name() string { return c.name }

// Providers returns the provider names in order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.tiers))
	for i, t := range c.tiers {
		names[i] = t.provider.Name()
	}
	return names
}

// errCallerGone marks an attempt cut short by the caller's own context.
var errCallerGone = errors.New("caller context done")

// Run returns the first successful answer and the name of the provider that
// produced it. Later tiers are not invoked once one succeeds. When every
// tier fails the error wraps ErrAllProvidersExhausted and each tier failure.
// Once ctx is done Run stops and returns ctx.Err() without charging any
// provider for it.
func (c *Chain) Run(ctx context.Context, topic string) (Answer, string, error) {
	var errs *multierror.Error
	for _, t := range c.tiers {
		if err := ctx.Err(); err != nil {
			return Answer{}, "", fmt.Errorf("chain %q: %w", c.name, err)
		}
		name := t.provider.Name()
		start := time.Now()
		ans, err := c.attempt(ctx, t, topic)
		if errors.Is(err, errCallerGone) {
			c.logger.Debug("lookup abandoned by caller", "chain", c.name, "provider", name, "topic", topic)
			return Answer{}, "", fmt.Errorf("chain %q: %w", c.name, ctx.Err())
		}
		outcome := OutcomeSuccess
		switch {
		case err == nil:
		case errors.Is(err, ErrNoResult):
			outcome = OutcomeMiss
		default:
			outcome = OutcomeUnavailable
		}
		if c.observer != nil {
			c.observer.ObserveProviderAttempt(c.name, name, outcome, time.Since(start))
		}

		if err == nil {
			c.logger.Debug("provider answered", "chain", c.name, "provider", name, "topic", topic)
			return ans, name, nil
		}
		if outcome == OutcomeUnavailable {
			c.logger.Warn("provider unavailable", "chain", c.name, "provider", name, "topic", topic, "error", err)
		}
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", name, err))
	}

	if errs == nil {
		return Answer{}, "", fmt.Errorf("%w: chain %q has no providers", ErrAllProvidersExhausted, c.name)
	}
	return Answer{}, "", fmt.Errorf("%w: %w", ErrAllProvidersExhausted, errs.ErrorOrNil())
}

func (c *Chain) attempt(parent context.Context, t tier, topic string) (Answer, error) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	res, err := t.breaker.Execute(func() (interface{}, error) {
		ans, err := call(ctx, t.provider, topic)
		if err != nil && parent.Err() != nil {
			return Answer{}, fmt.Errorf("%w: %w", errCallerGone, parent.Err())
		}
		return ans, err
	})
	if err != nil {
		if errors.Is(err, ErrNoResult) || errors.Is(err, ErrProviderUnavailable) || errors.Is(err, errCallerGone) {
			return Answer{}, err
		}
		return Answer{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	return res.(Answer), nil
}

// call runs one provider attempt in its own goroutine so a provider that
// ignores ctx still cannot hold the chain past the deadline.
func call(ctx context.Context, p Provider, topic string) (Answer, error) {
	type outcome struct {
		ans Answer
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: panic: %v", ErrProviderUnavailable, r)}
			}
		}()
		ans, err := p.Attempt(ctx, topic)
		done <- outcome{ans: ans, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return Answer{}, o.err
		}
		if strings.TrimSpace(o.ans.Body) == "" {
			return Answer{}, ErrNoResult
		}
		return o.ans, nil
	case <-ctx.Done():
		return Answer{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, ctx.Err())
	}
}
