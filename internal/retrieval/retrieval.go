// Package retrieval answers "what is X" questions by walking an ordered
// chain of information providers until one of them succeeds.
package retrieval

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoResult is returned by a provider that answered but had nothing
	// useful for the topic.
	ErrNoResult = errors.New("no result")

	// ErrProviderUnavailable wraps transport, decode, timeout, breaker and
	// panic failures of a single provider.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrAllProvidersExhausted is returned by Chain.Run when every tier missed.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
)

// Answer is a provider hit.
type Answer struct {
	// Body is markdown ready to show to the user.
	Body string
	// PointerOnly marks an answer that is only a link elsewhere.
	PointerOnly bool
}

// Provider is one tier of a chain.
type Provider interface {
	Name() string
	// Attempt returns ErrNoResult on a miss. Any other error is treated as
	// the provider being unavailable.
	Attempt(ctx context.Context, topic string) (Answer, error)
}

// Observer receives one call per provider attempt.
type Observer interface {
	ObserveProviderAttempt(chain, provider, outcome string, elapsed time.Duration)
}

// Attempt outcomes reported to an Observer.
const (
	OutcomeSuccess     = "success"
	OutcomeMiss        = "miss"
	OutcomeUnavailable = "unavailable"
)

// Result is what the retrieval service hands to the dialogue layer.
type Result struct {
	Body string
	// CanonicalKey is the condition key used to link reminders. Empty means none.
	CanonicalKey string
	Succeeded    bool
	// Source names the provider that answered.
	Source string
}
