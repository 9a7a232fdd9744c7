package catalog

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// BreakerState is the circuit breaker state.
type BreakerState uint32

const (
	Closed   BreakerState = iota // Normal operation
	Open                         // Failing fast
	HalfOpen                     // Testing recovery
)

func (s BreakerState) String() string {
	return [...]string{"closed", "open", "half-open"}[s]
}

// ErrBreakerOpen is returned while the catalog is considered unreachable.
var ErrBreakerOpen = errors.New("catalog: circuit breaker open")

// BreakerConfig tunes the breaker.
type BreakerConfig struct {
	// Threshold is the consecutive failures that open the breaker.
	Threshold int `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	// ResetTimeout is how long the breaker stays open before probing.
	ResetTimeout time.Duration `mapstructure:"reset_timeout" yaml:"reset_timeout" json:"reset_timeout"`
	// HalfOpenSuccesses closes the breaker again.
	HalfOpenSuccesses int `mapstructure:"half_open_successes" yaml:"half_open_successes" json:"half_open_successes"`
}

// DefaultBreakerConfig returns the default thresholds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Threshold: 3, ResetTimeout: 10 * time.Second, HalfOpenSuccesses: 1}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	def := DefaultBreakerConfig()
	if c.Threshold <= 0 {
		c.Threshold = def.Threshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = def.ResetTimeout
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = def.HalfOpenSuccesses
	}
	return c
}

// Breaker is a circuit breaker with atomic state.
type Breaker struct {
	cfg           BreakerConfig
	state         atomic.Uint32
	failures      atomic.Int32
	successes     atomic.Int32
	lastFailure   atomic.Int64 // unix nano
	now           func() time.Time
	onStateChange func(from, to BreakerState)
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	b := &Breaker{cfg: cfg.withDefaults(), now: time.Now}
	b.state.Store(uint32(Closed))
	return b
}

// WithHook sets a state change callback.
func (b *Breaker) WithHook(fn func(from, to BreakerState)) *Breaker {
	b.onStateChange = fn
	return b
}

// Allow returns nil if a request may proceed.
func (b *Breaker) Allow() error {
	if BreakerState(b.state.Load()) == Open {
		if b.shouldAttemptReset() {
			b.transition(HalfOpen)
			return nil
		}
		return ErrBreakerOpen
	}
	return nil
}

// Success records a successful call.
func (b *Breaker) Success() {
	switch BreakerState(b.state.Load()) {
	case HalfOpen:
		if b.successes.Add(1) >= int32(b.cfg.HalfOpenSuccesses) {
			b.transition(Closed)
		}
	case Closed:
		b.failures.Store(0)
	}
}

// Failure records a failed call.
func (b *Breaker) Failure() {
	b.lastFailure.Store(b.now().UnixNano())
	count := b.failures.Add(1)

	switch BreakerState(b.state.Load()) {
	case HalfOpen:
		b.transition(Open)
	case Closed:
		if count >= int32(b.cfg.Threshold) {
			b.transition(Open)
		}
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	return BreakerState(b.state.Load())
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.transition(Closed)
}

func (b *Breaker) transition(to BreakerState) {
	from := BreakerState(b.state.Swap(uint32(to)))
	if from == to {
		return
	}

	switch to {
	case Closed:
		b.failures.Store(0)
		b.successes.Store(0)
		slog.Info("Catalog circuit breaker closed")
	case Open:
		b.successes.Store(0)
		slog.Warn("Catalog circuit breaker opened", "failures", b.failures.Load())
	case HalfOpen:
		b.successes.Store(0)
		slog.Info("Catalog circuit breaker half-open")
	}

	if b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}

func (b *Breaker) shouldAttemptReset() bool {
	last := b.lastFailure.Load()
	if last == 0 {
		return true
	}
	return b.now().Sub(time.Unix(0, last)) > b.cfg.ResetTimeout
}
