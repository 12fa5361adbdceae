package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shop-finder/internal/status"
)

var (
	ErrBreakerOpen   = fmt.Errorf("circuit breaker is open: %w", status.ErrSourceUnavailable)
	ErrTooManyProbes = fmt.Errorf("too many requests when circuit breaker is half open: %w", status.ErrSourceUnavailable)

	defaultBreakerSettings = BreakerSettings{
		MinRequests:    20,
		Interval:       60 * time.Second,
		OpenTimeout:    30 * time.Second,
		FailureRatio:   0.6,
		HalfOpenProbes: 3,
	}
)

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

type BreakerSettings struct {
	// MinRequests in the current window before the failure ratio can trip.
	MinRequests  uint32
	Interval     time.Duration // counting window while closed, 0 never resets
	OpenTimeout  time.Duration
	FailureRatio float64
	// HalfOpenProbes is both the number of trial requests let through while
	// half open and the number of successes needed to close again.
	HalfOpenProbes uint32
	// OnStateChange runs with the breaker locked and must not call back into it.
	OnStateChange func(name string, from, to State)
}

type CircuitBreaker struct {
	name     string
	settings BreakerSettings

	mutex      sync.Mutex
	state      State
	generation uint64
	counts     Counts
	expiry     time.Time
}

func NewCircuitBreaker(name string) *CircuitBreaker {
	return NewCircuitBreakerWithSettings(name, defaultBreakerSettings)
}

func NewCircuitBreakerWithSettings(name string, settings BreakerSettings) *CircuitBreaker {
	if settings.HalfOpenProbes == 0 {
		settings.HalfOpenProbes = 1
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = defaultBreakerSettings.OpenTimeout
	}

	cb := &CircuitBreaker{
		name:     name,
		settings: settings,
		state:    StateClosed,
	}
	cb.toNewGeneration(time.Now())
	return cb
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	state, _ := cb.currentState(time.Now())
	return state
}

func (cb *CircuitBreaker) Counts() Counts {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return cb.counts
}

// Execute runs req unless the breaker is open. Context cancellation and
// deadlines are passed through without counting against the breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, req func(context.Context) error) error {
	generation, err := cb.beforeRequest()
	if err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			cb.afterRequest(generation, outcomeFailure)
			panic(e)
		}
	}()

	err = req(ctx)
	cb.afterRequest(generation, classify(ctx, err))
	return err
}

// Guard is Execute for calls that return a value.
func Guard[T any](ctx context.Context, cb *CircuitBreaker, req func(context.Context) (T, error)) (T, error) {
	var result T
	err := cb.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = req(ctx)
		return err
	})
	return result, err
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	outcomeIgnored
)

func classify(ctx context.Context, err error) outcome {
	switch {
	case err == nil:
		return outcomeSuccess
	case ctx.Err() != nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeIgnored
	default:
		return outcomeFailure
	}
}

func (cb *CircuitBreaker) beforeRequest() (uint64, error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	state, generation := cb.currentState(time.Now())

	if state == StateOpen {
		return generation, ErrBreakerOpen
	} else if state == StateHalfOpen && cb.counts.Requests >= cb.settings.HalfOpenProbes {
		return generation, ErrTooManyProbes
	}

	cb.counts.Requests++
	return generation, nil
}

func (cb *CircuitBreaker) afterRequest(before uint64, result outcome) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	now := time.Now()
	state, generation := cb.currentState(now)
	if generation != before {
		return
	}

	switch result {
	case outcomeSuccess:
		cb.onSuccess(state, now)
	case outcomeFailure:
		cb.onFailure(state, now)
	case outcomeIgnored:
		if state == StateHalfOpen && cb.counts.Requests > 0 {
			cb.counts.Requests--
		}
	}
}

func (cb *CircuitBreaker) onSuccess(state State, now time.Time) {
	cb.counts.TotalSuccesses++
	cb.counts.ConsecutiveSuccesses++
	cb.counts.ConsecutiveFailures = 0

	if state == StateHalfOpen && cb.counts.ConsecutiveSuccesses >= cb.settings.HalfOpenProbes {
		cb.setState(StateClosed, now)
	}
}

func (cb *CircuitBreaker) onFailure(state State, now time.Time) {
	cb.counts.TotalFailures++
	cb.counts.ConsecutiveFailures++
	cb.counts.ConsecutiveSuccesses = 0

	switch state {
	case StateClosed:
		if cb.readyToTrip() {
			cb.setState(StateOpen, now)
		}
	case StateHalfOpen:
		cb.setState(StateOpen, now)
	}
}

func (cb *CircuitBreaker) readyToTrip() bool {
	return cb.counts.Requests >= cb.settings.MinRequests &&
		float64(cb.counts.TotalFailures)/float64(cb.counts.Requests) >= cb.settings.FailureRatio
}

func (cb *CircuitBreaker) currentState(now time.Time) (State, uint64) {
	switch cb.state {
	case StateClosed:
		if !cb.expiry.IsZero() && cb.expiry.Before(now) {
			cb.toNewGeneration(now)
		}
	case StateOpen:
		if cb.expiry.Before(now) {
			cb.setState(StateHalfOpen, now)
		}
	}
	return cb.state, cb.generation
}

func (cb *CircuitBreaker) setState(state State, now time.Time) {
	if cb.state == state {
		return
	}

	prev := cb.state
	cb.state = state
	cb.toNewGeneration(now)

	if cb.settings.OnStateChange != nil {
		cb.settings.OnStateChange(cb.name, prev, state)
	}
}

func (cb *CircuitBreaker) toNewGeneration(now time.Time) {
	cb.generation++
	cb.counts = Counts{}

	var zero time.Time
	switch cb.state {
	case StateClosed:
		if cb.settings.Interval > 0 {
			cb.expiry = now.Add(cb.settings.Interval)
		} else {
			cb.expiry = zero
		}
	case StateOpen:
		cb.expiry = now.Add(cb.settings.OpenTimeout)
	default:
		cb.expiry = zero
	}
}
