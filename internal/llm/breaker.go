package llm

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mohammad-safakhou/azadi/internal/logging"
)

// BreakerSettings tunes the circuit around a Model.
type BreakerSettings struct {
	Name             string
	ConsecutiveFails uint32
	OpenFor          time.Duration
	HalfOpenRequests uint32
	OnStateChange    func(name string, from, to gobreaker.State)
}

// Breaker fails fast with an UpstreamError once the model keeps failing.
// Caller cancellation does not count as a failure.
type Breaker struct {
	next Model
	cb   *gobreaker.CircuitBreaker[*Response]
}

// NewBreaker wraps next.
func NewBreaker(next Model, s BreakerSettings) *Breaker {
	if s.Name == "" {
		s.Name = "gemini"
	}
	if s.ConsecutiveFails == 0 {
		s.ConsecutiveFails = 5
	}
	if s.OpenFor <= 0 {
		s.OpenFor = time.Minute
	}
	if s.HalfOpenRequests == 0 {
		s.HalfOpenRequests = 1
	}
	fails := s.ConsecutiveFails
	onChange := s.OnStateChange
	cb := gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("model circuit state change")
			if onChange != nil {
				onChange(name, from, to)
			}
		},
	})
	return &Breaker{next: next, cb: cb}
}

// Generate forwards to the wrapped model unless the circuit is open.
func (b *Breaker) Generate(ctx context.Context, req Request) (*Response, error) {
	resp, err := b.cb.Execute(func() (*Response, error) {
		return b.next.Generate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &UpstreamError{Err: err}
		}
		return nil, err
	}
	return resp, nil
}

// State returns the current circuit state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
