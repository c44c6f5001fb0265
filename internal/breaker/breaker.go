// Package breaker builds the circuit breakers that wrap calls back into the
// chat transport.
package breaker

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"moviehub/internal/logging"
	"moviehub/internal/metrics"
)

type Settings struct {
	Name        string
	MinRequests uint32        // requests in the window before the ratio is considered
	FailRatio   float64       // failure ratio that opens the circuit
	Timeout     time.Duration // time spent open before half-open
}

func DefaultSettings(name string) Settings {
	return Settings{
		Name:        name,
		MinRequests: 10,
		FailRatio:   0.6,
		Timeout:     30 * time.Second,
	}
}

// New returns a breaker that logs and exports its state transitions.
func New(s Settings) *gobreaker.CircuitBreaker[interface{}] {
	if s.MinRequests == 0 {
		s.MinRequests = 10
	}
	if s.FailRatio <= 0 || s.FailRatio > 1 {
		s.FailRatio = 0.6
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= s.FailRatio {
				logging.Warn().Str("breaker", s.Name).Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio).Msg("opening circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(StateValue(to))
		},
	})
}

// StateValue maps a breaker state onto the gauge encoding.
func StateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
