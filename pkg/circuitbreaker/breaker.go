// Package circuitbreaker wraps gobreaker with the defaults used for calls to
// the storefront API.
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type Settings struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before a trial request.
	OpenTimeout time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		MaxFailures: 5,
		OpenTimeout: 30 * time.Second,
	}
}

// New builds a breaker that trips after s.MaxFailures consecutive failures.
// Breakers only short-circuit; they never retry.
func New[T any](name string, s Settings, logger *zap.Logger) *gobreaker.CircuitBreaker[T] {
	if s.MaxFailures == 0 {
		s.MaxFailures = DefaultSettings().MaxFailures
	}
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// IsOpen reports whether err was produced by a breaker refusing the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
