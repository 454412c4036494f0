package session

import (
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/go-zmtp/zmtp/wire"
)

// NewCircuitBreakerConfig returns a function that creates a circuit
// breaker for a given endpoint address, for use as Config's
// NewCircuitBreaker field. It trips once an endpoint has seen at
// least 3 requests with a failure ratio of 60% or higher.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) *gobreaker.CircuitBreaker[*wire.Message] {
	return func(endpointAddr string) *gobreaker.CircuitBreaker[*wire.Message] {
		settings := gobreaker.Settings{
			Name:        endpointAddr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}
		return gobreaker.NewCircuitBreaker[*wire.Message](settings)
	}
}
