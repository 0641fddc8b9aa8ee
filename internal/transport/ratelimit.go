package transport

import (
	"golang.org/x/time/rate"
)

// newLimiter builds the outgoing-request limiter. Zero or negative values fall
// back to defaults.
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		rps = 4
	}
	if burst <= 0 {
		burst = 10
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
