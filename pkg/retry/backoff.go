// Package retry computes the delay schedule for re-enqueued work items.
package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// CalculateBackoffDuration returns the delay before the given retry attempt
// (attempt 1 = first retry), capped at maxInterval. Randomization is disabled
// so requeue delays are reproducible.
func CalculateBackoffDuration(attempt int, initialInterval time.Duration, multiplier float64, maxInterval time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initialInterval
	exp.MaxInterval = maxInterval
	exp.Multiplier = multiplier
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()

	var delay time.Duration
	for i := 0; i < attempt; i++ {
		delay = exp.NextBackOff()
	}
	return delay
}
