package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateBackoffDuration(t *testing.T) {
	initial := 2 * time.Second
	max := time.Minute

	tests := []struct {
		name    string
		attempt int
		expect  time.Duration
	}{
		{name: "first retry", attempt: 1, expect: 2 * time.Second},
		{name: "second retry doubles", attempt: 2, expect: 4 * time.Second},
		{name: "third retry", attempt: 3, expect: 8 * time.Second},
		{name: "capped at max", attempt: 10, expect: time.Minute},
		{name: "attempt below one clamps", attempt: 0, expect: 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, CalculateBackoffDuration(tt.attempt, initial, 2.0, max))
		})
	}
}

func TestCalculateBackoffDurationZeroInitial(t *testing.T) {
	assert.Zero(t, CalculateBackoffDuration(3, 0, 2.0, 0))
}

func TestCalculateBackoffDurationIsMonotonic(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 1; attempt <= 10; attempt++ {
		d := CalculateBackoffDuration(attempt, time.Second, 1.5, time.Hour)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		prev = d
	}
}
