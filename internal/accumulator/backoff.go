package accumulator

import (
	"math/rand"
	"time"
)

// backoff computes exponential retry delays with ±20% jitter.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Next returns the delay for the current attempt and doubles it for the
// following one, capped at max.
func (b *backoff) Next() time.Duration {
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	d := time.Duration(float64(b.current) + jitter)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

// Reset restores the initial delay.
func (b *backoff) Reset() {
	b.current = b.initial
}

// Current returns the delay the next call to Next is based on.
func (b *backoff) Current() time.Duration {
	return b.current
}
