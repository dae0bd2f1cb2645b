package catalog

import (
	"math"
	"time"
)

// BackoffPolicy returns how long to wait after failed attempt N (1-based).
type BackoffPolicy interface {
	NextDelay(attempt int) time.Duration
}

// FixedBackoff waits the same delay after every failed attempt.
type FixedBackoff struct {
	Delay time.Duration
}

func (b FixedBackoff) NextDelay(int) time.Duration {
	return b.Delay
}

// ExponentialBackoff grows the delay by Multiplier per attempt, capped at MaxDelay.
type ExponentialBackoff struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

func (b ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 1 || b.InitialDelay <= 0 {
		return b.InitialDelay
	}
	m := b.Multiplier
	if m < 1.0 {
		m = 1.0
	}
	delay := float64(b.InitialDelay) * math.Pow(m, float64(attempt-1))
	if b.MaxDelay > 0 && delay > float64(b.MaxDelay) {
		delay = float64(b.MaxDelay)
	}
	return time.Duration(delay)
}
