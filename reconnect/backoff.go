// Package reconnect holds the policy deciding whether and when a dropped
// connection is retried: an exponential backoff, a sliding window counting
// recent closes, and a threshold on that count.
package reconnect

import (
	"time"

	"github.com/jpillora/backoff"
)

const (
	DefaultUnit = time.Second
	DefaultMax  = 60 * time.Second
)

// Backoff computes min(Unit*2^attempt, Max). It carries no attempt counter of
// its own; callers pass the current close frequency.
type Backoff struct {
	Unit time.Duration
	Max  time.Duration
}

// Wait returns the delay for the given attempt. Negative attempts are treated
// as zero.
func (b Backoff) Wait(attempt int) time.Duration {
	unit, ceiling := b.Unit, b.Max
	if unit <= 0 {
		unit = DefaultUnit
	}
	if ceiling <= 0 {
		ceiling = DefaultMax
	}
	if attempt < 0 {
		attempt = 0
	}
	bo := &backoff.Backoff{Min: unit, Max: ceiling, Factor: 2}
	return bo.ForAttempt(float64(attempt))
}
