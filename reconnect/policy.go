package reconnect

import "time"

// DefaultThreshold is the number of closes inside the window that ends
// reconnecting.
const DefaultThreshold = 5

// Exceeded reports whether freq has reached a positive threshold.
func Exceeded(threshold, freq int) bool {
	return threshold > 0 && freq >= threshold
}

// Decision is the outcome of a reconnect evaluation.
type Decision struct {
	// Attempt is the close frequency used as backoff exponent.
	Attempt int
	Wait    time.Duration
	Stop    bool
}

// Policy combines the window, threshold and backoff. A Threshold of zero or
// less disables the threshold.
type Policy struct {
	Backoff   Backoff
	Window    *Window
	Threshold int
}

// Next records a close at now and decides what to do about it.
func (p *Policy) Next(now time.Time) Decision {
	if p.Window == nil {
		p.Window = NewWindow(0)
	}
	p.Window.Record(now)
	freq := p.Window.Frequency(now)
	if Exceeded(p.Threshold, freq) {
		return Decision{Attempt: freq, Stop: true}
	}
	return Decision{Attempt: freq, Wait: p.Backoff.Wait(freq)}
}
