// Package retry holds the delay computation shared by the synchronous and
// queue-backed runners. The formula is pure so scheduling behaviour can be
// asserted in tests independent of execution mode.
package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Unlimited disables the retry budget: the step is retried forever with
// growing, capped delay.
const Unlimited = -1

// Policy configures per-step retrying. The zero value means "no retries".
type Policy struct {
	// MaxRetries is the number of retry attempts after the initial failure.
	// Unlimited retries forever.
	MaxRetries int

	// Delay is the base delay d.
	Delay time.Duration

	// Backoff is the exponent b. Zero means a constant delay of Delay.
	Backoff float64

	// MaxDelay caps the computed delay. Zero means unbounded.
	MaxDelay time.Duration

	// JitterMin/JitterMax add a fixed offset (when equal) or a uniform
	// random offset drawn from [JitterMin, JitterMax).
	JitterMin time.Duration
	JitterMax time.Duration
}

// DefaultPolicy mirrors the step defaults: three retries, two-second base
// delay, quadratic backoff.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, Delay: 2 * time.Second, Backoff: 2}
}

// Exhausted reports whether the 1-based retry attempt n exceeds the budget.
func (p Policy) Exhausted(attempt int) bool {
	if p.MaxRetries == Unlimited {
		return false
	}
	return attempt > p.MaxRetries
}

// Delay returns the wait before retry attempt n (1-based):
//
//	baseDelay(n) = d            if b is zero
//	             = (d * n) ** b otherwise
//	delay(n)     = min(baseDelay(n), MaxDelay) + jitter
func Delay(p Policy, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	seconds := p.Delay.Seconds()
	if p.Backoff != 0 {
		seconds = math.Pow(seconds*float64(attempt), p.Backoff)
	}

	d := time.Duration(seconds * float64(time.Second))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}

	return d + jitter(p)
}

func jitter(p Policy) time.Duration {
	if p.JitterMax > p.JitterMin {
		span := p.JitterMax - p.JitterMin
		return p.JitterMin + time.Duration(rand.Int64N(int64(span)))
	}
	return p.JitterMin
}
