package ingest

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// Reconnection defaults.
const (
	InitialBackoff = 1 * time.Second
	MaxBackoff     = 30 * time.Second
	BackoffFactor  = 2.0
	JitterPercent  = 0.2
)

// Backoff computes reconnect delays: min(Max, Base*2^retry) plus up to
// Jitter of that value on top.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64

	// rand returns a value in [0, 1); nil means math/rand
	rand func() float64
}

// DefaultBackoff returns the standard reconnect policy.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:   InitialBackoff,
		Max:    MaxBackoff,
		Jitter: JitterPercent,
	}
}

// Validate checks the policy is usable.
func (b Backoff) Validate() error {
	if b.Base <= 0 {
		return errors.New("backoff base must be positive")
	}
	if b.Max < b.Base {
		return errors.New("backoff max must not be below base")
	}
	if math.IsNaN(b.Jitter) || b.Jitter < 0 || b.Jitter > 1 {
		return errors.New("backoff jitter must be between 0 and 1")
	}
	return nil
}

// Ceiling returns the delay before jitter for the given retry count.
func (b Backoff) Ceiling(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	delay := b.Base
	for i := 0; i < retryCount; i++ {
		if delay >= b.Max || delay > b.Max/BackoffFactor {
			return b.Max
		}
		delay = time.Duration(float64(delay) * BackoffFactor)
	}
	if delay > b.Max {
		return b.Max
	}
	return delay
}

// Delay returns the jittered delay for the given retry count.
func (b Backoff) Delay(retryCount int) time.Duration {
	delay := b.Ceiling(retryCount)
	r := rand.Float64
	if b.rand != nil {
		r = b.rand
	}
	return delay + time.Duration(float64(delay)*b.Jitter*r())
}
