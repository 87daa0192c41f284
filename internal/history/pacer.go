package history

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Sleeper blocks for d.
type Sleeper func(d time.Duration)

// Pacer produces the randomized pause taken between consecutive chunk requests.
//
// Pauses are drawn uniformly from [0, max]. The delay never grows: it is a fixed jitter
// applied regardless of how the exchange responded.
type Pacer struct {
	policy *backoff.ExponentialBackOff
	sleep  Sleeper
}

// NewPacer creates a pacer whose pauses never exceed max. A max of zero disables pausing.
// A nil sleep uses time.Sleep.
func NewPacer(max time.Duration, sleep Sleeper) *Pacer {
	if sleep == nil {
		sleep = time.Sleep
	}
	if max <= 0 {
		return &Pacer{sleep: sleep}
	}

	// A randomization factor of 1 around max/2 yields a uniform draw from [0, max];
	// a multiplier of 1 keeps the centre fixed between draws.
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = max / 2
	policy.MaxInterval = max / 2
	policy.Multiplier = 1
	policy.RandomizationFactor = 1
	policy.MaxElapsedTime = 0
	policy.Reset()

	return &Pacer{policy: policy, sleep: sleep}
}

// Next returns the next pause without sleeping.
func (p *Pacer) Next() time.Duration {
	if p.policy == nil {
		return 0
	}
	d := p.policy.NextBackOff()
	if d < 0 {
		return 0
	}
	return d
}

// Pause sleeps for the next pause and returns its length.
func (p *Pacer) Pause() time.Duration {
	d := p.Next()
	if d > 0 {
		p.sleep(d)
	}
	return d
}
