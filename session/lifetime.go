package session

import (
	"io"

	"github.com/opd-ai/zssp/crypto"
)

// KeyLifetime holds the usage and age thresholds of one session key. All
// thresholds are fixed when the key is created.
type KeyLifetime struct {
	rekeyAtOrAfterCounter   uint64
	hardExpireAtCounter     uint64
	rekeyAtOrAfterTimestamp int64
}

// NewKeyLifetime computes thresholds relative to the counter and time at key
// creation, each soft threshold pushed out by a random jitter.
func NewKeyLifetime(rng io.Reader, current CounterValue, now int64) (KeyLifetime, error) {
	useJitter, err := crypto.RandomBelow(rng, RekeyAfterUsesMaxJitter)
	if err != nil {
		return KeyLifetime{}, err
	}
	timeJitter, err := crypto.RandomBelow(rng, RekeyAfterTimeMsMaxJitter)
	if err != nil {
		return KeyLifetime{}, err
	}
	return KeyLifetime{
		rekeyAtOrAfterCounter:   uint64(current) + RekeyAfterUses + uint64(useJitter),
		hardExpireAtCounter:     uint64(current) + ExpireAfterUses,
		rekeyAtOrAfterTimestamp: now + RekeyAfterTimeMs + int64(timeJitter),
	}, nil
}

// ShouldRekey reports whether either soft threshold has been reached.
func (l KeyLifetime) ShouldRekey(counter CounterValue, now int64) bool {
	return uint64(counter) >= l.rekeyAtOrAfterCounter || now >= l.rekeyAtOrAfterTimestamp
}

// Expired reports whether the hard usage ceiling has been reached.
func (l KeyLifetime) Expired(counter CounterValue) bool {
	return uint64(counter) >= l.hardExpireAtCounter
}
