package crypto

import "time"

// TimeProvider abstracts the wall clock so tests can drive handshake
// timeouts and key rotation deterministically. Implementations must be safe
// for concurrent use.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since the given time.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

// NowMillis returns tp's current time as milliseconds since the Unix epoch,
// the clock representation the session layer works with.
func NowMillis(tp TimeProvider) int64 {
	if tp == nil {
		tp = DefaultTimeProvider{}
	}
	return tp.Now().UnixMilli()
}
