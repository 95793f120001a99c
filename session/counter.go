package session

import "sync/atomic"

// CounterValue is a full 64-bit counter snapshot. Only Nonce goes on the
// wire; the full value is kept locally for lifetime checks.
type CounterValue uint64

// Nonce returns the low 32 bits carried in the packet header.
func (c CounterValue) Nonce() uint32 {
	return uint32(c)
}

// Counter is a lock-free send counter. The zero value starts at 0.
type Counter struct {
	v atomic.Uint64
}

// Next returns the current value and advances the counter.
func (c *Counter) Next() CounterValue {
	return CounterValue(c.v.Add(1) - 1)
}

// Current returns the next value Next would hand out, without advancing.
func (c *Counter) Current() CounterValue {
	return CounterValue(c.v.Load())
}
