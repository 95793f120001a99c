package session

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIDRange(t *testing.T) {
	tests := []struct {
		name  string
		value uint64
		valid bool
	}{
		{"zero", 0, false},
		{"one", 1, true},
		{"mid", 0x0000_1234_5678_9abc, true},
		{"max", SessionIDMask, true},
		{"above max", SessionIDMask + 1, false},
		{"all bits", ^uint64(0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := SessionIDFromUint64(tt.value)
			assert.Equal(t, tt.valid, ok)
		})
	}
}

func TestSessionIDBytes(t *testing.T) {
	b := make([]byte, SessionIDSize)
	SessionID(SessionIDMask).CopyTo(b)
	assert.Equal(t, bytes.Repeat([]byte{0xff}, SessionIDSize), b)

	id, ok := SessionIDFromBytes(b)
	require.True(t, ok)
	assert.Equal(t, SessionID(SessionIDMask), id)

	SessionID(1).CopyTo(b)
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0}, b)

	_, ok = SessionIDFromBytes(make([]byte, SessionIDSize))
	assert.False(t, ok, "zero is reserved")
	_, ok = SessionIDFromBytes(b[:5])
	assert.False(t, ok, "short input")
}

func TestNewRandomSessionID(t *testing.T) {
	for i := 0; i < 100; i++ {
		id, err := NewRandomSessionID(rand.Reader)
		require.NoError(t, err)
		assert.NotZero(t, id)
		assert.LessOrEqual(t, uint64(id), SessionIDMask)
	}

	// a draw that masks to zero is rejected and retried
	src := append(make([]byte, 8), 7, 0, 0, 0, 0, 0, 0, 0)
	id, err := NewRandomSessionID(bytes.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, SessionID(7), id)

	_, err = NewRandomSessionID(bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestSessionIDString(t *testing.T) {
	assert.Equal(t, "00000000002a", SessionID(42).String())
}
