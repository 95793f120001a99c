package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplayWindowRejectsDuplicates(t *testing.T) {
	var w replayWindow
	assert.True(t, w.CheckAndStore(5))
	assert.False(t, w.CheckAndStore(5))
	assert.True(t, w.CheckAndStore(7))
	assert.True(t, w.CheckAndStore(6), "out of order inside the window")
	assert.False(t, w.CheckAndStore(6))
	assert.False(t, w.CheckAndStore(7))
}

func TestReplayWindowFirstCounterZero(t *testing.T) {
	var w replayWindow
	assert.True(t, w.CheckAndStore(0))
	assert.False(t, w.CheckAndStore(0))
	assert.True(t, w.CheckAndStore(1))
}

func TestReplayWindowRejectsTooOld(t *testing.T) {
	var w replayWindow
	assert.True(t, w.CheckAndStore(10))
	assert.True(t, w.CheckAndStore(10+replayWindowSize))
	assert.False(t, w.CheckAndStore(10), "behind the window")
	assert.True(t, w.CheckAndStore(11), "oldest counter inside the window")
}

func TestReplayWindowKeepsSeenSlotsOnAdvance(t *testing.T) {
	var w replayWindow
	for c := uint32(0); c < 100; c++ {
		assert.True(t, w.CheckAndStore(c))
	}
	assert.True(t, w.CheckAndStore(replayWindowSize+50))

	assert.False(t, w.CheckAndStore(50), "behind the window")
	assert.False(t, w.CheckAndStore(51), "seen and still inside the window")
	assert.False(t, w.CheckAndStore(99))
	assert.True(t, w.CheckAndStore(replayWindowSize+49), "slot reused by a newer counter")
	assert.True(t, w.CheckAndStore(100))
}

func TestReplayWindowAcrossWireWrap(t *testing.T) {
	var w replayWindow
	assert.True(t, w.CheckAndStore(0xFFFFFFFE))
	assert.True(t, w.CheckAndStore(0xFFFFFFFF))
	assert.True(t, w.CheckAndStore(0), "wire counter wrapped")
	assert.True(t, w.CheckAndStore(5))
	assert.Equal(t, uint64(1)<<32+5, w.highest)

	assert.False(t, w.CheckAndStore(0))
	assert.False(t, w.CheckAndStore(0xFFFFFFFF), "seen before the wrap")
	assert.True(t, w.CheckAndStore(0xFFFFFFFD), "late packet from before the wrap")
	assert.False(t, w.CheckAndStore(0xFFFFFFFD))
	assert.True(t, w.CheckAndStore(3))
	assert.False(t, w.CheckAndStore(0xFFFFF000), "behind the window")
}

func TestReplayWindowExpandStaysNearHighest(t *testing.T) {
	var w replayWindow
	assert.True(t, w.CheckAndStore(1000))
	assert.Equal(t, uint64(900), w.expand(900))
	assert.Equal(t, uint64(5000), w.expand(5000))
	assert.Equal(t, uint64(0xFFFFFFF0), w.expand(0xFFFFFFF0), "no epoch below zero")
}
