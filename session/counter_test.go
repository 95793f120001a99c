package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterSequence(t *testing.T) {
	var c Counter
	assert.Equal(t, CounterValue(0), c.Current())
	assert.Equal(t, CounterValue(0), c.Next())
	assert.Equal(t, CounterValue(1), c.Next())
	assert.Equal(t, CounterValue(2), c.Current())
	assert.Equal(t, CounterValue(2), c.Current(), "Current does not advance")
}

func TestCounterNonceTruncates(t *testing.T) {
	v := CounterValue(1<<32 + 5)
	assert.Equal(t, uint32(5), v.Nonce())
}

func TestCounterConcurrentUnique(t *testing.T) {
	var c Counter
	const workers, perWorker = 16, 500

	seen := make(chan CounterValue, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				seen <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[CounterValue]bool)
	for v := range seen {
		assert.False(t, unique[v], "duplicate counter %d", v)
		unique[v] = true
	}
	assert.Len(t, unique, workers*perWorker)
	assert.Equal(t, CounterValue(workers*perWorker), c.Current())
}
