package node

import "sync"

// replayWindowSize is the number of counters behind the highest seen
// counter that are still tracked.
const replayWindowSize = 2048

const replayWordBits = 64

// replayWindow rejects DATA counters that were already delivered on a
// session or that fall too far behind the newest one.
type replayWindow struct {
	mu      sync.Mutex
	highest uint64
	seen    bool
	bitmap  [replayWindowSize / replayWordBits]uint64
}

// CheckAndStore reports whether the wire counter is fresh and records it
// if so. The 32-bit wire value is widened against the highest counter seen,
// so a session keeps working after the wire counter wraps.
func (w *replayWindow) CheckAndStore(wire uint32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	counter := w.expand(wire)
	if !w.seen {
		w.seen = true
		w.highest = counter
		w.set(counter)
		return true
	}

	if counter > w.highest {
		w.advance(counter)
		w.set(counter)
		return true
	}
	if w.highest-counter >= replayWindowSize {
		return false
	}
	if w.isSet(counter) {
		return false
	}
	w.set(counter)
	return true
}

// expand picks the 64-bit counter with the low 32 bits of wire that lies
// closest to the highest counter seen.
func (w *replayWindow) expand(wire uint32) uint64 {
	if !w.seen {
		return uint64(wire)
	}
	const epoch = uint64(1) << 32
	counter := w.highest&^(epoch-1) | uint64(wire)
	switch {
	case counter < w.highest && w.highest-counter > epoch/2:
		counter += epoch
	case counter > w.highest && counter-w.highest > epoch/2 && counter >= epoch:
		counter -= epoch
	}
	return counter
}

// advance clears the slots between the old and new highest counters.
func (w *replayWindow) advance(counter uint64) {
	if counter-w.highest >= replayWindowSize {
		w.bitmap = [replayWindowSize / replayWordBits]uint64{}
	} else {
		for c := w.highest + 1; c <= counter; c++ {
			w.clear(c)
		}
	}
	w.highest = counter
}

func (w *replayWindow) slot(counter uint64) (int, uint64) {
	i := counter % replayWindowSize
	return int(i / replayWordBits), 1 << (i % replayWordBits)
}

func (w *replayWindow) set(counter uint64) {
	word, bit := w.slot(counter)
	w.bitmap[word] |= bit
}

func (w *replayWindow) clear(counter uint64) {
	word, bit := w.slot(counter)
	w.bitmap[word] &^= bit
}

func (w *replayWindow) isSet(counter uint64) bool {
	word, bit := w.slot(counter)
	return w.bitmap[word]&bit != 0
}
