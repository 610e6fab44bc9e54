package testutil

import "sync"

// SeqClock hands out log sequence numbers for in-memory logs.
//
// It can be rewound, so a scenario replayed against a fresh MemoryLog gets
// the same seq values and therefore the same entry hashes.
type SeqClock struct {
	mu  sync.Mutex
	seq int64
}

// NewSeqClock returns a clock whose first Next is 1.
func NewSeqClock() *SeqClock {
	return &SeqClock{}
}

// Next advances the clock and returns the new seq.
func (c *SeqClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last seq handed out, 0 before the first Next.
func (c *SeqClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock to 0.
func (c *SeqClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
