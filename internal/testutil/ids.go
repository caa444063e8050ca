package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/northwind/internal/model"
)

// DeterministicIDs mints identities in a fixed sequence for tests.
//
// IDs have the shape of a version 7 UUID with the sequence number in the
// last group, so they sort in minting order like real ones do.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicIDs struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicIDs creates a generator starting at 0.
//
// The first call to Next() returns ...000000000001.
func NewDeterministicIDs() *DeterministicIDs {
	return &DeterministicIDs{}
}

// Next increments the sequence and returns its ID.
func (g *DeterministicIDs) Next() model.ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return SeqID(g.seq)
}

// Current returns the current sequence number without incrementing.
func (g *DeterministicIDs) Current() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the sequence. After Reset(), Next() returns SeqID(1) again.
func (g *DeterministicIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// SeqID returns the ID minted for sequence number n.
func SeqID(n int64) model.ID {
	return model.ID(fmt.Sprintf("00000000-0000-7000-8000-%012d", n))
}
