package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates predictable IDs of the form <prefix>-0001,
// <prefix>-0002, ... for deterministic traces and golden files.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator with the given prefix.
func NewSequentialIDs(prefix string) *SequentialIDs {
	return &SequentialIDs{prefix: prefix}
}

// NewID returns the next ID in sequence.
func (g *SequentialIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
