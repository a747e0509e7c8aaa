package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates "<prefix>-0001", "<prefix>-0002", ... without
// running out. It satisfies manager.IDGenerator.
//
// Unlike manager.FixedGenerator, ids never need to be listed up front, which
// suits scenario files with an arbitrary number of executions.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix becomes "exec".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "exec"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
