package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator yields "<prefix>-1", "<prefix>-2", ... as cycle tokens.
// Unlike engine.FixedGenerator it never runs out.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix means "cycle".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "cycle"
	}
	return &SequenceGenerator{prefix: prefix}
}

func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
