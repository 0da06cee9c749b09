package testutil

import (
	"fmt"
	"sync"
)

// SequentialFlowGenerator returns "<prefix>-1", "<prefix>-2", ...
//
// Scenarios set the prefix from their YAML:
//
//	flow_token: "login-flow"
//
// Journals key cycles by flow token, so tests that persist several cycles
// need distinct tokens.
type SequentialFlowGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialFlowGenerator creates a generator; an empty prefix becomes
// "flow".
func NewSequentialFlowGenerator(prefix string) *SequentialFlowGenerator {
	if prefix == "" {
		prefix = "flow"
	}
	return &SequentialFlowGenerator{prefix: prefix}
}

// Generate implements engine.FlowTokenGenerator.
func (g *SequentialFlowGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
