// Package depgraph collects "this document changed" tags from editing
// operators until the evaluation side drains them.
package depgraph

import (
	"sync"

	"CurveBoard/internal/state"
)

// Recalc says which parts of a document need re-evaluation.
type Recalc uint8

const (
	RecalcTransform Recalc = 1 << iota
	RecalcGeometry
)

func (r Recalc) String() string {
	switch r {
	case 0:
		return "none"
	case RecalcTransform:
		return "transform"
	case RecalcGeometry:
		return "geometry"
	case RecalcTransform | RecalcGeometry:
		return "transform|geometry"
	default:
		return "unknown"
	}
}

// Graph accumulates tags per document. Tags for the same document merge.
type Graph struct {
	mu      sync.Mutex
	pending map[*state.Document]Recalc
	tagged  uint64
}

func New() *Graph {
	return &Graph{pending: make(map[*state.Document]Recalc)}
}

// Invalidate tags doc for re-evaluation.
func (g *Graph) Invalidate(doc *state.Document, what Recalc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending[doc] |= what
	g.tagged++
}

// Pending returns the merged tags waiting for doc.
func (g *Graph) Pending(doc *state.Document) Recalc {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending[doc]
}

// Flush hands back and forgets every pending tag.
func (g *Graph) Flush() map[*state.Document]Recalc {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.pending
	g.pending = make(map[*state.Document]Recalc)
	return out
}

// Tagged counts Invalidate calls over the graph's lifetime.
func (g *Graph) Tagged() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tagged
}
