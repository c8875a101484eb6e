// Package searchnode implements the heterogeneous search-node graph that
// the path search runs over: Initial, Linked, Forwarding, Floating,
// Jumping and Final node variants. Every variant has a Key used for
// identity/hashing in the search's open/closed sets, and a materialized
// Node carrying its Kalman states; only keys persist across relaxations,
// nodes are built lazily through a Factory.
package searchnode

import "github.com/routetrace/mapmatch/internal/roadgraph"

// Key identifies a node for the search's open/closed sets and g/parent
// maps. All concrete Key types are plain comparable structs so they can be
// used directly as map keys through the Key interface.
type Key interface {
	isKey()
}

// InitialKey is the singleton source of the search.
type InitialKey struct{}

func (InitialKey) isKey() {}

// FinalKey is the singleton sink, reached only at the last trajectory
// state.
type FinalKey struct{}

func (FinalKey) isKey() {}

// LinkedKey identifies trajectory state Index projected onto segment Seg
// of directed edge Edge. Equality requires the same directed edge (order
// matters), segment, and index.
type LinkedKey struct {
	Edge  roadgraph.DirectedEdge
	Seg   int
	Index int
}

func (LinkedKey) isKey() {}

// ForwardingKey identifies traversal of intermediate directed edge Edge
// between two linked states anchored at trajectory index AnchorIndex.
// Equality ignores intermediate geometry: only (AnchorIndex, Edge) matter,
// so different paths reaching the same forwarding fan-out share one node.
type ForwardingKey struct {
	AnchorIndex int
	Edge        roadgraph.DirectedEdge
}

func (ForwardingKey) isKey() {}

// FloatingKey identifies trajectory state Index left unmatched to any
// edge.
type FloatingKey struct {
	Index int
}

func (FloatingKey) isKey() {}

// JumpingKey identifies a discontinuity right after the linked state at
// trajectory index AnchorIndex.
type JumpingKey struct {
	AnchorIndex int
}

func (JumpingKey) isKey() {}

// SameUndirectedEdge reports whether a and b are the same physical edge,
// regardless of direction.
func SameUndirectedEdge(a, b roadgraph.DirectedEdge) bool {
	return a == b || a == b.Reverse()
}
