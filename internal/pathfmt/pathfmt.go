// Package pathfmt converts a reconstructed best-path (key, node) sequence
// into the matched-segment sequence the caller actually wants: runs of
// geometry tagged with the edge they were matched to, or untagged where the
// trajectory left the network.
package pathfmt

import (
	"github.com/routetrace/mapmatch/internal/pathsearch"
	"github.com/routetrace/mapmatch/internal/roadgraph"
	"github.com/routetrace/mapmatch/internal/searchnode"
)

// Bound anchors one end of a MatchedSegment to a trajectory state.
// Projection is the along-edge distance from the edge's origin, nil when
// the bound has no edge projection (off-network ends).
type Bound struct {
	Projection *float64
	AtEndpoint bool
	StateIndex int
}

// MatchedSegment is one contiguous run of matched (or unmatched) geometry.
// Edge is nil for an unmatched run.
type MatchedSegment struct {
	Edge     *roadgraph.DirectedEdge
	Geometry []roadgraph.Point
	Begin    Bound
	End      Bound
}

func floatPtr(v float64) *float64 { return &v }

func linkLength(ctx *searchnode.Context, edge roadgraph.DirectedEdge) float64 {
	return ctx.Links.At(edge).Length
}

func alongEdgePosition(ctx *searchnode.Context, n *searchnode.LinkedNode) float64 {
	link := ctx.Links.At(n.Edge)
	return link.Segments[n.Seg].CumulativeDistance + n.Proj.Projected.X.AtVec(0)
}

// FormatPath walks steps (as reconstructed by pathsearch.FindBestPath) and
// applies the five transition rules that turn it into matched segments.
func FormatPath(ctx *searchnode.Context, steps []pathsearch.Step) []MatchedSegment {
	var out []MatchedSegment
	var cur *MatchedSegment

	var lastLinkedIndex int
	var lastLinkedProj *float64
	var lastFloatingIndex int

	closeCurrent := func(end Bound) {
		if cur == nil {
			return
		}
		cur.End = end
		out = append(out, *cur)
		cur = nil
	}

	openEdge := func(edge roadgraph.DirectedEdge, begin Bound) {
		e := edge
		cur = &MatchedSegment{Edge: &e, Begin: begin}
	}

	openUnmatched := func(begin Bound) {
		cur = &MatchedSegment{Edge: nil, Begin: begin}
	}

	appendPoint := func(x, y float64) {
		if cur != nil {
			cur.Geometry = append(cur.Geometry, roadgraph.Point{X: x, Y: y})
		}
	}

	for _, step := range steps {
		switch n := step.Node.(type) {
		case searchnode.InitialNode, searchnode.FinalNode:
			if _, isFinal := step.Node.(searchnode.FinalNode); isFinal {
				// Rule: reaching Final closes the open segment using the
				// previous node's projection.
				if cur != nil {
					if cur.Edge != nil {
						closeCurrent(Bound{Projection: lastLinkedProj, StateIndex: lastLinkedIndex})
					} else {
						closeCurrent(Bound{StateIndex: lastFloatingIndex + 1})
					}
				}
			}

		case *searchnode.LinkedNode:
			proj := alongEdgePosition(ctx, n)
			switch {
			case cur == nil:
				openEdge(n.Edge, Bound{Projection: floatPtr(proj), StateIndex: n.Index})
			case cur.Edge == nil:
				// Rule: entering Linked while no current edge is active
				// closes the pending unmatched-geometry segment.
				closeCurrent(Bound{StateIndex: n.Index})
				openEdge(n.Edge, Bound{Projection: floatPtr(proj), StateIndex: n.Index})
			case *cur.Edge != n.Edge:
				// Defensive: the search graph never emits a direct
				// Linked->Linked transition across different edges without
				// an intervening Forwarding key, but guard it the same way
				// a Forwarding transition would.
				closingLen := linkLength(ctx, *cur.Edge)
				closeCurrent(Bound{Projection: floatPtr(closingLen), AtEndpoint: true, StateIndex: n.Index})
				openEdge(n.Edge, Bound{Projection: floatPtr(0), StateIndex: n.Index})
			}
			appendPoint(n.Coordinates())
			lastLinkedIndex = n.Index
			lastLinkedProj = floatPtr(proj)

		case *searchnode.ForwardingNode:
			anchorIdx := n.AnchorIndex + 1
			if cur != nil {
				if cur.Edge != nil {
					closingLen := linkLength(ctx, *cur.Edge)
					closeCurrent(Bound{Projection: floatPtr(closingLen), AtEndpoint: true, StateIndex: anchorIdx})
				} else {
					closeCurrent(Bound{StateIndex: anchorIdx})
				}
			}
			openEdge(n.Edge, Bound{Projection: floatPtr(0), StateIndex: anchorIdx})

		case *searchnode.JumpingNode:
			// Rule: a Jumping transition closes the current edge at the
			// projection of its anchor and starts an unmatched-geometry
			// segment.
			if cur != nil {
				if cur.Edge != nil {
					closeCurrent(Bound{Projection: lastLinkedProj, StateIndex: lastLinkedIndex})
				} else {
					closeCurrent(Bound{StateIndex: lastFloatingIndex + 1})
				}
			}
			openUnmatched(Bound{StateIndex: n.AnchorIndex + 1})

		case *searchnode.FloatingNode:
			if cur == nil {
				openUnmatched(Bound{StateIndex: n.Index})
			}
			appendPoint(n.X, n.Y)
			lastFloatingIndex = n.Index
		}
	}

	return out
}
