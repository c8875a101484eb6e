package searchnode

import (
	"github.com/routetrace/mapmatch/internal/kalman"
	"github.com/routetrace/mapmatch/internal/roadgraph"
)

// Factory materializes a Node for a Key the first time that key is
// relaxed, given the predecessor Node the search reached it from. The
// search caches the result, so a key's materialized Node is stable for
// the rest of that trajectory's search regardless of how many other
// predecessors later relax into the same key — this is what lets
// ForwardingKey ignore intermediate geometry in its equality rule while
// still producing one deterministic, internally consistent Node per key.
type Factory struct{}

// Make materializes key, using from (the predecessor it was relaxed from,
// nil for InitialKey) to derive any path-dependent fields.
func (Factory) Make(ctx *Context, key Key, from Node) Node {
	switch k := key.(type) {
	case InitialKey:
		return InitialNode{}
	case FinalKey:
		return FinalNode{}
	case LinkedKey:
		proj := ctx.Projections.At(k.Index, k.Edge, k.Seg)
		return &LinkedNode{Edge: k.Edge, Seg: k.Seg, Index: k.Index, Proj: proj}
	case ForwardingKey:
		return materializeForwarding(ctx, k, from)
	case FloatingKey:
		s := ctx.States[k.Index]
		return &FloatingNode{Index: k.Index, X: s.X.AtVec(0), Y: s.X.AtVec(1)}
	case JumpingKey:
		return materializeJumping(ctx, k, from)
	}
	return nil
}

func edgeGeometryPoints(ctx *Context, edge roadgraph.DirectedEdge) []point2 {
	pts := ctx.Graph.EdgeGeometry(edge.U, edge.V)
	out := make([]point2, len(pts))
	for i, p := range pts {
		out[i] = point2{X: p.X, Y: p.Y}
	}
	return out
}

func materializeForwarding(ctx *Context, k ForwardingKey, from Node) *ForwardingNode {
	geom := edgeGeometryPoints(ctx, k.Edge)

	switch f := from.(type) {
	case *LinkedNode:
		anchorLink := ctx.Links.At(f.Edge)
		advanced := f.Proj.Projected.Copy()
		_ = anchorLink.Segments[f.Seg].Advance(advanced)
		remaining := anchorLink.Length - alongEdgePosition(anchorLink, f.Seg, f.Proj)
		return &ForwardingNode{AnchorIndex: k.AnchorIndex, Edge: k.Edge, Advanced: advanced, Distance: remaining, geometry: geom}
	case *ForwardingNode:
		prevLink := ctx.Links.At(f.Edge)
		advanced := f.Advanced.Copy()
		if len(prevLink.Segments) > 0 {
			_ = prevLink.Segments[0].Advance(advanced)
		}
		return &ForwardingNode{AnchorIndex: k.AnchorIndex, Edge: k.Edge, Advanced: advanced, Distance: f.Distance + prevLink.Length, geometry: geom}
	default:
		// Defensive fallback: a Forwarding key reached without a
		// Linked/Forwarding predecessor (should not occur in a correctly
		// driven search). Anchor on the raw trajectory state with no
		// accumulated drift.
		anchor := ctx.States[k.AnchorIndex]
		fallback := kalman.New([]float64{anchor.X.AtVec(0), 0}, [][]float64{{1, 0}, {0, 1}})
		return &ForwardingNode{AnchorIndex: k.AnchorIndex, Edge: k.Edge, Advanced: fallback, Distance: 0, geometry: geom}
	}
}

func materializeJumping(ctx *Context, k JumpingKey, from Node) *JumpingNode {
	if f, ok := from.(*LinkedNode); ok {
		x, y := f.Coordinates()
		return &JumpingNode{AnchorIndex: k.AnchorIndex, AnchorEdge: f.Edge, X: x, Y: y}
	}
	anchor := ctx.States[k.AnchorIndex]
	return &JumpingNode{AnchorIndex: k.AnchorIndex, X: anchor.X.AtVec(0), Y: anchor.X.AtVec(1)}
}
