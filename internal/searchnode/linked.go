package searchnode

import (
	"math"

	"github.com/routetrace/mapmatch/internal/projection"
	"github.com/routetrace/mapmatch/internal/roadgraph"
)

// LinkedNode is trajectory state Index projected onto segment Seg of
// directed edge Edge.
type LinkedNode struct {
	Edge  roadgraph.DirectedEdge
	Seg   int
	Index int
	Proj  *projection.Projection
}

func (n *LinkedNode) Key() Key { return LinkedKey{Edge: n.Edge, Seg: n.Seg, Index: n.Index} }

func (n *LinkedNode) Cost() float64 { return n.Proj.Cost }

func (n *LinkedNode) Coordinates() (float64, float64) {
	return n.Proj.Constrained.X.AtVec(0), n.Proj.Constrained.X.AtVec(1)
}

func (n *LinkedNode) AdjacentNodes(ctx *Context) []Key {
	lastIndex := len(ctx.States) - 1
	if n.Index == lastIndex {
		return []Key{FinalKey{}}
	}

	var out []Key
	for _, s2 := range ctx.Projections.SearchEdge(n.Index+1, n.Edge) {
		if s2 >= n.Seg {
			out = append(out, LinkedKey{Edge: n.Edge, Seg: s2, Index: n.Index + 1})
		}
	}
	out = append(out, JumpingKey{AnchorIndex: n.Index})

	head := n.Edge.V
	reverse := n.Edge.Reverse()
	for _, adj := range ctx.Graph.Adjacent(head) {
		if adj == reverse {
			continue
		}
		out = append(out, ForwardingKey{AnchorIndex: n.Index, Edge: adj})
	}
	return out
}

func (n *LinkedNode) DistanceTo(ctx *Context, other Node) float64 {
	link := ctx.Links.At(n.Edge)
	switch o := other.(type) {
	case *LinkedNode:
		if o.Edge == n.Edge {
			return alongEdgePosition(link, o.Seg, o.Proj) - alongEdgePosition(link, n.Seg, n.Proj)
		}
	case *ForwardingNode:
		return link.Length - alongEdgePosition(link, n.Seg, n.Proj)
	}
	return 0
}

func (n *LinkedNode) CostTo(ctx *Context, other Node) float64 {
	link := ctx.Links.At(n.Edge)
	switch o := other.(type) {
	case *LinkedNode:
		if o.Edge == n.Edge {
			delta := link.Segments[o.Seg].CumulativeDistance - link.Segments[n.Seg].CumulativeDistance
			advanced := n.Proj.Projected.Copy()
			_ = link.Segments[n.Seg].Advance(advanced)
			penalty := projectionDistanceCost(advanced, o.Proj, delta)
			onEdge := math.Abs(alongEdgePosition(link, o.Seg, o.Proj) - alongEdgePosition(link, n.Seg, n.Proj))
			return onEdge*safeDistanceCost(ctx, &n.Edge) + penalty
		}
	case *ForwardingNode:
		remaining := link.Length - alongEdgePosition(link, n.Seg, n.Proj)
		return remaining * safeDistanceCost(ctx, &n.Edge)
	}
	return 0
}

func (n *LinkedNode) Handicap(ctx *Context) float64 { return 0 }

func (n *LinkedNode) Heuristic(ctx *Context) float64 {
	x, y := n.Coordinates()
	return heuristicToward(ctx, x, y, n.Index+1)
}
