package searchnode

import (
	"github.com/routetrace/mapmatch/internal/kalman"
	"github.com/routetrace/mapmatch/internal/roadgraph"
)

// ForwardingNode represents traversal of intermediate directed edge Edge
// between two linked states anchored at trajectory index AnchorIndex.
// Advanced is the anchor's longitudinal projected state, time-advanced
// through the edges traversed since the anchor; Distance is the
// accumulated along-path distance since the anchor. Both are derived from
// whichever predecessor first materializes this node (the key itself
// deliberately carries no path information, per its equality rule).
type ForwardingNode struct {
	AnchorIndex int
	Edge        roadgraph.DirectedEdge
	Advanced    *kalman.State
	Distance    float64
	geometry    []point2
}

func (n *ForwardingNode) Key() Key {
	return ForwardingKey{AnchorIndex: n.AnchorIndex, Edge: n.Edge}
}

func (n *ForwardingNode) Cost() float64 { return 0 }

// Coordinates returns the destination point of this edge (the location at
// which the forwarding traversal is currently standing). It is set by the
// Factory at materialization time, since Coordinates takes no Context.
func (n *ForwardingNode) Coordinates() (float64, float64) {
	if len(n.geometry) == 0 {
		return 0, 0
	}
	last := n.geometry[len(n.geometry)-1]
	return last.X, last.Y
}

type point2 struct{ X, Y float64 }

func (n *ForwardingNode) AdjacentNodes(ctx *Context) []Key {
	var out []Key
	for _, s2 := range ctx.Projections.SearchEdge(n.AnchorIndex+1, n.Edge) {
		out = append(out, LinkedKey{Edge: n.Edge, Seg: s2, Index: n.AnchorIndex + 1})
	}

	head := n.Edge.V
	reverse := n.Edge.Reverse()
	for _, adj := range ctx.Graph.Adjacent(head) {
		if adj == reverse {
			continue
		}
		out = append(out, ForwardingKey{AnchorIndex: n.AnchorIndex, Edge: adj})
	}
	return out
}

func (n *ForwardingNode) DistanceTo(ctx *Context, other Node) float64 {
	link := ctx.Links.At(n.Edge)
	switch o := other.(type) {
	case *LinkedNode:
		if o.Edge == n.Edge {
			return alongEdgePosition(link, o.Seg, o.Proj)
		}
	case *ForwardingNode:
		return link.Length
	}
	return 0
}

func (n *ForwardingNode) CostTo(ctx *Context, other Node) float64 {
	link := ctx.Links.At(n.Edge)
	switch o := other.(type) {
	case *LinkedNode:
		if o.Edge == n.Edge {
			onEdge := alongEdgePosition(link, o.Seg, o.Proj)
			penalty := projectionDistanceCost(n.Advanced, o.Proj, n.Distance+link.Segments[o.Seg].CumulativeDistance)
			return onEdge*safeDistanceCost(ctx, &n.Edge) + penalty
		}
	case *ForwardingNode:
		return link.Length * safeDistanceCost(ctx, &n.Edge)
	}
	return 0
}

func (n *ForwardingNode) Handicap(ctx *Context) float64 {
	return n.Advanced.IneqlConstraintDistance([]float64{1, 0}, n.Distance)
}

func (n *ForwardingNode) Heuristic(ctx *Context) float64 {
	x, y := n.Coordinates()
	return heuristicToward(ctx, x, y, n.AnchorIndex+1)
}
