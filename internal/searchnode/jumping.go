package searchnode

import "github.com/routetrace/mapmatch/internal/roadgraph"

// JumpingNode is the discontinuity declared right after the linked state
// at trajectory index AnchorIndex. AnchorEdge is the undirected edge the
// anchor stood on, excluded from the successor candidate set so a jump
// cannot trivially re-land on the edge it just left.
type JumpingNode struct {
	AnchorIndex int
	AnchorEdge  roadgraph.DirectedEdge
	X, Y        float64
}

func (n *JumpingNode) Key() Key { return JumpingKey{AnchorIndex: n.AnchorIndex} }

func (n *JumpingNode) Cost() float64 { return OffNetworkStateCost }

func (n *JumpingNode) Coordinates() (float64, float64) { return n.X, n.Y }

func (n *JumpingNode) AdjacentNodes(ctx *Context) []Key {
	nextIndex := n.AnchorIndex + 1
	lastIndex := len(ctx.States) - 1
	if nextIndex > lastIndex {
		return []Key{FinalKey{}}
	}

	out := []Key{FloatingKey{Index: nextIndex}}
	candidates := ctx.Projections.ProjectState(nextIndex, DefaultProjectionQuantile)
	for _, edge := range sortedCandidateEdges(candidates) {
		if SameUndirectedEdge(edge, n.AnchorEdge) {
			continue
		}
		for _, s := range candidates[edge] {
			out = append(out, LinkedKey{Edge: edge, Seg: s, Index: nextIndex})
		}
	}
	return out
}

func (n *JumpingNode) DistanceTo(ctx *Context, other Node) float64 {
	ox, oy := other.Coordinates()
	return euclidean(n.X, n.Y, ox, oy)
}

func (n *JumpingNode) CostTo(ctx *Context, other Node) float64 {
	return n.DistanceTo(ctx, other) * safeDistanceCost(ctx, nil)
}

func (n *JumpingNode) Handicap(ctx *Context) float64 { return 0 }

func (n *JumpingNode) Heuristic(ctx *Context) float64 {
	return heuristicToward(ctx, n.X, n.Y, n.AnchorIndex+1)
}
