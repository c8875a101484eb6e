package searchnode

// FloatingNode is trajectory state Index left unmatched to any edge.
type FloatingNode struct {
	Index int
	X, Y  float64
}

func (n *FloatingNode) Key() Key { return FloatingKey{Index: n.Index} }

func (n *FloatingNode) Cost() float64 { return OffNetworkStateCost }

func (n *FloatingNode) Coordinates() (float64, float64) { return n.X, n.Y }

func (n *FloatingNode) AdjacentNodes(ctx *Context) []Key {
	lastIndex := len(ctx.States) - 1
	if n.Index == lastIndex {
		return []Key{FinalKey{}}
	}

	out := []Key{FloatingKey{Index: n.Index + 1}}
	candidates := ctx.Projections.ProjectState(n.Index+1, DefaultProjectionQuantile)
	for _, edge := range sortedCandidateEdges(candidates) {
		for _, s := range candidates[edge] {
			out = append(out, LinkedKey{Edge: edge, Seg: s, Index: n.Index + 1})
		}
	}
	return out
}

func (n *FloatingNode) DistanceTo(ctx *Context, other Node) float64 {
	ox, oy := other.Coordinates()
	return euclidean(n.X, n.Y, ox, oy)
}

func (n *FloatingNode) CostTo(ctx *Context, other Node) float64 {
	if _, ok := other.(FinalNode); ok {
		return 0
	}
	return n.DistanceTo(ctx, other) * safeDistanceCost(ctx, nil)
}

func (n *FloatingNode) Handicap(ctx *Context) float64 { return 0 }

func (n *FloatingNode) Heuristic(ctx *Context) float64 {
	return heuristicToward(ctx, n.X, n.Y, n.Index+1)
}
