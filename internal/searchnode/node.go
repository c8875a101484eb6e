package searchnode

// Node is the shared contract every search-node variant implements.
// Materialized nodes carry their Kalman states; only their Key persists in
// the search's open/closed sets.
type Node interface {
	Key() Key
	// Cost is the state-local cost already paid for being at this node.
	Cost() float64
	// Coordinates is the 2-D point used by the heuristic and DistanceTo.
	Coordinates() (x, y float64)
	// AdjacentNodes yields the keys (not materialized nodes) of this
	// node's successors.
	AdjacentNodes(ctx *Context) []Key
	// DistanceTo is the scalar geometric distance to other, used for link
	// costs.
	DistanceTo(ctx *Context, other Node) float64
	// CostTo is the edge cost of transitioning from this node to other in
	// the search graph.
	CostTo(ctx *Context, other Node) float64
	// Handicap is an extra non-negative term added when relaxing through
	// this node.
	Handicap(ctx *Context) float64
	// Heuristic is an admissible lower bound on remaining cost to Final.
	Heuristic(ctx *Context) float64
}

// InitialNode is the singleton source of the search.
type InitialNode struct{}

func (InitialNode) Key() Key { return InitialKey{} }

func (InitialNode) Cost() float64 { return 0 }

func (n InitialNode) Coordinates() (float64, float64) {
	return 0, 0
}

func (InitialNode) AdjacentNodes(ctx *Context) []Key {
	var out []Key
	candidates := ctx.Projections.ProjectState(0, InitialProjectionQuantile)
	for _, edge := range sortedCandidateEdges(candidates) {
		for _, s := range candidates[edge] {
			out = append(out, LinkedKey{Edge: edge, Seg: s, Index: 0})
		}
	}
	return out
}

func (InitialNode) DistanceTo(ctx *Context, other Node) float64 { return 0 }

func (InitialNode) CostTo(ctx *Context, other Node) float64 { return 0 }

func (InitialNode) Handicap(ctx *Context) float64 { return 0 }

func (InitialNode) Heuristic(ctx *Context) float64 {
	return heuristicToward(ctx, ctx.States[0].X.AtVec(0), ctx.States[0].X.AtVec(1), 0)
}

// FinalNode is the singleton sink, reached only at the last trajectory
// state.
type FinalNode struct{}

func (FinalNode) Key() Key { return FinalKey{} }

func (FinalNode) Cost() float64 { return 0 }

func (n FinalNode) Coordinates() (float64, float64) { return 0, 0 }

func (FinalNode) AdjacentNodes(ctx *Context) []Key { return nil }

func (FinalNode) DistanceTo(ctx *Context, other Node) float64 { return 0 }

func (FinalNode) CostTo(ctx *Context, other Node) float64 { return 0 }

func (FinalNode) Handicap(ctx *Context) float64 { return 0 }

func (FinalNode) Heuristic(ctx *Context) float64 {
	n := len(ctx.States)
	return -ctx.GreedyFactor * ctx.CumulativeDistance[n-1]
}
