package searchnode

import (
	"math"

	"github.com/routetrace/mapmatch/internal/kalman"
	"github.com/routetrace/mapmatch/internal/projection"
	"github.com/routetrace/mapmatch/internal/roadgraph"
	"github.com/routetrace/mapmatch/internal/segment"
)

// DistanceCostFn returns a non-negative per-unit-length cost for an edge.
// A nil edge denotes the out-of-network fallback.
type DistanceCostFn func(edge *roadgraph.DirectedEdge) float64

// IntersectionCostFn returns a non-negative cost for passing through
// vertex v when travelling from u into directed edge k. All three
// arguments are surfaced even though a default implementation may only
// read v.
type IntersectionCostFn func(u, v string, k roadgraph.DirectedEdge) float64

// FallbackDistanceCost is the constant per-unit cost charged for
// off-network (Floating/Jumping) movement.
const FallbackDistanceCost = 300.0

// OffNetworkStateCost is the constant state-local cost paid by both
// Floating and Jumping nodes, discouraging departure from the network.
const OffNetworkStateCost = 20.0

// InitialProjectionQuantile is the wide uncertainty quantile the Initial
// node uses to guarantee a non-empty start set.
const InitialProjectionQuantile = 50.0

// DefaultProjectionQuantile is the quantile used for continuation
// projections away from the initial state.
const DefaultProjectionQuantile = 5.0

// Context bundles everything a Node needs to enumerate successors and
// compute costs: the road graph, per-trajectory link/projection caches,
// the trajectory states, the cost functions, and the precomputed
// admissible-heuristic inputs. One Context is shared read-only across a
// single trajectory's search.
type Context struct {
	Graph            roadgraph.SpatialGraph
	Links            *segment.LinkManager
	Projections      *projection.Manager
	States           []*kalman.State
	DistanceCost     DistanceCostFn
	IntersectionCost IntersectionCostFn

	// CumulativeDistance[j] is the straight-line distance travelled along
	// the raw trajectory from state 0 to state j (a prefix sum of
	// consecutive Euclidean hops). CumulativeDistance[len-1] is therefore
	// the total straight-line length of the trajectory.
	CumulativeDistance []float64
	GreedyFactor       float64
}

// NewContext builds a Context and precomputes CumulativeDistance from the
// trajectory states' positions.
func NewContext(graph roadgraph.SpatialGraph, links *segment.LinkManager, projections *projection.Manager, states []*kalman.State, distanceCost DistanceCostFn, intersectionCost IntersectionCostFn, greedyFactor float64) *Context {
	cum := make([]float64, len(states))
	for i := 1; i < len(states); i++ {
		dx := states[i].X.AtVec(0) - states[i-1].X.AtVec(0)
		dy := states[i].X.AtVec(1) - states[i-1].X.AtVec(1)
		cum[i] = cum[i-1] + math.Hypot(dx, dy)
	}
	return &Context{
		Graph:              graph,
		Links:              links,
		Projections:        projections,
		States:             states,
		DistanceCost:       distanceCost,
		IntersectionCost:   intersectionCost,
		CumulativeDistance: cum,
		GreedyFactor:       greedyFactor,
	}
}

func euclidean(x1, y1, x2, y2 float64) float64 { return math.Hypot(x2-x1, y2-y1) }

// heuristicToward computes the admissible-heuristic contribution for a
// node located at (x, y) whose next unconsumed trajectory state is
// nextIndex. If nextIndex is at or past the last state, the Final-node
// formula is used instead.
func heuristicToward(ctx *Context, x, y float64, nextIndex int) float64 {
	n := len(ctx.States)
	if nextIndex >= n {
		return -ctx.GreedyFactor * ctx.CumulativeDistance[n-1]
	}
	target := ctx.States[nextIndex]
	d := euclidean(x, y, target.X.AtVec(0), target.X.AtVec(1))
	return ctx.GreedyFactor * (d - ctx.CumulativeDistance[nextIndex])
}
