package searchnode

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/routetrace/mapmatch/internal/kalman"
	"github.com/routetrace/mapmatch/internal/projection"
	"github.com/routetrace/mapmatch/internal/roadgraph"
	"github.com/routetrace/mapmatch/internal/segment"
)

// sortedCandidateEdges returns the edges of candidates in a deterministic
// order (by U, then V), since Go's map iteration order is randomized and
// successor keys must be emitted in a stable order for the search to pick a
// reproducible parent among equal-cost candidates.
func sortedCandidateEdges(candidates map[roadgraph.DirectedEdge][]int) []roadgraph.DirectedEdge {
	edges := make([]roadgraph.DirectedEdge, 0, len(candidates))
	for edge := range candidates {
		edges = append(edges, edge)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].U != edges[j].U {
			return edges[i].U < edges[j].U
		}
		return edges[i].V < edges[j].V
	})
	return edges
}

// alongEdgePosition returns the absolute along-edge distance (from the
// edge's own origin) that projection proj represents on link, i.e. the
// segment's own cumulative distance plus the projected along-segment
// offset.
func alongEdgePosition(link *segment.Link, seg int, proj *projection.Projection) float64 {
	return link.Segments[seg].CumulativeDistance + proj.Projected.X.AtVec(0)
}

// safeDistanceCost evaluates ctx.DistanceCost(edge); a nil edge denotes
// off-network movement and is passed through to it. When the Context has
// no DistanceCost, every distance, on or off the network, is charged
// FallbackDistanceCost.
func safeDistanceCost(ctx *Context, edge *roadgraph.DirectedEdge) float64 {
	if ctx.DistanceCost == nil {
		return FallbackDistanceCost
	}
	return ctx.DistanceCost(edge)
}

// projectionDistanceCost ties a time-advanced longitudinal state to the
// next observed along-edge position via a 1-D measurement-distance query,
// matching the likelihood penalty described for Linked/Forwarding
// transitions: the advanced state's predicted position is compared against
// the next projection's position plus the geometric distance travelled.
func projectionDistanceCost(advanced *kalman.State, next *projection.Projection, travelledDistance float64) float64 {
	h := mat.NewDense(1, 2, []float64{1, 0})
	r := mat.NewSymDense(1, []float64{next.Projected.P.At(0, 0) + 2})
	y := []float64{next.Projected.X.AtVec(0) + travelledDistance}
	dist, err := advanced.MeasurementDistance(y, h, r)
	if err != nil {
		return math.Inf(1)
	}
	return dist
}
