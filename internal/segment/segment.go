// Package segment parametrizes road edges into straight segments with a
// direction/normal frame, builds the ordered list of segments for a
// directed edge (a Link), and caches links per edge for a trajectory's
// duration.
package segment

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/routetrace/mapmatch/internal/kalman"
	"github.com/routetrace/mapmatch/internal/roadgraph"
)

// GeometryError reports a degenerate segment or empty edge. It is never
// fatal: callers treat it as infinite projection cost.
type GeometryError struct {
	Reason string
}

func (e *GeometryError) Error() string { return "segment: " + e.Reason }

// MaxAlongSegmentSpeed bounds plausible longitudinal speed along a segment,
// in the trajectory's velocity units. Implausibly fast motion is rejected
// by the inequality constraint in Project.
const MaxAlongSegmentSpeed = 50.0

// Segment is a straight piece of one directed edge's polyline.
type Segment struct {
	Origin, Destination roadgraph.Point
	Direction, Normal   [2]float64
	Length              float64
	HalfWidth           float64 // variance-scaled
	CumulativeDistance  float64 // distance from the edge's origin to this segment's start
	D                   *mat.Dense // 2x4, projects (x,y,vx,vy) onto (along, speed)
	Fs, Qs              *mat.Dense // 2x2 longitudinal motion matrices D F D^T, D Q D^T
}

func sub(a, b roadgraph.Point) (float64, float64) { return a.X - b.X, a.Y - b.Y }

func dot2(ax, ay, bx, by float64) float64 { return ax*bx + ay*by }

func newSegment(origin, destination roadgraph.Point, cumulative, halfWidth float64, f, q *mat.Dense) *Segment {
	dx, dy := sub(destination, origin)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return &Segment{Origin: origin, Destination: destination, Length: 0, HalfWidth: halfWidth, CumulativeDistance: cumulative}
	}
	dirx, diry := dx/length, dy/length
	normx, normy := -diry, dirx

	capD := mat.NewDense(2, 4, []float64{
		dirx, diry, 0, 0,
		0, 0, dirx, diry,
	})
	var df mat.Dense
	df.Mul(capD, f)
	var fs mat.Dense
	fs.Mul(&df, capD.T())

	var dq mat.Dense
	dq.Mul(capD, q)
	var qs mat.Dense
	qs.Mul(&dq, capD.T())

	return &Segment{
		Origin:             origin,
		Destination:        destination,
		Direction:          [2]float64{dirx, diry},
		Normal:             [2]float64{normx, normy},
		Length:             length,
		HalfWidth:          halfWidth,
		CumulativeDistance: cumulative,
		D:                  capD,
		Fs:                 &fs,
		Qs:                 &qs,
	}
}

// Empty reports whether the segment is degenerate (L = 0).
func (s *Segment) Empty() bool { return s.Length == 0 }

// Bounds returns the segment's axis-aligned bounding box, used by the
// projection manager's spatial pre-filters.
func (s *Segment) Bounds() roadgraph.Bounds {
	b := roadgraph.Bounds{MinX: s.Origin.X, MinY: s.Origin.Y, MaxX: s.Origin.X, MaxY: s.Origin.Y}
	if s.Destination.X < b.MinX {
		b.MinX = s.Destination.X
	}
	if s.Destination.X > b.MaxX {
		b.MaxX = s.Destination.X
	}
	if s.Destination.Y < b.MinY {
		b.MinY = s.Destination.Y
	}
	if s.Destination.Y > b.MaxY {
		b.MaxY = s.Destination.Y
	}
	return b
}

// Project conditions state on "lies on this segment", returning the
// projection cost and, on success, the 4-D constrained state and the 2-D
// along-segment (position, speed) projected state. On failure (degenerate
// segment or non-finite numerics) it returns +Inf cost and nil states; the
// input state is never mutated.
func (s *Segment) Project(state *kalman.State) (cost float64, constrained, projected *kalman.State) {
	if s.Empty() {
		return math.Inf(1), nil, nil
	}

	work := state.Copy()

	h := mat.NewDense(2, 4, []float64{
		s.Normal[0], s.Normal[1], 0, 0,
		0, 0, s.Normal[0], s.Normal[1],
	})
	originProjection := dot2(s.Normal[0], s.Normal[1], s.Origin.X, s.Origin.Y)
	y := []float64{originProjection, 0}
	r := mat.NewSymDense(2, []float64{s.HalfWidth, 0, 0, 1})

	measureDist, err := work.MeasurementUpdate(y, h, r)
	if err != nil {
		return math.Inf(1), nil, nil
	}

	originAlong := dot2(s.Direction[0], s.Direction[1], s.Origin.X, s.Origin.Y)
	a := []float64{originAlong, 0}
	b := []float64{originAlong + s.Length, MaxAlongSegmentSpeed}
	constraintDist, err := work.IneqConstraintUpdate(s.D, a, b)
	if err != nil {
		return math.Inf(1), nil, nil
	}

	proj := work.Transform(s.D)
	proj.X.SetVec(0, proj.X.AtVec(0)-originAlong)

	return measureDist + constraintDist, work, proj
}

// Advance time-updates a 2-D along-segment projected state by this
// segment's longitudinal motion matrices.
func (s *Segment) Advance(projected *kalman.State) error {
	return projected.TimeUpdate(s.Fs, s.Qs)
}

// Link is the ordered list of segments covering one directed edge; its
// total length equals the edge polyline's length.
type Link struct {
	Edge     roadgraph.DirectedEdge
	Segments []*Segment
	Length   float64
}

// Empty reports whether the edge has no usable geometry.
func (l *Link) Empty() bool { return len(l.Segments) == 0 }

func buildLink(edge roadgraph.DirectedEdge, points []roadgraph.Point, halfWidth float64, f, q *mat.Dense) *Link {
	link := &Link{Edge: edge}
	var cumulative float64
	for i := 0; i+1 < len(points); i++ {
		s := newSegment(points[i], points[i+1], cumulative, halfWidth, f, q)
		link.Segments = append(link.Segments, s)
		cumulative += s.Length
	}
	link.Length = cumulative
	return link
}

// WidthFunc reports the variance-scaled half-width to use for the edge
// between u and v. Implementations may ignore direction.
type WidthFunc func(u, v string) float64

// ConstantWidth returns a WidthFunc that always reports the same width,
// for callers without per-edge width data.
func ConstantWidth(w float64) WidthFunc {
	return func(string, string) float64 { return w }
}

// LinkManager builds and caches one Link per directed edge requested.
// Non-directional geometry is shared across both directions of an edge,
// but each direction gets its own Link because D depends on orientation.
// Not safe for concurrent use by multiple goroutines — each trajectory
// owns its own LinkManager.
type LinkManager struct {
	graph roadgraph.SpatialGraph
	width WidthFunc
	f, q  *mat.Dense
	cache map[roadgraph.DirectedEdge]*Link
}

// NewLinkManager builds a LinkManager over graph using the trajectory's
// motion model (f, q) and a road-width lookup.
func NewLinkManager(graph roadgraph.SpatialGraph, width WidthFunc, f, q *mat.Dense) *LinkManager {
	return &LinkManager{graph: graph, width: width, f: f, q: q, cache: make(map[roadgraph.DirectedEdge]*Link)}
}

// At returns the cached Link for the directed edge, building it on first
// request.
func (m *LinkManager) At(edge roadgraph.DirectedEdge) *Link {
	if link, ok := m.cache[edge]; ok {
		return link
	}
	points := m.graph.EdgeGeometry(edge.U, edge.V)
	link := buildLink(edge, points, m.width(edge.U, edge.V), m.f, m.q)
	m.cache[edge] = link
	return link
}
