// Package costs provides the default distance and intersection cost
// functions the matching engine consumes: a weighted inner product of
// boolean link/intersection predicates against a tunable weight vector.
package costs

import "gonum.org/v1/gonum/floats"

// FallbackDistanceCost is charged for off-network movement (a nil link).
const FallbackDistanceCost = 300.0

// RoadClass categorizes a link the way the predicates below expect.
type RoadClass int

const (
	RoadClassOther RoadClass = iota
	RoadClassCycling
	RoadClassDesignatedRoadway
	RoadClassBikeLane
	RoadClassSeparateCyclingLink
	RoadClassOffroad
)

// LinkAttributes is the per-edge information the distance cost predicates
// read. Callers populate it from whatever road-class data they have; the
// matching engine itself has no OSM tag model.
type LinkAttributes struct {
	Class RoadClass
}

// NodeAttributes is the per-vertex information the intersection cost
// predicates read.
type NodeAttributes struct {
	EndOfFacility bool
}

type distancePredicate func(*LinkAttributes) bool

var distancePredicates = []distancePredicate{
	func(*LinkAttributes) bool { return true },
	func(a *LinkAttributes) bool { return a.Class == RoadClassCycling },
	func(a *LinkAttributes) bool { return a.Class == RoadClassDesignatedRoadway },
	func(a *LinkAttributes) bool { return a.Class == RoadClassBikeLane },
	func(a *LinkAttributes) bool { return a.Class == RoadClassSeparateCyclingLink },
	func(a *LinkAttributes) bool { return a.Class == RoadClassOffroad },
	func(a *LinkAttributes) bool { return a.Class == RoadClassOther },
}

type intersectionPredicate func(*NodeAttributes) bool

var intersectionPredicates = []intersectionPredicate{
	func(*NodeAttributes) bool { return true },
	func(a *NodeAttributes) bool { return a.EndOfFacility },
}

// Model holds the tunable weight vectors for the default cost functions.
type Model struct {
	DistanceWeights     []float64
	IntersectionWeights []float64
}

// NewDefaultModel returns the weighting used when no tuning override is
// supplied: a flat per-unit-length cost with every road-class distinction
// turned off.
func NewDefaultModel() *Model {
	return &Model{
		DistanceWeights:     []float64{1, 0, 0, 0, 0, 0, 0},
		IntersectionWeights: []float64{1, 0},
	}
}

// DistanceCost returns the per-unit-length cost for a link, or
// FallbackDistanceCost for off-network movement (attrs == nil).
func (m *Model) DistanceCost(attrs *LinkAttributes) float64 {
	if attrs == nil {
		return FallbackDistanceCost
	}
	values := make([]float64, len(distancePredicates))
	for i, p := range distancePredicates {
		if p(attrs) {
			values[i] = 1
		}
	}
	return 0.5 * floats.Dot(values, m.DistanceWeights)
}

// IntersectionCost returns the cost of passing through a vertex with the
// given attributes.
func (m *Model) IntersectionCost(attrs *NodeAttributes) float64 {
	if attrs == nil {
		attrs = &NodeAttributes{}
	}
	values := make([]float64, len(intersectionPredicates))
	for i, p := range intersectionPredicates {
		if p(attrs) {
			values[i] = 1
		}
	}
	return 0.5 * floats.Dot(values, m.IntersectionWeights)
}
