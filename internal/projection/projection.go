// Package projection maps trajectory states to nearby road-segment
// candidates and memoizes the resulting projections for a trajectory's
// duration.
package projection

import (
	"math"
	"sort"

	"github.com/routetrace/mapmatch/internal/kalman"
	"github.com/routetrace/mapmatch/internal/roadgraph"
	"github.com/routetrace/mapmatch/internal/segment"
)

// MaxCandidatesPerState bounds the number of lowest-cost projections kept
// per trajectory state (k = min(this, n) partial selection).
const MaxCandidatesPerState = 5

// ContinuationQuantile is the standing uncertainty quantile used by
// SearchEdge to find continuation points without recomputing projections.
const ContinuationQuantile = 25.0

// Projection is a memoized projection result: cost plus the constrained
// 4-D state and projected 2-D longitudinal state it produced.
type Projection struct {
	Cost        float64
	Constrained *kalman.State
	Projected   *kalman.State
}

type projKey struct {
	index int
	edge  roadgraph.DirectedEdge
	seg   int
}

type searchKey struct {
	index int
	edge  roadgraph.DirectedEdge
}

// Manager is the lazy projection cache for one trajectory. It is not safe
// for concurrent use — each trajectory owns its own Manager.
type Manager struct {
	graph  roadgraph.SpatialGraph
	links  *segment.LinkManager
	states []*kalman.State

	projectionTable map[projKey]*Projection
	stateTable      map[int]map[roadgraph.DirectedEdge][]int
	searchTable     map[searchKey][]int
}

// New builds a Manager over the given trajectory states.
func New(graph roadgraph.SpatialGraph, links *segment.LinkManager, states []*kalman.State) *Manager {
	return &Manager{
		graph:           graph,
		links:           links,
		states:          states,
		projectionTable: make(map[projKey]*Projection),
		stateTable:      make(map[int]map[roadgraph.DirectedEdge][]int),
		searchTable:     make(map[searchKey][]int),
	}
}

func ellipseBounds(state *kalman.State, quantile float64) roadgraph.Bounds {
	x, y := state.X.AtVec(0), state.X.AtVec(1)
	halfX := quantile * math.Sqrt(state.P.At(0, 0))
	halfY := quantile * math.Sqrt(state.P.At(1, 1))
	return roadgraph.Bounds{MinX: x - halfX, MinY: y - halfY, MaxX: x + halfX, MaxY: y + halfY}
}

type candidate struct {
	edge roadgraph.DirectedEdge
	seg  int
	proj *Projection
}

// ProjectState returns the admissible candidate segments for trajectory
// state i: for each directed edge whose polyline bounding box intersects
// the position uncertainty ellipse at the given quantile, every segment is
// attempted via Segment.Project on a copy of the state, and the
// k = min(MaxCandidatesPerState, n) lowest-cost candidates are kept. The
// initial node calls this with a wide quantile (e.g. 50) to guarantee a
// non-empty start set. Results are deterministic and cached.
func (m *Manager) ProjectState(i int, quantile float64) map[roadgraph.DirectedEdge][]int {
	if cached, ok := m.stateTable[i]; ok {
		return cached
	}

	bounds := ellipseBounds(m.states[i], quantile)
	edges := m.graph.SearchEdges(bounds)

	visited := make(map[roadgraph.DirectedEdge]bool)
	var all []candidate
	for _, edge := range edges {
		if visited[edge] {
			continue
		}
		visited[edge] = true

		link := m.links.At(edge)
		for segIdx, s := range link.Segments {
			if s.Empty() || !s.Bounds().Intersects(bounds) {
				continue
			}
			cost, constrained, projected := s.Project(m.states[i])
			if constrained == nil {
				continue
			}
			all = append(all, candidate{edge: edge, seg: segIdx, proj: &Projection{Cost: cost, Constrained: constrained, Projected: projected}})
		}
	}

	sort.SliceStable(all, func(a, b int) bool { return all[a].proj.Cost < all[b].proj.Cost })
	k := MaxCandidatesPerState
	if len(all) < k {
		k = len(all)
	}
	kept := all[:k]

	result := make(map[roadgraph.DirectedEdge][]int, len(kept))
	for _, c := range kept {
		m.projectionTable[projKey{index: i, edge: c.edge, seg: c.seg}] = c.proj
		result[c.edge] = append(result[c.edge], c.seg)
	}
	for edge := range result {
		sort.Ints(result[edge])
	}
	m.stateTable[i] = result
	return result
}

// SearchEdge returns the segment indices on edge whose polyline bounding
// box intersects the state-i ellipse at the standing continuation
// quantile, without computing or caching a full projection. Used by
// Linked/Forwarding successors to find continuation points.
func (m *Manager) SearchEdge(i int, edge roadgraph.DirectedEdge) []int {
	key := searchKey{index: i, edge: edge}
	if cached, ok := m.searchTable[key]; ok {
		return cached
	}

	bounds := ellipseBounds(m.states[i], ContinuationQuantile)
	link := m.links.At(edge)
	var out []int
	for segIdx, s := range link.Segments {
		if s.Empty() {
			continue
		}
		if s.Bounds().Intersects(bounds) {
			out = append(out, segIdx)
		}
	}
	m.searchTable[key] = out
	return out
}

// At returns the cached projection for (i, edge, seg), computing and
// caching it lazily if absent.
func (m *Manager) At(i int, edge roadgraph.DirectedEdge, seg int) *Projection {
	key := projKey{index: i, edge: edge, seg: seg}
	if cached, ok := m.projectionTable[key]; ok {
		return cached
	}

	link := m.links.At(edge)
	s := link.Segments[seg]
	cost, constrained, projected := s.Project(m.states[i])
	proj := &Projection{Cost: cost, Constrained: constrained, Projected: projected}
	m.projectionTable[key] = proj
	return proj
}
