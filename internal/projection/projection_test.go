package projection

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/routetrace/mapmatch/internal/kalman"
	"github.com/routetrace/mapmatch/internal/roadgraph"
	"github.com/routetrace/mapmatch/internal/segment"
)

func identityMotion() (*mat.Dense, *mat.Dense) {
	f := mat.NewDense(4, 4, []float64{
		1, 0, 1, 0,
		0, 1, 0, 1,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	q := mat.NewDense(4, 4, []float64{
		0.01, 0, 0, 0,
		0, 0.01, 0, 0,
		0, 0, 0.01, 0,
		0, 0, 0, 0.01,
	})
	return f, q
}

func newState(x, y float64) *kalman.State {
	return kalman.New([]float64{x, y, 0, 0}, [][]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	})
}

func TestProjectStateFindsOnTrackCandidate(t *testing.T) {
	g := roadgraph.NewGraph(50)
	g.AddEdge("a", "b", []roadgraph.Point{{X: 0, Y: 0}, {X: 100, Y: 0}}, 1)
	f, q := identityMotion()
	lm := segment.NewLinkManager(g, segment.ConstantWidth(4), f, q)

	states := []*kalman.State{newState(50, 0.1)}
	pm := New(g, lm, states)

	candidates := pm.ProjectState(0, 5.0)
	if len(candidates) == 0 {
		t.Fatalf("expected at least one candidate edge")
	}
	found := false
	for edge := range candidates {
		if edge.U == "a" && edge.V == "b" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected (a,b) among candidates, got %v", candidates)
	}
}

func TestProjectStateIsCached(t *testing.T) {
	g := roadgraph.NewGraph(50)
	g.AddEdge("a", "b", []roadgraph.Point{{X: 0, Y: 0}, {X: 100, Y: 0}}, 1)
	f, q := identityMotion()
	lm := segment.NewLinkManager(g, segment.ConstantWidth(4), f, q)
	states := []*kalman.State{newState(50, 0)}
	pm := New(g, lm, states)

	first := pm.ProjectState(0, 5.0)
	second := pm.ProjectState(0, 5.0)
	for edge, offs := range first {
		if len(second[edge]) != len(offs) {
			t.Fatalf("expected cached result to be stable")
		}
	}
}

func TestAtLazilyComputesAndCaches(t *testing.T) {
	g := roadgraph.NewGraph(50)
	g.AddEdge("a", "b", []roadgraph.Point{{X: 0, Y: 0}, {X: 100, Y: 0}}, 1)
	f, q := identityMotion()
	lm := segment.NewLinkManager(g, segment.ConstantWidth(4), f, q)
	states := []*kalman.State{newState(50, 0)}
	pm := New(g, lm, states)

	edge := roadgraph.DirectedEdge{U: "a", V: "b"}
	proj := pm.At(0, edge, 0)
	if proj.Constrained == nil {
		t.Fatalf("expected a successful projection on-track")
	}
	cached := pm.At(0, edge, 0)
	if cached != proj {
		t.Fatalf("expected At to return the cached pointer on a second call")
	}
}

func TestSearchEdgeUsesWiderQuantile(t *testing.T) {
	g := roadgraph.NewGraph(50)
	g.AddEdge("a", "b", []roadgraph.Point{{X: 0, Y: 0}, {X: 100, Y: 0}}, 1)
	f, q := identityMotion()
	lm := segment.NewLinkManager(g, segment.ConstantWidth(4), f, q)
	// 10 units off the edge with unit variance: outside a 5-sigma box,
	// inside the 25-sigma box SearchEdge uses.
	states := []*kalman.State{newState(50, 10)}
	pm := New(g, lm, states)

	offsets := pm.SearchEdge(0, roadgraph.DirectedEdge{U: "a", V: "b"})
	if len(offsets) == 0 {
		t.Fatalf("expected at least one candidate segment on the edge")
	}
}
