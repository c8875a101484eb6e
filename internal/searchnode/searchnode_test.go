package searchnode

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/routetrace/mapmatch/internal/kalman"
	"github.com/routetrace/mapmatch/internal/projection"
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

// straightGraph builds a two-edge graph a-b-c along the x axis, each edge
// 100 units long, and a context over a two-state trajectory that sits right
// on top of edge (a,b).
func straightGraph(t *testing.T) (*roadgraph.Graph, *segment.LinkManager, *projection.Manager, []*kalman.State) {
	t.Helper()
	g := roadgraph.NewGraph(50)
	g.AddEdge("a", "b", []roadgraph.Point{{X: 0, Y: 0}, {X: 100, Y: 0}}, 1)
	g.AddEdge("b", "c", []roadgraph.Point{{X: 100, Y: 0}, {X: 200, Y: 0}}, 1)
	f, q := identityMotion()
	lm := segment.NewLinkManager(g, segment.ConstantWidth(4), f, q)
	states := []*kalman.State{newState(10, 0), newState(40, 0)}
	pm := projection.New(g, lm, states)
	return g, lm, pm, states
}

func testContext(t *testing.T) *Context {
	t.Helper()
	g, lm, pm, states := straightGraph(t)
	return NewContext(g, lm, pm, states, nil, nil, 1.0)
}

func TestInitialNodeSuccessorsUseWideQuantile(t *testing.T) {
	// State 0 sits 20 units off edge (a,b) with unit variance: outside the
	// 5-sigma default box, inside the 50-sigma initial box.
	g, lm, _, _ := straightGraph(t)
	states := []*kalman.State{newState(10, 20), newState(40, 0)}
	ctx := NewContext(g, lm, projection.New(g, lm, states), states, nil, nil, 1.0)
	in := InitialNode{}
	keys := in.AdjacentNodes(ctx)
	if len(keys) == 0 {
		t.Fatalf("expected at least one successor from InitialNode")
	}
	foundLinked := false
	for _, k := range keys {
		if lk, ok := k.(LinkedKey); ok && lk.Index == 0 {
			foundLinked = true
		}
	}
	if !foundLinked {
		t.Fatalf("expected a LinkedKey at index 0 among %v", keys)
	}
}

func TestFinalNodeHasNoSuccessors(t *testing.T) {
	ctx := testContext(t)
	fn := FinalNode{}
	if got := fn.AdjacentNodes(ctx); got != nil {
		t.Fatalf("expected FinalNode to have no successors, got %v", got)
	}
	if fn.Cost() != 0 {
		t.Fatalf("expected FinalNode cost 0, got %v", fn.Cost())
	}
}

func TestLinkedNodeLastStateAdvancesToFinal(t *testing.T) {
	ctx := testContext(t)
	edge := roadgraph.DirectedEdge{U: "a", V: "b"}
	proj := ctx.Projections.At(1, edge, 0)
	n := &LinkedNode{Edge: edge, Seg: 0, Index: 1, Proj: proj}

	keys := n.AdjacentNodes(ctx)
	foundFinal := false
	for _, k := range keys {
		if _, ok := k.(FinalKey); ok {
			foundFinal = true
		}
	}
	if !foundFinal {
		t.Fatalf("expected FinalKey among successors of the last-state LinkedNode, got %v", keys)
	}
}

func TestLinkedNodeSameEdgeDistanceIsMonotonic(t *testing.T) {
	ctx := testContext(t)
	edge := roadgraph.DirectedEdge{U: "a", V: "b"}
	link := ctx.Links.At(edge)
	if len(link.Segments) < 2 {
		t.Skip("test graph produced fewer than two segments on edge (a,b)")
	}
	early := &LinkedNode{Edge: edge, Seg: 0, Index: 0, Proj: ctx.Projections.At(0, edge, 0)}
	late := &LinkedNode{Edge: edge, Seg: len(link.Segments) - 1, Index: 1, Proj: ctx.Projections.At(1, edge, len(link.Segments)-1)}

	d := early.DistanceTo(ctx, late)
	if d <= 0 {
		t.Fatalf("expected positive forward distance along the same edge, got %v", d)
	}
}

func TestForwardingNodeCoordinatesUseTrailingGeometryPoint(t *testing.T) {
	n := &ForwardingNode{
		AnchorIndex: 0,
		Edge:        roadgraph.DirectedEdge{U: "b", V: "c"},
		Advanced:    newState(0, 0),
		Distance:    0,
		geometry:    []point2{{X: 100, Y: 0}, {X: 200, Y: 0}},
	}
	x, y := n.Coordinates()
	if x != 200 || y != 0 {
		t.Fatalf("expected coordinates at the trailing geometry point, got (%v, %v)", x, y)
	}
}

func TestForwardingNodeAdjacentExcludesReverseOfOwnEdge(t *testing.T) {
	ctx := testContext(t)
	n := &ForwardingNode{
		AnchorIndex: 0,
		Edge:        roadgraph.DirectedEdge{U: "a", V: "b"},
		Advanced:    newState(0, 0),
		Distance:    0,
		geometry:    []point2{{X: 0, Y: 0}, {X: 100, Y: 0}},
	}
	for _, k := range n.AdjacentNodes(ctx) {
		if fk, ok := k.(ForwardingKey); ok {
			if fk.Edge == (roadgraph.DirectedEdge{U: "b", V: "a"}) {
				t.Fatalf("expected the reverse of the current edge to be excluded, got %v", fk)
			}
		}
	}
}

func TestFloatingNodeAdvancesIndexAndFallsBackAtEnd(t *testing.T) {
	ctx := testContext(t)
	n := &FloatingNode{Index: 0, X: 10, Y: 5}
	keys := n.AdjacentNodes(ctx)
	foundNextFloat := false
	for _, k := range keys {
		if fk, ok := k.(FloatingKey); ok && fk.Index == 1 {
			foundNextFloat = true
		}
	}
	if !foundNextFloat {
		t.Fatalf("expected FloatingKey{Index:1} among successors, got %v", keys)
	}

	last := &FloatingNode{Index: 1, X: 40, Y: 5}
	lastKeys := last.AdjacentNodes(ctx)
	if len(lastKeys) != 1 {
		t.Fatalf("expected exactly one successor at the last trajectory index, got %v", lastKeys)
	}
	if _, ok := lastKeys[0].(FinalKey); !ok {
		t.Fatalf("expected FinalKey as the sole successor, got %v", lastKeys[0])
	}
}

func TestFloatingNodeCostUsesFallback(t *testing.T) {
	ctx := testContext(t)
	n := &FloatingNode{Index: 0, X: 0, Y: 0}
	other := &FloatingNode{Index: 1, X: 300, Y: 0}
	cost := n.CostTo(ctx, other)
	if cost != 300*FallbackDistanceCost {
		t.Fatalf("expected fallback-priced distance cost 300*%v, got %v", FallbackDistanceCost, cost)
	}
}

func TestJumpingNodeExcludesAnchorEdge(t *testing.T) {
	ctx := testContext(t)
	anchor := roadgraph.DirectedEdge{U: "a", V: "b"}
	n := &JumpingNode{AnchorIndex: 0, AnchorEdge: anchor, X: 10, Y: 0}
	for _, k := range n.AdjacentNodes(ctx) {
		if lk, ok := k.(LinkedKey); ok && SameUndirectedEdge(lk.Edge, anchor) {
			t.Fatalf("expected candidates on the anchor's own edge to be excluded, got %v", lk)
		}
	}
}

func TestFactoryMaterializesLinkedFromKey(t *testing.T) {
	ctx := testContext(t)
	edge := roadgraph.DirectedEdge{U: "a", V: "b"}
	var f Factory
	n := f.Make(ctx, LinkedKey{Edge: edge, Seg: 0, Index: 0}, nil)
	ln, ok := n.(*LinkedNode)
	if !ok {
		t.Fatalf("expected *LinkedNode, got %T", n)
	}
	if ln.Proj == nil || ln.Proj.Constrained == nil {
		t.Fatalf("expected a materialized projection")
	}
}

func TestFactoryMaterializesForwardingFromLinkedPredecessor(t *testing.T) {
	ctx := testContext(t)
	edgeAB := roadgraph.DirectedEdge{U: "a", V: "b"}
	edgeBC := roadgraph.DirectedEdge{U: "b", V: "c"}
	var f Factory

	link := ctx.Links.At(edgeAB)
	lastSeg := len(link.Segments) - 1
	from := f.Make(ctx, LinkedKey{Edge: edgeAB, Seg: lastSeg, Index: 0}, nil)

	n := f.Make(ctx, ForwardingKey{AnchorIndex: 0, Edge: edgeBC}, from)
	fw, ok := n.(*ForwardingNode)
	if !ok {
		t.Fatalf("expected *ForwardingNode, got %T", n)
	}
	if fw.Advanced == nil {
		t.Fatalf("expected the forwarding node to carry an advanced Kalman state")
	}
	if fw.Distance < 0 {
		t.Fatalf("expected non-negative remaining distance, got %v", fw.Distance)
	}
	x, y := fw.Coordinates()
	if x != 200 || y != 0 {
		t.Fatalf("expected forwarding coordinates at edge (b,c)'s endpoint, got (%v, %v)", x, y)
	}
}

func TestFactoryMaterializesForwardingChainAccumulatesDistance(t *testing.T) {
	ctx := testContext(t)
	edgeAB := roadgraph.DirectedEdge{U: "a", V: "b"}
	edgeBC := roadgraph.DirectedEdge{U: "b", V: "c"}
	var f Factory

	link := ctx.Links.At(edgeAB)
	lastSeg := len(link.Segments) - 1
	linked := f.Make(ctx, LinkedKey{Edge: edgeAB, Seg: lastSeg, Index: 0}, nil)
	first := f.Make(ctx, ForwardingKey{AnchorIndex: 0, Edge: edgeBC}, linked).(*ForwardingNode)

	edgeCD := roadgraph.DirectedEdge{U: "c", V: "d"}
	second := f.Make(ctx, ForwardingKey{AnchorIndex: 0, Edge: edgeCD}, first).(*ForwardingNode)

	bcLink := ctx.Links.At(edgeBC)
	if second.Distance != first.Distance+bcLink.Length {
		t.Fatalf("expected accumulated distance %v, got %v", first.Distance+bcLink.Length, second.Distance)
	}
}

func TestFactoryMaterializesJumpingFromLinkedPredecessor(t *testing.T) {
	ctx := testContext(t)
	edge := roadgraph.DirectedEdge{U: "a", V: "b"}
	var f Factory
	linked := f.Make(ctx, LinkedKey{Edge: edge, Seg: 0, Index: 0}, nil)

	n := f.Make(ctx, JumpingKey{AnchorIndex: 0}, linked)
	jn, ok := n.(*JumpingNode)
	if !ok {
		t.Fatalf("expected *JumpingNode, got %T", n)
	}
	if jn.AnchorEdge != edge {
		t.Fatalf("expected anchor edge %v, got %v", edge, jn.AnchorEdge)
	}
}

func TestFactoryMaterializesFloating(t *testing.T) {
	ctx := testContext(t)
	var f Factory
	n := f.Make(ctx, FloatingKey{Index: 1}, nil)
	fl, ok := n.(*FloatingNode)
	if !ok {
		t.Fatalf("expected *FloatingNode, got %T", n)
	}
	if fl.X != 40 || fl.Y != 0 {
		t.Fatalf("expected floating coordinates to match state 1, got (%v, %v)", fl.X, fl.Y)
	}
}
