package debugviz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/routetrace/mapmatch/internal/kalman"
	"github.com/routetrace/mapmatch/internal/pathfmt"
	"github.com/routetrace/mapmatch/internal/roadgraph"
)

func newState(x, y float64) *kalman.State {
	return kalman.New([]float64{x, y, 0, 0}, [][]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	})
}

func TestRenderPathProducesFile(t *testing.T) {
	states := []*kalman.State{newState(0, 0), newState(10, 0), newState(20, 0)}
	edge := roadgraph.DirectedEdge{U: "a", V: "b"}
	segments := []pathfmt.MatchedSegment{
		{Edge: &edge, Geometry: []roadgraph.Point{{X: 0, Y: 0}, {X: 20, Y: 0}}},
		{Geometry: []roadgraph.Point{{X: 20, Y: 0}, {X: 25, Y: 5}}},
	}

	out := filepath.Join(t.TempDir(), "path.png")
	if err := RenderPath(out, states, segments, 8, 6); err != nil {
		t.Fatalf("RenderPath failed: %v", err)
	}

	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("expected a non-empty PNG file")
	}
}

func TestMatchedColorsCount(t *testing.T) {
	if got := matchedColors(0); got != nil {
		t.Fatalf("expected nil for zero colors, got %v", got)
	}
	if got := matchedColors(5); len(got) != 5 {
		t.Fatalf("expected 5 colors, got %d", len(got))
	}
}

func TestCountMatchedSkipsUnmatchedRuns(t *testing.T) {
	edge := roadgraph.DirectedEdge{U: "a", V: "b"}
	segments := []pathfmt.MatchedSegment{
		{Edge: &edge},
		{},
		{Edge: &edge},
	}
	if got := countMatched(segments); got != 2 {
		t.Fatalf("expected 2 matched segments, got %d", got)
	}
}
