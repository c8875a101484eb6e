package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/routetrace/mapmatch/internal/kalman"
	"github.com/routetrace/mapmatch/internal/matchengine"
	"github.com/routetrace/mapmatch/internal/roadgraph"
)

// graphFile is the on-disk shape of the toy road graph: a flat list of
// undirected edges, each an ordered polyline from u to v.
type graphFile struct {
	CellSize float64        `json:"cell_size"`
	Edges    []graphEdgeDef `json:"edges"`
}

type graphEdgeDef struct {
	U         string            `json:"u"`
	V         string            `json:"v"`
	Geometry  []roadgraph.Point `json:"geometry"`
	RoadClass int               `json:"road_class"`
}

func loadGraph(path string) (*roadgraph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file %q: %w", path, err)
	}
	var gf graphFile
	if err := json.Unmarshal(data, &gf); err != nil {
		return nil, fmt.Errorf("failed to parse graph file %q: %w", path, err)
	}
	cellSize := gf.CellSize
	if cellSize <= 0 {
		cellSize = 100
	}
	g := roadgraph.NewGraph(cellSize)
	for _, e := range gf.Edges {
		g.AddEdge(e.U, e.V, e.Geometry, e.RoadClass)
	}
	return g, nil
}

// trajectoryFile is the on-disk shape of one trajectory: an ID and an
// ordered list of raw (x, y) observations sharing one motion model.
type trajectoryFile struct {
	ID         string        `json:"id,omitempty"`
	States     []stateDef    `json:"states"`
	Transition transitionDef `json:"transition"`
}

type stateDef struct {
	X, Y, VX, VY float64
	Variance     [4]float64 // diagonal covariance; off-diagonal terms are zero
}

func (s *stateDef) UnmarshalJSON(data []byte) error {
	type alias struct {
		X        float64     `json:"x"`
		Y        float64     `json:"y"`
		VX       float64     `json:"vx"`
		VY       float64     `json:"vy"`
		Variance *[4]float64 `json:"variance"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	s.X, s.Y, s.VX, s.VY = a.X, a.Y, a.VX, a.VY
	if a.Variance != nil {
		s.Variance = *a.Variance
	} else {
		s.Variance = [4]float64{1, 1, 1, 1}
	}
	return nil
}

func (s stateDef) toState() *kalman.State {
	return kalman.New([]float64{s.X, s.Y, s.VX, s.VY}, [][]float64{
		{s.Variance[0], 0, 0, 0},
		{0, s.Variance[1], 0, 0},
		{0, 0, s.Variance[2], 0},
		{0, 0, 0, s.Variance[3]},
	})
}

// transitionDef is a constant-velocity motion model with a process-noise
// scale, expanded at load time into the 4x4 F/Q matrices matchengine
// expects.
type transitionDef struct {
	DT         float64 `json:"dt"`
	ProcessVar float64 `json:"process_var"`
}

func (t transitionDef) toTransition() matchengine.Transition {
	dt := t.DT
	if dt == 0 {
		dt = 1
	}
	f := mat.NewDense(4, 4, []float64{
		1, 0, dt, 0,
		0, 1, 0, dt,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	qv := t.ProcessVar
	if qv == 0 {
		qv = 0.01
	}
	q := mat.NewDense(4, 4, []float64{
		qv, 0, 0, 0,
		0, qv, 0, 0,
		0, 0, qv, 0,
		0, 0, 0, qv,
	})
	return matchengine.Transition{F: f, Q: q}
}

func loadTrajectories(path string) ([]matchengine.Trajectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trajectory file %q: %w", path, err)
	}
	var files []trajectoryFile
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("failed to parse trajectory file %q: %w", path, err)
	}
	trajectories := make([]matchengine.Trajectory, len(files))
	for i, tf := range files {
		states := make([]*kalman.State, len(tf.States))
		for j, sd := range tf.States {
			states[j] = sd.toState()
		}
		trajectories[i] = matchengine.Trajectory{
			ID:         tf.ID,
			States:     states,
			Transition: tf.Transition.toTransition(),
		}
	}
	return trajectories, nil
}
