// Package matchengine orchestrates the full map-matching pipeline for one
// or more trajectories: per-trajectory link/projection caches, the A*
// search, and path formatting, fanned out across trajectories on a bounded
// worker pool.
package matchengine

import (
	"context"
	"fmt"
	"iter"
	"log"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/routetrace/mapmatch/internal/config"
	"github.com/routetrace/mapmatch/internal/costs"
	"github.com/routetrace/mapmatch/internal/kalman"
	"github.com/routetrace/mapmatch/internal/pathfmt"
	"github.com/routetrace/mapmatch/internal/pathsearch"
	"github.com/routetrace/mapmatch/internal/projection"
	"github.com/routetrace/mapmatch/internal/roadgraph"
	"github.com/routetrace/mapmatch/internal/searchnode"
	"github.com/routetrace/mapmatch/internal/segment"
)

// Transition is the linear-Gaussian motion model (F, Q) used to advance a
// trajectory's Kalman states along a link, shared by every state of one
// Trajectory.
type Transition struct {
	F, Q *mat.Dense
}

// Trajectory is one sequence of raw Kalman states to match against the
// road graph.
type Trajectory struct {
	ID         string
	States     []*kalman.State
	Transition Transition
}

// newID returns a default trajectory ID in the teacher's track-ID
// convention when the caller leaves Trajectory.ID empty.
func newID() string {
	return fmt.Sprintf("trk_%s", uuid.NewString())
}

// Result is the outcome of matching one trajectory.
type Result struct {
	TrajectoryID string
	Segments     []pathfmt.MatchedSegment
	Err          error
}

// RoadClassifier reports the road class of an edge, used to build the
// default distance cost function. Callers without a classifier get the
// class-agnostic default weighting.
type RoadClassifier func(edge roadgraph.DirectedEdge) costs.RoadClass

// Options controls one Solve call.
type Options struct {
	Tuning     *config.MatchTuning
	CostModel  *costs.Model
	Classifier RoadClassifier
	Progress   func(trajectoryID string, edge roadgraph.DirectedEdge, index int)
	Workers    int
}

// Option configures an Options value.
type Option func(*Options)

// WithTuning overrides the tuning parameters used for the search budget,
// greedy factor, road half-width and off-network distance cost. Solve reads
// no other MatchTuning field: the projection quantiles, candidate count,
// off-network state cost and along-segment speed limit are fixed constants
// in the searchnode, projection and segment packages.
func WithTuning(t *config.MatchTuning) Option {
	return func(o *Options) { o.Tuning = t }
}

// WithCostModel overrides the default distance/intersection weighting.
func WithCostModel(m *costs.Model) Option {
	return func(o *Options) { o.CostModel = m }
}

// WithClassifier supplies a RoadClassifier so the default distance cost
// function can distinguish road classes instead of treating every link
// uniformly.
func WithClassifier(c RoadClassifier) Option {
	return func(o *Options) { o.Classifier = c }
}

// WithProgress registers a callback invoked as the search explores each
// candidate edge, per trajectory.
func WithProgress(fn func(trajectoryID string, edge roadgraph.DirectedEdge, index int)) Option {
	return func(o *Options) { o.Progress = fn }
}

// WithWorkers overrides the worker pool size. The default is
// runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

func resolveOptions(opts []Option) *Options {
	o := &Options{
		Tuning:    config.EmptyMatchTuning(),
		CostModel: costs.NewDefaultModel(),
		Workers:   runtime.GOMAXPROCS(0),
	}
	for _, apply := range opts {
		apply(o)
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

func (o *Options) distanceCostFn() searchnode.DistanceCostFn {
	return func(edge *roadgraph.DirectedEdge) float64 {
		if edge == nil {
			return o.Tuning.GetFallbackDistanceCost()
		}
		if o.Classifier == nil {
			return o.CostModel.DistanceCost(&costs.LinkAttributes{})
		}
		class := o.Classifier(*edge)
		return o.CostModel.DistanceCost(&costs.LinkAttributes{Class: class})
	}
}

func (o *Options) intersectionCostFn() searchnode.IntersectionCostFn {
	return func(u, v string, k roadgraph.DirectedEdge) float64 {
		return o.CostModel.IntersectionCost(&costs.NodeAttributes{})
	}
}

// solveOne matches a single trajectory against graph, returning a Result
// that never carries a path-search error as a fatal failure: a NoPathError
// is reported through Result.Err for the caller to log and skip.
func solveOne(graph roadgraph.SpatialGraph, traj Trajectory, opts *Options) Result {
	id := traj.ID
	if id == "" {
		id = newID()
	}
	if len(traj.States) == 0 {
		return Result{TrajectoryID: id, Err: fmt.Errorf("matchengine: trajectory %s has no states", id)}
	}

	width := segment.ConstantWidth(opts.Tuning.GetDefaultHalfWidth())
	links := segment.NewLinkManager(graph, width, traj.Transition.F, traj.Transition.Q)
	projections := projection.New(graph, links, traj.States)

	ctx := searchnode.NewContext(
		graph,
		links,
		projections,
		traj.States,
		opts.distanceCostFn(),
		opts.intersectionCostFn(),
		opts.Tuning.GetGreedyFactor(),
	)

	var progress pathsearch.Progress
	if opts.Progress != nil {
		progress = func(edge roadgraph.DirectedEdge, index int) {
			opts.Progress(id, edge, index)
		}
	}

	steps, err := pathsearch.FindBestPath(ctx, opts.Tuning.GetRelaxationBudget(), progress)
	if err != nil {
		return Result{TrajectoryID: id, Err: err}
	}

	segments := pathfmt.FormatPath(ctx, steps)
	return Result{TrajectoryID: id, Segments: segments}
}

// Solve matches every trajectory against graph and returns an iterator
// yielding one Result per input trajectory, in input order regardless of
// completion order. Trajectories are matched independently and in parallel
// across a worker pool sized by WithWorkers (default
// runtime.GOMAXPROCS(0)); all workers share the read-only graph. A
// trajectory for which no path can be found logs a warning; its Result
// carries the error rather than aborting the batch. Cancelling ctx stops
// dispatching unstarted trajectories; their Results carry ctx.Err().
func Solve(ctx context.Context, trajectories []Trajectory, graph roadgraph.SpatialGraph, opts ...Option) iter.Seq[Result] {
	o := resolveOptions(opts)
	results := make([]Result, len(trajectories))

	work := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < o.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				results[i] = solveOne(graph, trajectories[i], o)
			}
		}()
	}
dispatch:
	for i := range trajectories {
		select {
		case <-ctx.Done():
			for j := i; j < len(trajectories); j++ {
				results[j] = Result{TrajectoryID: trajectories[j].ID, Err: ctx.Err()}
			}
			break dispatch
		default:
		}
		select {
		case work <- i:
		case <-ctx.Done():
			for j := i; j < len(trajectories); j++ {
				results[j] = Result{TrajectoryID: trajectories[j].ID, Err: ctx.Err()}
			}
			break dispatch
		}
	}
	close(work)
	wg.Wait()

	for i, r := range results {
		if r.Err == nil {
			continue
		}
		id := r.TrajectoryID
		if id == "" {
			id = trajectories[i].ID
		}
		log.Printf("matchengine: trajectory %s failed to match: %v", id, r.Err)
	}

	return func(yield func(Result) bool) {
		for _, r := range results {
			if !yield(r) {
				return
			}
		}
	}
}
