// Command mapmatch is a thin driver around internal/matchengine: it loads
// a toy road graph and a set of trajectories from JSON, matches them, and
// either prints the matched segments or persists them to sqlite.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/routetrace/mapmatch/internal/config"
	"github.com/routetrace/mapmatch/internal/debugviz"
	"github.com/routetrace/mapmatch/internal/matchengine"
	"github.com/routetrace/mapmatch/internal/store"
)

var (
	graphFilePath = flag.String("graph", "", "path to a JSON road graph file (required)")
	trajFilePath  = flag.String("trajectories", "", "path to a JSON trajectory file (required)")
	configPath    = flag.String("config", "", "path to a tuning overrides JSON file (default: built-in defaults)")
	dbFile        = flag.String("db", "", "path to a sqlite file to persist results to (optional)")
	plotDir       = flag.String("plot-dir", "", "directory to write one debug PNG per successfully matched trajectory (optional)")
	workers       = flag.Int("workers", 0, "worker pool size (default: GOMAXPROCS)")
)

func main() {
	flag.Parse()

	if *graphFilePath == "" || *trajFilePath == "" {
		fmt.Fprintln(os.Stderr, "usage: mapmatch -graph graph.json -trajectories trajectories.json [-config tuning.json] [-db out.db] [-plot-dir dir]")
		os.Exit(2)
	}

	graph, err := loadGraph(*graphFilePath)
	if err != nil {
		log.Fatalf("failed to load road graph: %v", err)
	}

	trajectories, err := loadTrajectories(*trajFilePath)
	if err != nil {
		log.Fatalf("failed to load trajectories: %v", err)
	}
	log.Printf("loaded %d trajectories against a road graph", len(trajectories))

	tuning := config.EmptyMatchTuning()
	if *configPath != "" {
		tuning, err = config.LoadMatchTuning(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	opts := []matchengine.Option{matchengine.WithTuning(tuning)}
	if *workers > 0 {
		opts = append(opts, matchengine.WithWorkers(*workers))
	}

	var db *store.DB
	if *dbFile != "" {
		db, err = store.Open(*dbFile)
		if err != nil {
			log.Fatalf("failed to open result database: %v", err)
		}
		defer db.Close()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	index := 0
	for result := range matchengine.Solve(context.Background(), trajectories, graph, opts...) {
		traj := trajectories[index]
		index++

		if db != nil {
			if err := db.SaveResult(result, 0); err != nil {
				log.Printf("failed to persist result for %s: %v", result.TrajectoryID, err)
			}
		}
		if *plotDir != "" && result.Err == nil {
			if err := renderPlot(*plotDir, result, traj); err != nil {
				log.Printf("failed to render plot for %s: %v", result.TrajectoryID, err)
			}
		}
		if result.Err != nil {
			continue
		}
		if err := enc.Encode(result); err != nil {
			log.Printf("failed to encode result for %s: %v", result.TrajectoryID, err)
		}
	}
}

func renderPlot(dir string, result matchengine.Result, traj matchengine.Trajectory) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	out := dir + "/" + result.TrajectoryID + ".png"
	return debugviz.RenderPath(out, traj.States, result.Segments, 10, 7)
}
