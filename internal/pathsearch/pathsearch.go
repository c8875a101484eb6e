// Package pathsearch implements the generic A* search that threads a
// trajectory through the heterogeneous search-node graph defined by
// internal/searchnode: lazily-expanded keys, a min-heap open set keyed by
// f = g + h + handicap, a closed set, and g/parent maps.
package pathsearch

import (
	"container/heap"
	"fmt"

	"github.com/routetrace/mapmatch/internal/roadgraph"
	"github.com/routetrace/mapmatch/internal/searchnode"
)

// NoPathError is returned when the open set empties, or the relaxation
// budget is exhausted, before Final is reached.
type NoPathError struct {
	Relaxations int
}

func (e *NoPathError) Error() string {
	return fmt.Sprintf("pathsearch: no path found after %d relaxations", e.Relaxations)
}

// Step is one (key, node) pair of a reconstructed best path, in order from
// Initial to Final.
type Step struct {
	Key  searchnode.Key
	Node searchnode.Node
}

// Progress is called each time a successor key is relaxed with an improved
// cost, reporting the trajectory index associated with the key's edge (if
// any). Callers use it to detect pathological graphs before the budget is
// exhausted; edge is the zero value when the key has no associated edge.
type Progress func(edge roadgraph.DirectedEdge, index int)

type item struct {
	key searchnode.Key
	f   float64
	seq int64
}

type pq []*item

func (q pq) Len() int { return len(q) }

func (q pq) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	return q[i].seq < q[j].seq
}

func (q pq) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *pq) Push(x any) { *q = append(*q, x.(*item)) }

func (q *pq) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

// progressInfo extracts the (edge, index) pair a key reports to a progress
// monitor, if it has one.
func progressInfo(key searchnode.Key) (roadgraph.DirectedEdge, int, bool) {
	switch k := key.(type) {
	case searchnode.LinkedKey:
		return k.Edge, k.Index, true
	case searchnode.ForwardingKey:
		return k.Edge, k.AnchorIndex, true
	case searchnode.FloatingKey:
		return roadgraph.DirectedEdge{}, k.Index, true
	case searchnode.JumpingKey:
		return roadgraph.DirectedEdge{}, k.AnchorIndex, true
	}
	return roadgraph.DirectedEdge{}, 0, false
}

// FindBestPath runs A* from InitialKey to FinalKey over ctx's search-node
// graph. budget bounds the total number of relaxations attempted before the
// search gives up with a NoPathError; progress, if non-nil, is invoked on
// every improving relaxation.
func FindBestPath(ctx *searchnode.Context, budget int, progress Progress) ([]Step, error) {
	var factory searchnode.Factory

	g := make(map[searchnode.Key]float64)
	parent := make(map[searchnode.Key]searchnode.Key)
	nodes := make(map[searchnode.Key]searchnode.Node)
	closed := make(map[searchnode.Key]bool)

	initialKey := searchnode.Key(searchnode.InitialKey{})
	g[initialKey] = 0
	nodes[initialKey] = searchnode.InitialNode{}

	var open pq
	var seq int64
	heap.Push(&open, &item{key: initialKey, f: nodes[initialKey].Heuristic(ctx), seq: seq})

	relaxations := 0
	for open.Len() > 0 {
		current := heap.Pop(&open).(*item)
		key := current.key
		if closed[key] {
			continue
		}
		closed[key] = true

		if _, ok := key.(searchnode.FinalKey); ok {
			return reconstruct(parent, nodes, key), nil
		}

		node := nodes[key]
		for _, succKey := range node.AdjacentNodes(ctx) {
			relaxations++
			if relaxations > budget {
				return nil, &NoPathError{Relaxations: relaxations}
			}
			if closed[succKey] {
				continue
			}

			succNode, ok := nodes[succKey]
			if !ok {
				succNode = factory.Make(ctx, succKey, node)
				nodes[succKey] = succNode
			}

			edgeCost := node.CostTo(ctx, succNode) + succNode.Cost() + succNode.Handicap(ctx)
			tentative := g[key] + edgeCost

			existing, seen := g[succKey]
			if seen && tentative >= existing {
				continue
			}
			g[succKey] = tentative
			parent[succKey] = key

			seq++
			heap.Push(&open, &item{key: succKey, f: tentative + succNode.Heuristic(ctx), seq: seq})

			if progress != nil {
				if edge, idx, ok := progressInfo(succKey); ok {
					progress(edge, idx)
				}
			}
		}
	}

	return nil, &NoPathError{Relaxations: relaxations}
}

func reconstruct(parent map[searchnode.Key]searchnode.Key, nodes map[searchnode.Key]searchnode.Node, final searchnode.Key) []Step {
	var rev []Step
	key := final
	for {
		rev = append(rev, Step{Key: key, Node: nodes[key]})
		prev, ok := parent[key]
		if !ok {
			break
		}
		key = prev
	}

	out := make([]Step, len(rev))
	for i, s := range rev {
		out[len(rev)-1-i] = s
	}
	return out
}
