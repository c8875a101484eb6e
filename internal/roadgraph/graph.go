// Package roadgraph defines the road network contract consumed by the
// matching engine and a reference in-memory implementation suitable for
// tests and small demos. OSM/shapefile ingestion and persistence are
// external-collaborator concerns; this package never reads from disk.
package roadgraph

// Point is a planar coordinate.
type Point struct {
	X, Y float64
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Intersects reports whether b and o overlap.
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX && b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

func (b Bounds) expand(p Point) Bounds {
	if p.X < b.MinX {
		b.MinX = p.X
	}
	if p.X > b.MaxX {
		b.MaxX = p.X
	}
	if p.Y < b.MinY {
		b.MinY = p.Y
	}
	if p.Y > b.MaxY {
		b.MaxY = p.Y
	}
	return b
}

// DirectedEdge identifies one directed traversal (u, v) of an edge.
// Its reverse (v, u) is a distinct DirectedEdge.
type DirectedEdge struct {
	U, V string
}

// Reverse returns the opposite direction of the same physical edge.
func (e DirectedEdge) Reverse() DirectedEdge { return DirectedEdge{U: e.V, V: e.U} }

// SpatialGraph is the road network contract the matching engine consumes.
// Implementations must support concurrent read queries — the engine issues
// them from multiple goroutines, one per trajectory being matched, with no
// writer active during matching.
type SpatialGraph interface {
	// SearchEdges returns every directed edge whose polyline bounding box
	// intersects bounds. Both directions of an edge are returned.
	SearchEdges(bounds Bounds) []DirectedEdge
	// EdgeGeometry returns the polyline of directed edge (u, v), oriented
	// from u to v.
	EdgeGeometry(u, v string) []Point
	// Adjacent returns every directed edge leaving v.
	Adjacent(v string) []DirectedEdge
}

// edge is one physical road edge, stored once; both directions are derived
// from the same geometry.
type edge struct {
	u, v    string
	points  []Point
	bounds  Bounds
	classID int
}

// Graph is a reference in-memory SpatialGraph backed by a uniform grid
// bucket index over edge bounding boxes. It is test/demo infrastructure,
// not a replacement for a real spatial index over a persisted road graph.
type Graph struct {
	cellSize float64
	edges    []edge
	buckets  map[[2]int][]int // cell -> edge indices
	adj      map[string][]int // vertex -> edge indices touching it (either direction)
}

// NewGraph creates an empty graph whose grid index uses the given cell
// size; cellSize should be on the order of the expected query bounds.
func NewGraph(cellSize float64) *Graph {
	if cellSize <= 0 {
		cellSize = 100
	}
	return &Graph{
		cellSize: cellSize,
		buckets:  make(map[[2]int][]int),
		adj:      make(map[string][]int),
	}
}

// AddEdge inserts an undirected physical edge (u, v) with the given
// polyline geometry, oriented from u to v. RoadClass is an opaque integer
// the caller's cost functions may interpret (see internal/costs).
func (g *Graph) AddEdge(u, v string, points []Point, roadClass int) {
	if len(points) < 2 {
		return
	}
	b := Bounds{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, p := range points[1:] {
		b = b.expand(p)
	}
	idx := len(g.edges)
	g.edges = append(g.edges, edge{u: u, v: v, points: points, bounds: b, classID: roadClass})
	g.adj[u] = append(g.adj[u], idx)
	g.adj[v] = append(g.adj[v], idx)

	for cx := g.cell(b.MinX); cx <= g.cell(b.MaxX); cx++ {
		for cy := g.cell(b.MinY); cy <= g.cell(b.MaxY); cy++ {
			key := [2]int{cx, cy}
			g.buckets[key] = append(g.buckets[key], idx)
		}
	}
}

func (g *Graph) cell(coord float64) int {
	return int(coord / g.cellSize)
}

// RoadClass returns the opaque class ID stored for the physical edge
// between u and v (either direction), or -1 if no such edge exists.
func (g *Graph) RoadClass(u, v string) int {
	for _, idx := range g.adj[u] {
		e := g.edges[idx]
		if (e.u == u && e.v == v) || (e.u == v && e.v == u) {
			return e.classID
		}
	}
	return -1
}

// SearchEdges implements SpatialGraph.
func (g *Graph) SearchEdges(bounds Bounds) []DirectedEdge {
	seen := make(map[int]bool)
	var out []DirectedEdge
	for cx := g.cell(bounds.MinX); cx <= g.cell(bounds.MaxX); cx++ {
		for cy := g.cell(bounds.MinY); cy <= g.cell(bounds.MaxY); cy++ {
			for _, idx := range g.buckets[[2]int{cx, cy}] {
				if seen[idx] {
					continue
				}
				e := g.edges[idx]
				if !e.bounds.Intersects(bounds) {
					continue
				}
				seen[idx] = true
				out = append(out, DirectedEdge{U: e.u, V: e.v}, DirectedEdge{U: e.v, V: e.u})
			}
		}
	}
	return out
}

// EdgeGeometry implements SpatialGraph.
func (g *Graph) EdgeGeometry(u, v string) []Point {
	for _, idx := range g.adj[u] {
		e := g.edges[idx]
		if e.u == u && e.v == v {
			out := make([]Point, len(e.points))
			copy(out, e.points)
			return out
		}
		if e.u == v && e.v == u {
			out := make([]Point, len(e.points))
			for i, p := range e.points {
				out[len(e.points)-1-i] = p
			}
			return out
		}
	}
	return nil
}

// Adjacent implements SpatialGraph.
func (g *Graph) Adjacent(v string) []DirectedEdge {
	var out []DirectedEdge
	for _, idx := range g.adj[v] {
		e := g.edges[idx]
		switch v {
		case e.u:
			out = append(out, DirectedEdge{U: e.u, V: e.v})
		case e.v:
			out = append(out, DirectedEdge{U: e.v, V: e.u})
		}
	}
	return out
}
