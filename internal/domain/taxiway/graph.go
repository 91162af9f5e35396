// Package taxiway models the airfield's taxi routing as a small weighted
// graph, supplementing spec.md §4.13's lifecycle taxi phases (5 and 8) with
// a real path duration instead of a flat constant.
//
// Adapted from original_source/src/airport/TaxiwayGraph.{h,cpp}: BFS
// shortest path, per-node occupancy reservation, and an occupancy-ratio
// gridlock heuristic, generalized to Dijkstra over edge weights (seconds)
// since the original's edge weight carries real timing information that a
// BFS hop-count ignores.
package taxiway

import (
	"container/heap"
	"fmt"
	"sync"
)

// Node is a taxiway intersection or holding point.
type Node struct {
	ID   int
	Name string
}

// Edge is a directed, weighted taxiway segment; Weight is the traversal
// time in seconds.
type Edge struct {
	From, To int
	Weight   float64
}

// Graph is the airfield's taxiway network. Each node carries an occupancy
// flag guarded by the graph-wide mutex (spec.md §5's "pool-wide lock for
// structural modifications" discipline, applied here since a taxiway
// segment's occupancy is structural, not a per-item reservation with its
// own wait queue).
type Graph struct {
	mu sync.Mutex

	nodes     map[int]*Node
	adjacency map[int][]Edge
	occupied  map[int]string // node id -> occupying flight id
}

// New builds an empty taxiway graph.
func New() *Graph {
	return &Graph{
		nodes:     make(map[int]*Node),
		adjacency: make(map[int][]Edge),
		occupied:  make(map[int]string),
	}
}

// AddNode registers a taxiway node.
func (g *Graph) AddNode(id int, name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[id] = &Node{ID: id, Name: name}
}

// AddEdge adds a directed edge. Callers that want bidirectional taxiways
// add both directions explicitly, matching the original's directed
// adjacency list.
func (g *Graph) AddEdge(from, to int, weight float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.adjacency[from] = append(g.adjacency[from], Edge{From: from, To: to, Weight: weight})
}

type pqItem struct {
	node int
	dist float64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// ShortestPath computes the minimum-weight path from `from` to `to` via
// Dijkstra's algorithm, returning the node sequence and its total duration
// in seconds. Returns (nil, 0, false) if no path exists.
func (g *Graph) ShortestPath(from, to int) ([]int, float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if from == to {
		return []int{from}, 0, true
	}

	dist := map[int]float64{from: 0}
	prev := map[int]int{}
	visited := map[int]bool{}

	pq := &priorityQueue{{node: from, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true

		if cur.node == to {
			break
		}

		for _, e := range g.adjacency[cur.node] {
			if visited[e.To] {
				continue
			}
			nd := dist[cur.node] + e.Weight
			if d, ok := dist[e.To]; !ok || nd < d {
				dist[e.To] = nd
				prev[e.To] = cur.node
				heap.Push(pq, pqItem{node: e.To, dist: nd})
			}
		}
	}

	d, ok := dist[to]
	if !ok {
		return nil, 0, false
	}

	var path []int
	for n := to; ; {
		path = append([]int{n}, path...)
		if n == from {
			break
		}
		n = prev[n]
	}
	return path, d, true
}

// TryReservePath reserves every node on path for flightID, iff all are
// currently free. On partial conflict nothing is reserved (all-or-nothing,
// matching the original's check-then-reserve shape).
func (g *Graph) TryReservePath(path []int, flightID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, n := range path {
		if _, busy := g.occupied[n]; busy {
			return false
		}
	}
	for _, n := range path {
		g.occupied[n] = flightID
	}
	return true
}

// ReleasePath frees every node on path.
func (g *Graph) ReleasePath(path []int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range path {
		delete(g.occupied, n)
	}
}

// DetectGridlock reports whether occupancy has crossed 80% of all nodes,
// the original's coarse gridlock heuristic.
func (g *Graph) DetectGridlock() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.nodes) == 0 {
		return false
	}
	return len(g.occupied)*100 > len(g.nodes)*80
}

// NodeName returns a node's display name, for logging.
func (g *Graph) NodeName(id int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n, ok := g.nodes[id]; ok {
		return n.Name
	}
	return fmt.Sprintf("node-%d", id)
}

// Default builds the small fixed taxiway layout the simulation runs with:
// a linear apron-to-runway chain plus a couple of cross-links, enough to
// give the lifecycle driver a nontrivial path to reserve.
func Default() *Graph {
	g := New()
	names := []string{"apron", "alpha", "bravo", "charlie", "delta", "runway-hold"}
	for i, name := range names {
		g.AddNode(i, name)
	}
	type link struct {
		a, b   int
		weight float64
	}
	links := []link{
		{0, 1, 45},
		{1, 2, 30},
		{2, 3, 30},
		{3, 4, 25},
		{4, 5, 20},
		{1, 3, 50}, // cross-link, shorter under low traffic but contends more
	}
	for _, l := range links {
		g.AddEdge(l.a, l.b, l.weight)
		g.AddEdge(l.b, l.a, l.weight)
	}
	return g
}
