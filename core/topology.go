package core

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"

	"github.com/encodeous/lrr/state"
)

// Topology is the adjacency matrix over canonical node ids and the all-pairs shortest path tables derived from it.
// Vertex indices follow insertion order and never change during a run.
type Topology struct {
	vertices []state.NodeId
	index    map[state.NodeId]int
	// adj[i][j] is the metric of the edge i -> j, INF if absent
	adj [][]uint32
	// dist and next are rebuilt wholesale by FloydWarshall
	dist [][]uint32
	next [][]int
}

func NewTopology() *Topology {
	return &Topology{
		index: make(map[state.NodeId]int),
	}
}

func newMatrix[T any](n int, fill func(i, j int) T) [][]T {
	m := make([][]T, n)
	for i := range m {
		m[i] = make([]T, n)
		for j := range m[i] {
			m[i][j] = fill(i, j)
		}
	}
	return m
}

func unlinked(i, j int) uint32 {
	if i == j {
		return 0
	}
	return state.INF
}

func (t *Topology) mustIndex(id state.NodeId) int {
	idx, ok := t.index[id]
	if !ok {
		panic(&state.LookupError{Kind: "vertex", Addr: id})
	}
	return idx
}

// AddVertex appends a vertex. All edges are forgotten, callers set them again afterwards.
func (t *Topology) AddVertex(id state.NodeId) {
	if _, ok := t.index[id]; ok {
		panic(fmt.Errorf("vertex %s added twice", id))
	}
	t.index[id] = len(t.vertices)
	t.vertices = append(t.vertices, id)
	n := len(t.vertices)
	t.adj = newMatrix(n, unlinked)
	t.dist = newMatrix(n, unlinked)
	t.next = newMatrix(n, func(i, j int) int {
		if i == j {
			return i
		}
		return -1
	})
}

// SetEdges replaces the outgoing edges of src and reports whether anything changed.
func (t *Topology) SetEdges(src state.NodeId, edges map[state.NodeId]state.Metric) bool {
	i := t.mustIndex(src)
	row := make([]uint32, len(t.vertices))
	for j := range row {
		row[j] = unlinked(i, j)
	}
	for dst, metric := range edges {
		j := t.mustIndex(dst)
		if i != j {
			row[j] = uint32(metric)
		}
	}
	updated := false
	for j := range row {
		if row[j] != t.adj[i][j] {
			updated = true
			break
		}
	}
	t.adj[i] = row
	return updated
}

// AddDistance adds two distances, INF absorbs and finite sums saturate at INFM
func AddDistance(a, b uint32) uint32 {
	if a == state.INF || b == state.INF {
		return state.INF
	}
	return uint32(min(uint64(state.INFM), uint64(a)+uint64(b)))
}

// FloydWarshall recomputes all shortest distances and the first hop out of every vertex towards every other vertex.
func (t *Topology) FloydWarshall() {
	n := len(t.vertices)
	dist := newMatrix(n, func(i, j int) uint32 {
		return t.adj[i][j]
	})
	// via[i][j] is a vertex on the best known path from i to j, or i itself for a direct edge
	via := newMatrix(n, func(i, j int) int {
		if i != j && dist[i][j] != state.INF {
			return i
		}
		return -1
	})

	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if dist[i][k] == state.INF {
				continue
			}
			for j := 0; j < n; j++ {
				d := AddDistance(dist[i][k], dist[k][j])
				if d < dist[i][j] {
					dist[i][j] = d
					via[i][j] = k
				}
			}
		}
	}

	// descend into the i -> via[i][j] half until reaching a direct neighbour of i
	next := newMatrix(n, func(i, j int) int {
		if i == j {
			return i
		}
		if dist[i][j] == state.INF {
			return -1
		}
		hop := j
		for via[i][hop] != i {
			hop = via[i][hop]
		}
		return hop
	})
	t.dist = dist
	t.next = next
}

func (t *Topology) HavePath(from, to state.NodeId) bool {
	return t.PathDistance(from, to) != state.INF
}

// PathDistance returns the shortest distance, or INF if there is no path
func (t *Topology) PathDistance(from, to state.NodeId) uint32 {
	return t.dist[t.mustIndex(from)][t.mustIndex(to)]
}

// NextHop returns the neighbour of from on the shortest path to to.
// NextHop(x, x) is x, an unreachable destination yields the zero address.
func (t *Topology) NextHop(from, to state.NodeId) state.NodeId {
	hop := t.next[t.mustIndex(from)][t.mustIndex(to)]
	if hop == -1 {
		return netip.Addr{}
	}
	return t.vertices[hop]
}

func (t *Topology) Has(id state.NodeId) bool {
	_, ok := t.index[id]
	return ok
}

func (t *Topology) Vertices() []state.NodeId {
	return append([]state.NodeId(nil), t.vertices...)
}

func (t *Topology) Len() int {
	return len(t.vertices)
}

func (t *Topology) Clear() {
	t.vertices = nil
	t.index = make(map[state.NodeId]int)
	t.adj = nil
	t.dist = nil
	t.next = nil
}

// Print writes the graph as graphviz dot, the first vertex is drawn as a box.
func (t *Topology) Print(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if len(t.vertices) == 0 {
		fmt.Fprintf(bw, "# Network topology is empty\n")
		fmt.Fprintf(bw, "digraph G {\n};\n")
		return bw.Flush()
	}
	origin := t.vertices[0]
	fmt.Fprintf(bw, "# Network topology as seen by vertex %s\n", origin)
	fmt.Fprintf(bw, "digraph G {\n")
	for i, addr := range t.vertices {
		fmt.Fprintf(bw, "\t\"%s\" [label=\"%s\"", addr, addr)
		if addr == origin {
			fmt.Fprintf(bw, ", shape=box")
		}
		fmt.Fprintf(bw, "];\n")
		for j, metric := range t.adj[i] {
			if i != j && metric != state.INF {
				fmt.Fprintf(bw, "\t\"%s\" -> \"%s\" [label=\"%d\"];\n", addr, t.vertices[j], metric)
			}
		}
	}
	fmt.Fprintf(bw, "};\n")
	return bw.Flush()
}
