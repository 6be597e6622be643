package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/encodeous/lrr/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridTopology() *Topology {
	topo := NewTopology()
	for i := 1; i <= 10; i++ {
		topo.AddVertex(ip(i))
	}
	for src, dsts := range gridAdj {
		edges := make(map[state.NodeId]state.Metric)
		for _, dst := range dsts {
			edges[ip(dst)] = state.HopMetric
		}
		topo.SetEdges(ip(src), edges)
	}
	topo.FloydWarshall()
	return topo
}

const gridDot = `# Network topology as seen by vertex 10.0.0.1
digraph G {
	"10.0.0.1" [label="10.0.0.1", shape=box];
	"10.0.0.1" -> "10.0.0.2" [label="1"];
	"10.0.0.1" -> "10.0.0.4" [label="1"];
	"10.0.0.2" [label="10.0.0.2"];
	"10.0.0.2" -> "10.0.0.1" [label="1"];
	"10.0.0.2" -> "10.0.0.3" [label="1"];
	"10.0.0.2" -> "10.0.0.5" [label="1"];
	"10.0.0.3" [label="10.0.0.3"];
	"10.0.0.3" -> "10.0.0.2" [label="1"];
	"10.0.0.3" -> "10.0.0.6" [label="1"];
	"10.0.0.4" [label="10.0.0.4"];
	"10.0.0.4" -> "10.0.0.1" [label="1"];
	"10.0.0.4" -> "10.0.0.5" [label="1"];
	"10.0.0.5" [label="10.0.0.5"];
	"10.0.0.5" -> "10.0.0.2" [label="1"];
	"10.0.0.5" -> "10.0.0.4" [label="1"];
	"10.0.0.5" -> "10.0.0.6" [label="1"];
	"10.0.0.5" -> "10.0.0.7" [label="1"];
	"10.0.0.6" [label="10.0.0.6"];
	"10.0.0.6" -> "10.0.0.3" [label="1"];
	"10.0.0.6" -> "10.0.0.5" [label="1"];
	"10.0.0.6" -> "10.0.0.8" [label="1"];
	"10.0.0.7" [label="10.0.0.7"];
	"10.0.0.7" -> "10.0.0.5" [label="1"];
	"10.0.0.7" -> "10.0.0.8" [label="1"];
	"10.0.0.8" [label="10.0.0.8"];
	"10.0.0.8" -> "10.0.0.6" [label="1"];
	"10.0.0.8" -> "10.0.0.7" [label="1"];
	"10.0.0.8" -> "10.0.0.9" [label="1"];
	"10.0.0.9" [label="10.0.0.9"];
	"10.0.0.9" -> "10.0.0.8" [label="1"];
	"10.0.0.10" [label="10.0.0.10"];
};
`

func TestTopologyPrint(t *testing.T) {
	topo := gridTopology()
	sb := strings.Builder{}
	require.NoError(t, topo.Print(&sb))
	if diff := cmp.Diff(gridDot, sb.String()); diff != "" {
		t.Errorf("dot output mismatch (-want +got):\n%s", diff)
	}
}

func TestTopologyPrintEmpty(t *testing.T) {
	sb := strings.Builder{}
	require.NoError(t, NewTopology().Print(&sb))
	assert.Equal(t, "# Network topology is empty\ndigraph G {\n};\n", sb.String())
}

func TestTopologyNextHops(t *testing.T) {
	topo := gridTopology()
	// row i is the next hop out of 10.0.0.i towards 10.0.0.1 .. 10.0.0.10, 0 when unreachable
	want := [][]int{
		{1, 2, 2, 4, 2, 2, 2, 2, 2, 0},
		{1, 2, 3, 1, 5, 3, 5, 3, 3, 0},
		{2, 2, 3, 2, 2, 6, 2, 6, 6, 0},
		{1, 1, 1, 4, 5, 5, 5, 5, 5, 0},
		{2, 2, 2, 4, 5, 6, 7, 6, 6, 0},
		{3, 3, 3, 5, 5, 6, 5, 8, 8, 0},
		{5, 5, 5, 5, 5, 5, 7, 8, 8, 0},
		{6, 6, 6, 6, 6, 6, 7, 8, 9, 0},
		{8, 8, 8, 8, 8, 8, 8, 8, 9, 0},
		{0, 0, 0, 0, 0, 0, 0, 0, 0, 10},
	}
	got := make([][]int, 10)
	for i := range got {
		got[i] = make([]int, 10)
		for j := range got[i] {
			hop := topo.NextHop(ip(i+1), ip(j+1))
			if hop.IsValid() {
				got[i][j] = int(hop.As4()[3])
			}
		}
	}
	assert.Equal(t, want, got)
}

func TestTopologyDistances(t *testing.T) {
	topo := gridTopology()
	want := []uint32{0, 1, 2, 1, 2, 3, 3, 4, 5, state.INF}
	for j, d := range want {
		assert.Equal(t, d, topo.PathDistance(ip(1), ip(j+1)), "distance to %s", ip(j+1))
	}
	assert.False(t, topo.HavePath(ip(1), ip(10)))
	assert.False(t, topo.HavePath(ip(10), ip(1)))
	assert.True(t, topo.HavePath(ip(10), ip(10)))
}

func TestTopologyNextHopWalk(t *testing.T) {
	topo := gridTopology()
	for _, src := range topo.Vertices() {
		for _, dst := range topo.Vertices() {
			if !topo.HavePath(src, dst) {
				assert.False(t, topo.NextHop(src, dst).IsValid())
				continue
			}
			steps := uint32(0)
			for cur := src; cur != dst; steps++ {
				hop := topo.NextHop(cur, dst)
				require.True(t, hop.IsValid(), "walk %s -> %s stuck at %s", src, dst, cur)
				assert.Contains(t, gridAdj[int(cur.As4()[3])], int(hop.As4()[3]), "%s -> %s is not an edge", cur, hop)
				require.Less(t, steps, uint32(topo.Len()))
				cur = hop
			}
			assert.Equal(t, topo.PathDistance(src, dst), steps)
		}
	}
}

func TestTopologyWeighted(t *testing.T) {
	topo := NewTopology()
	a, b, c := ip(1), ip(2), ip(3)
	topo.AddVertex(a)
	topo.AddVertex(b)
	topo.AddVertex(c)
	topo.SetEdges(a, map[state.NodeId]state.Metric{b: 5, c: 1})
	topo.SetEdges(c, map[state.NodeId]state.Metric{b: 1})
	topo.FloydWarshall()

	assert.Equal(t, c, topo.NextHop(a, b))
	assert.Equal(t, uint32(2), topo.PathDistance(a, b))
	// edges are directed
	assert.False(t, topo.HavePath(b, a))
	assert.False(t, topo.NextHop(b, a).IsValid())
	assert.Equal(t, b, topo.NextHop(b, b))
}

func TestTopologySetEdges(t *testing.T) {
	topo := NewTopology()
	topo.AddVertex(ip(1))
	topo.AddVertex(ip(2))

	assert.False(t, topo.SetEdges(ip(1), nil))
	assert.True(t, topo.SetEdges(ip(1), map[state.NodeId]state.Metric{ip(2): 1}))
	assert.False(t, topo.SetEdges(ip(1), map[state.NodeId]state.Metric{ip(2): 1}))
	assert.True(t, topo.SetEdges(ip(1), map[state.NodeId]state.Metric{ip(2): 3}))
	// self loops are ignored
	assert.False(t, topo.SetEdges(ip(2), map[state.NodeId]state.Metric{ip(2): 1}))

	assert.PanicsWithError(t, "unknown vertex 10.0.0.9", func() {
		topo.SetEdges(ip(9), nil)
	})
	defer func() {
		r := recover()
		var le *state.LookupError
		require.True(t, errors.As(r.(error), &le))
		assert.Equal(t, ip(9), le.Addr)
	}()
	topo.PathDistance(ip(1), ip(9))
}

func TestAddDistance(t *testing.T) {
	assert.Equal(t, uint32(7), AddDistance(3, 4))
	assert.Equal(t, state.INF, AddDistance(state.INF, 0))
	assert.Equal(t, state.INF, AddDistance(1, state.INF))
	assert.Equal(t, state.INFM, AddDistance(state.INFM, 1))
	assert.Equal(t, state.INFM, AddDistance(state.INFM-1, state.INFM-1))
}

func TestTopologyClear(t *testing.T) {
	topo := gridTopology()
	topo.Clear()
	assert.Equal(t, 0, topo.Len())
	assert.False(t, topo.Has(ip(1)))
	topo.AddVertex(ip(1))
	topo.FloydWarshall()
	assert.Equal(t, ip(1), topo.NextHop(ip(1), ip(1)))
}
