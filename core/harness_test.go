package core

import (
	"fmt"
	"log/slog"
	"net/netip"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/encodeous/lrr/sim"
	"github.com/encodeous/lrr/state"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func ip(i int) netip.Addr {
	return netip.AddrFrom4([4]byte{10, 0, 0, byte(i)})
}

func testLog(t *testing.T) *slog.Logger {
	logger, closer, err := NewLogger(slog.LevelWarn, t.Name(), "")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = closer.Close()
	})
	return logger
}

type staticDevice struct {
	neighbors []netip.Addr
}

func (d *staticDevice) Neighbors() []netip.Addr {
	return d.neighbors
}

type staticNode struct {
	ifaces []state.Interface
}

func (n *staticNode) Interfaces() []state.Interface {
	return n.ifaces
}

// newStaticNodes builds nodes 10.0.0.1 to 10.0.0.n with one interface each. adj is keyed by host number.
func newStaticNodes(n int, adj map[int][]int) ([]state.Node, []*staticDevice) {
	nodes := make([]state.Node, 0, n)
	devices := make([]*staticDevice, 0, n)
	for i := 1; i <= n; i++ {
		dev := &staticDevice{}
		for _, nb := range adj[i] {
			dev.neighbors = append(dev.neighbors, ip(nb))
		}
		devices = append(devices, dev)
		nodes = append(nodes, &staticNode{ifaces: []state.Interface{{Addr: ip(i), Device: dev}}})
	}
	return nodes, devices
}

func undirected(pairs ...[2]int) map[int][]int {
	adj := make(map[int][]int)
	for _, p := range pairs {
		adj[p[0]] = append(adj[p[0]], p[1])
		adj[p[1]] = append(adj[p[1]], p[0])
	}
	return adj
}

var gridAdj = map[int][]int{
	1: {2, 4},
	2: {1, 5, 3},
	3: {2, 6},
	4: {1, 5},
	5: {2, 4, 6, 7},
	6: {3, 5, 8},
	7: {5, 8},
	8: {6, 7, 9},
	9: {8},
}

//	1 --- 2 --- 3 --- 4
//	|   /
//	|  /
//	5 --- 6 --- 8
//	|
//	7 --- 9
var xAdj = undirected(
	[2]int{1, 2}, [2]int{1, 5}, [2]int{2, 3}, [2]int{2, 5}, [2]int{3, 4},
	[2]int{5, 6}, [2]int{5, 7}, [2]int{6, 8}, [2]int{7, 9},
)

var (
	groupA = netip.MustParseAddr("227.0.0.1")
	groupB = netip.MustParseAddr("227.0.0.2")
)

// newXGraph starts a graph over the nine node fixture with groupA = {1, 4, 7, 8} and groupB = {3, 5, 6, 9}
func newXGraph(t *testing.T) (*Graph, *sim.EventLoop) {
	loop := sim.NewEventLoop()
	groups := NewGroups()
	groups.Set(groupA, []state.NodeId{ip(1), ip(4), ip(7), ip(8)})
	groups.Set(groupB, []state.NodeId{ip(3), ip(5), ip(6), ip(9)})
	g := NewGraph(GraphCfg{UpdatePeriod: time.Second}, loop, groups, testLog(t))
	nodes, _ := newStaticNodes(9, xAdj)
	require.NoError(t, g.Start(nodes))
	return g, loop
}

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

// RouterHarness is a Forwarder that records what the router asked it to do
type RouterHarness struct {
	actions []HarnessEvent
}

func (h *RouterHarness) Forward(route Route, pkt *state.Packet) {
	h.actions = append(h.actions, MakeEvent("FORWARD", route.Source, route.Gateway, pkt.Src, pkt.Dst))
}

func (h *RouterHarness) LocalDeliver(pkt *state.Packet, iface netip.Addr) {
	h.actions = append(h.actions, MakeEvent("DELIVER", iface, pkt.Src, pkt.Dst))
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

func (h *RouterHarness) GetActions() HarnessEvents {
	x := h.actions
	h.actions = make([]HarnessEvent, 0)
	return x
}

func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message != msg || len(event.Args) < len(args) {
			continue
		}
		match := true
		for i, arg := range args {
			if !cmp.Equal(event.Args[i], arg, cmpopts.EquateComparable(netip.Addr{})) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}
