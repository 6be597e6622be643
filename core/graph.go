package core

import (
	"io"
	"log/slog"
	"net/netip"
	"time"

	"github.com/encodeous/lrr/perf"
	"github.com/encodeous/lrr/state"
)

type GraphCfg struct {
	UpdatePeriod time.Duration
}

// Graph is the routing oracle. It rebuilds the topology from every node's neighbour set on a fixed period
// and answers unicast and multicast routing questions from the last consistent rebuild.
type Graph struct {
	cfg     GraphCfg
	log     *slog.Logger
	clock   state.Scheduler
	groups  *Groups
	peering *Peering
	topo    *Topology
	mcast   *McastTable
	timer   state.Handle
	started bool
	// Nodes registered by Init, used when the graph runs as a module
	Nodes []state.Node
}

func NewGraph(cfg GraphCfg, clock state.Scheduler, groups *Groups, log *slog.Logger) *Graph {
	if cfg.UpdatePeriod <= 0 {
		cfg.UpdatePeriod = state.DefaultUpdatePeriod
	}
	return &Graph{
		cfg:     cfg,
		log:     log,
		clock:   clock,
		groups:  groups,
		peering: NewPeering(log),
		topo:    NewTopology(),
		mcast:   NewMcastTable(log),
	}
}

// Start registers every node as a vertex, runs one rebuild and arms the periodic rebuild.
func (g *Graph) Start(nodes []state.Node) error {
	if g.started {
		return state.ErrAlreadyStarted
	}
	defer func() {
		// a duplicate interface aborts registration, leave nothing half registered
		if !g.started {
			g.topo.Clear()
			g.peering.Clear()
		}
	}()
	for _, node := range nodes {
		main, ok := g.peering.AddVertex(node)
		if !ok {
			g.log.Warn("node has no interfaces, it will not be routed")
			continue
		}
		g.topo.AddVertex(main)
	}
	g.started = true
	g.log.Info("graph started", "vertices", g.topo.Len(), "period", g.cfg.UpdatePeriod)
	g.updateEdges()
	return nil
}

func (g *Graph) updateEdges() {
	perf.Ticks.Add(1)
	g.CreateEdges()
	g.timer = g.clock.ScheduleOnce(g.cfg.UpdatePeriod, g.updateEdges)
}

// CreateEdges runs one rebuild pass. Shortest paths are only recomputed when a row changed,
// trees whenever any interface pair changed since they name concrete interfaces.
func (g *Graph) CreateEdges() {
	start := time.Now()
	linksChanged := g.peering.CreateLinks()
	updated := false
	for src, row := range g.peering.Topology() {
		if g.topo.SetEdges(src, row) {
			updated = true
		}
	}
	if !updated {
		if linksChanged {
			g.mcast.Update(g.groups, g.topo, g.peering)
			g.log.Debug("rebuilt multicast trees", "at", g.clock.Now(), "mcast", g.mcast.Len())
		}
		return
	}
	g.topo.FloydWarshall()
	g.mcast.Update(g.groups, g.topo, g.peering)
	elapsed := time.Since(start)
	perf.Recomputes.Add(1)
	perf.RecomputeLatency.Add(float64(elapsed.Microseconds()))
	perf.McastEntries.Add(float64(g.mcast.Len()))
	g.log.Debug("recomputed routes", "at", g.clock.Now(), "elapsed", elapsed, "mcast", g.mcast.Len())
}

// UpdateMcast rebuilds the multicast trees after a membership change without waiting for a topology change
func (g *Graph) UpdateMcast() {
	g.mcast.Update(g.groups, g.topo, g.peering)
}

// Stop cancels the periodic rebuild and forgets all vertices, links and trees. Group membership is kept.
func (g *Graph) Stop() {
	if g.timer != nil {
		g.timer.Cancel()
		g.timer = nil
	}
	g.topo.Clear()
	g.peering.Clear()
	g.mcast.Clear()
	if g.started {
		g.log.Info("graph stopped")
	}
	g.started = false
}

func (g *Graph) Started() bool {
	return g.started
}

func (g *Graph) Init(s *state.State) error {
	return g.Start(g.Nodes)
}

func (g *Graph) Cleanup(s *state.State) error {
	g.Stop()
	return nil
}

// HavePath reports whether a route exists between two distinct nodes, given any of their interface addresses
func (g *Graph) HavePath(from, to netip.Addr) bool {
	src, dst := g.peering.MainAddress(from), g.peering.MainAddress(to)
	if src == dst {
		return false
	}
	return g.topo.HavePath(src, dst)
}

func (g *Graph) PathDistance(from, to netip.Addr) uint32 {
	return g.topo.PathDistance(g.peering.MainAddress(from), g.peering.MainAddress(to))
}

// NextHopMain returns the canonical id of the next node towards to, the zero address if unreachable
func (g *Graph) NextHopMain(from, to netip.Addr) state.NodeId {
	return g.topo.NextHop(g.peering.MainAddress(from), g.peering.MainAddress(to))
}

// UnicastRoute returns the local interface to send from and the neighbour interface to send to.
// It must only be called when HavePath holds.
func (g *Graph) UnicastRoute(from, to netip.Addr) (netip.Addr, netip.Addr) {
	src := g.peering.MainAddress(from)
	hop := g.topo.NextHop(src, g.peering.MainAddress(to))
	if !hop.IsValid() {
		panic(&state.NoLinkError{Src: src, Dst: g.peering.MainAddress(to)})
	}
	l := g.peering.BestLink(src, hop)
	return l.SrcIface, l.DstIface
}

// IsLocalAddress reports whether dst is one of the interfaces of the node owning local
func (g *Graph) IsLocalAddress(dst, local netip.Addr) bool {
	if !g.peering.IsRegistered(dst) {
		return false
	}
	return g.peering.MainAddress(dst) == g.peering.MainAddress(local)
}

// HaveMcastPath reports whether local is a member of group and can reach at least one other member
func (g *Graph) HaveMcastPath(local netip.Addr, group netip.Addr) bool {
	main := g.peering.MainAddress(local)
	if !g.groups.IsMember(main, group) {
		return false
	}
	for _, m := range g.groups.Members(group) {
		if m != main && g.topo.Has(m) && g.topo.HavePath(main, m) {
			return true
		}
	}
	return false
}

func (g *Graph) MulticastRoute(from netip.Addr, group netip.Addr, local netip.Addr) []netip.Addr {
	return g.mcast.Route(g.peering.MainAddress(from), group, g.peering.MainAddress(local))
}

func (g *Graph) IsMcastRetranslator(local, from netip.Addr, group netip.Addr) bool {
	return g.mcast.IsRetranslator(g.peering.MainAddress(local), g.peering.MainAddress(from), group)
}

// Knows reports whether addr is a registered interface
func (g *Graph) Knows(addr netip.Addr) bool {
	return g.peering.IsRegistered(addr)
}

func (g *Graph) MainAddress(iface netip.Addr) state.NodeId {
	return g.peering.MainAddress(iface)
}

func (g *Graph) Groups() *Groups {
	return g.groups
}

func (g *Graph) Peering() *Peering {
	return g.peering
}

func (g *Graph) Topology() *Topology {
	return g.topo
}

func (g *Graph) Print(w io.Writer) error {
	return g.topo.Print(w)
}
