package core

import (
	"log/slog"
	"maps"
	"net/netip"
	"slices"

	"github.com/encodeous/lrr/perf"
	"github.com/encodeous/lrr/state"
	"github.com/gaissmai/bart"
)

// LinkObserver is told about every node pair whose link set became non-empty (up) or empty (!up).
type LinkObserver func(src, dst state.NodeId, up bool)

type peer struct {
	main   state.NodeId
	ifaces []state.Interface
}

// Peering owns the interface to node translation and the links discovered on the last pass.
type Peering struct {
	log   *slog.Logger
	peers []peer
	// host prefix of every registered interface -> canonical id
	ifaces    bart.Table[state.NodeId]
	links     map[state.Pair[state.NodeId, state.NodeId]][]state.Link
	topology  state.Topology
	observers []LinkObserver
}

func NewPeering(log *slog.Logger) *Peering {
	return &Peering{
		log:      log,
		links:    make(map[state.Pair[state.NodeId, state.NodeId]][]state.Link),
		topology: make(state.Topology),
	}
}

func hostPrefix(addr netip.Addr) netip.Prefix {
	return netip.PrefixFrom(addr, addr.BitLen())
}

// AddVertex registers the interfaces of a node. The first interface names the node.
func (p *Peering) AddVertex(node state.Node) (state.NodeId, bool) {
	ifaces := slices.Clone(node.Interfaces())
	if len(ifaces) == 0 {
		return netip.Addr{}, false
	}
	main := ifaces[0].Addr
	for _, iface := range ifaces {
		if owner, ok := p.ifaces.Get(hostPrefix(iface.Addr)); ok {
			panic(&state.LookupError{Kind: "duplicate interface (owned by " + owner.String() + ")", Addr: iface.Addr})
		}
		p.ifaces.Insert(hostPrefix(iface.Addr), main)
	}
	p.peers = append(p.peers, peer{main: main, ifaces: ifaces})
	p.topology[main] = make(map[state.NodeId]state.Metric)
	return main, true
}

func (p *Peering) lookup(addr netip.Addr) (state.NodeId, bool) {
	if !addr.IsValid() {
		return netip.Addr{}, false
	}
	return p.ifaces.Get(hostPrefix(addr))
}

// MainAddress returns the canonical id owning an interface, unknown addresses abort the run
func (p *Peering) MainAddress(iface netip.Addr) state.NodeId {
	main, ok := p.lookup(iface)
	if !ok {
		panic(&state.LookupError{Kind: "interface", Addr: iface})
	}
	return main
}

func (p *Peering) IsRegistered(iface netip.Addr) bool {
	_, ok := p.lookup(iface)
	return ok
}

// CreateLinks asks every interface for its neighbours and replaces the link set in one step.
// It reports whether any interface pair appeared or disappeared.
func (p *Peering) CreateLinks() bool {
	links := make(map[state.Pair[state.NodeId, state.NodeId]][]state.Link)
	topo := make(state.Topology, len(p.peers))
	for _, pr := range p.peers {
		row := make(map[state.NodeId]state.Metric)
		topo[pr.main] = row
		for _, iface := range pr.ifaces {
			if iface.Device == nil {
				continue
			}
			for _, nb := range iface.Device.Neighbors() {
				dst, ok := p.lookup(nb)
				if !ok {
					p.log.Warn("neighbour is not a registered interface", "iface", iface.Addr, "neighbour", nb)
					continue
				}
				if dst == pr.main {
					continue
				}
				l := state.Link{
					Src:      pr.main,
					Dst:      dst,
					SrcIface: iface.Addr,
					DstIface: nb,
					Metric:   state.HopMetric,
				}
				key := state.Pair[state.NodeId, state.NodeId]{V1: pr.main, V2: dst}
				links[key] = append(links[key], l)
				if m, ok := row[dst]; !ok || l.Metric < m {
					row[dst] = l.Metric
				}
			}
		}
	}
	old := p.topology
	changed := !maps.EqualFunc(p.links, links, slices.Equal[[]state.Link])
	p.links = links
	p.topology = topo
	p.diffAndNotify(old, topo)
	return changed
}

func (p *Peering) diffAndNotify(old, cur state.Topology) {
	for _, src := range p.peers {
		for _, dst := range p.peers {
			was, is := old.Has(src.main, dst.main), cur.Has(src.main, dst.main)
			if was == is {
				continue
			}
			if is {
				perf.LinksOpened.Add(1)
				p.log.Debug("link opened", "src", src.main, "dst", dst.main)
			} else {
				perf.LinksClosed.Add(1)
				p.log.Debug("link closed", "src", src.main, "dst", dst.main)
			}
			for _, obs := range p.observers {
				obs(src.main, dst.main, is)
			}
		}
	}
}

func (p *Peering) Subscribe(obs LinkObserver) {
	p.observers = append(p.observers, obs)
}

// LinksBetween returns every parallel link from src to dst
func (p *Peering) LinksBetween(src, dst state.NodeId) ([]state.Link, error) {
	links := p.links[state.Pair[state.NodeId, state.NodeId]{V1: src, V2: dst}]
	if len(links) == 0 {
		return nil, &state.NoLinkError{Src: src, Dst: dst}
	}
	return slices.Clone(links), nil
}

// BestLink returns the lowest metric link from src to dst, the first discovered wins ties.
// The caller must know a link exists, a missing one aborts the run.
func (p *Peering) BestLink(src, dst state.NodeId) state.Link {
	links, err := p.LinksBetween(src, dst)
	if err != nil {
		panic(err)
	}
	best := links[0]
	for _, l := range links[1:] {
		if l.Metric < best.Metric {
			best = l
		}
	}
	return best
}

// Topology returns a copy of the best metric between every pair of linked nodes
func (p *Peering) Topology() state.Topology {
	out := make(state.Topology, len(p.topology))
	for src, row := range p.topology {
		cp := make(map[state.NodeId]state.Metric, len(row))
		for dst, m := range row {
			cp[dst] = m
		}
		out[src] = cp
	}
	return out
}

// Mains returns the canonical ids in registration order
func (p *Peering) Mains() []state.NodeId {
	out := make([]state.NodeId, 0, len(p.peers))
	for _, pr := range p.peers {
		out = append(out, pr.main)
	}
	return out
}

func (p *Peering) Clear() {
	p.peers = nil
	p.ifaces = bart.Table[state.NodeId]{}
	p.links = make(map[state.Pair[state.NodeId, state.NodeId]][]state.Link)
	p.topology = make(state.Topology)
}
