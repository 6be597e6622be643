package core

import (
	"log/slog"
	"net/netip"
	"slices"

	"github.com/encodeous/lrr/state"
)

type mcastKey struct {
	node   state.NodeId
	group  netip.Addr
	source state.NodeId
}

// McastTable holds one shortest path tree per (group, source member), stored as the outgoing interfaces of every node on it.
type McastTable struct {
	log     *slog.Logger
	entries map[mcastKey]map[netip.Addr]struct{}
}

func NewMcastTable(log *slog.Logger) *McastTable {
	return &McastTable{
		log:     log,
		entries: make(map[mcastKey]map[netip.Addr]struct{}),
	}
}

func (m *McastTable) add(key mcastKey, iface netip.Addr) {
	set, ok := m.entries[key]
	if !ok {
		set = make(map[netip.Addr]struct{})
		m.entries[key] = set
	}
	set[iface] = struct{}{}
}

// Update throws away every tree and rebuilds them from the current shortest paths.
// Members without a path from the source are left out of that source's tree.
func (m *McastTable) Update(groups *Groups, topo *Topology, peering *Peering) {
	m.entries = make(map[mcastKey]map[netip.Addr]struct{})
	for _, grp := range groups.Groups() {
		members := groups.Members(grp)
		for _, src := range members {
			if !topo.Has(src) {
				m.log.Debug("multicast source is not in the graph", "group", grp, "src", src)
				continue
			}
			for _, dst := range members {
				if dst == src {
					continue
				}
				if !topo.Has(dst) || !topo.HavePath(src, dst) {
					m.log.Debug("multicast leaf unreachable", "group", grp, "src", src, "dst", dst)
					continue
				}
				key := mcastKey{group: grp, source: src}
				for cur := src; cur != dst; {
					hop := topo.NextHop(cur, dst)
					key.node = cur
					m.add(key, peering.BestLink(cur, hop).SrcIface)
					cur = hop
				}
			}
		}
	}
}

// Route returns the interfaces local sends traffic of the tree rooted at from out of.
func (m *McastTable) Route(from state.NodeId, group netip.Addr, local state.NodeId) []netip.Addr {
	set := m.entries[mcastKey{node: local, group: group, source: from}]
	out := make([]netip.Addr, 0, len(set))
	for iface := range set {
		out = append(out, iface)
	}
	slices.SortFunc(out, netip.Addr.Compare)
	return out
}

// IsRetranslator reports whether local relays the tree rooted at from. A source never relays its own tree.
func (m *McastTable) IsRetranslator(local, from state.NodeId, group netip.Addr) bool {
	if local == from {
		return false
	}
	return len(m.entries[mcastKey{node: local, group: group, source: from}]) > 0
}

func (m *McastTable) Len() int {
	return len(m.entries)
}

func (m *McastTable) Clear() {
	m.entries = make(map[mcastKey]map[netip.Addr]struct{})
}
