package core

import (
	"net/netip"
	"slices"

	"github.com/encodeous/lrr/state"
)

// Groups is the multicast membership directory shared by every node of one simulation.
type Groups struct {
	groups    map[netip.Addr]map[state.NodeId]struct{}
	allocated int
}

func NewGroups() *Groups {
	return &Groups{
		groups: make(map[netip.Addr]map[state.NodeId]struct{}),
	}
}

// AllocateAddress hands out the next unused group address from the multicast pool.
// Running out of addresses is a scenario error and aborts the run.
func (g *Groups) AllocateAddress() netip.Addr {
	for {
		if g.allocated+1 >= state.McastPoolLimit {
			panic(state.ErrGroupPoolExhausted)
		}
		g.allocated++
		b := state.McastBase.As4()
		b[3] = byte(g.allocated)
		addr := netip.AddrFrom4(b)
		if _, used := g.groups[addr]; !used {
			return addr
		}
	}
}

// Set registers a group, replacing any previous member set
func (g *Groups) Set(group netip.Addr, members []state.NodeId) {
	set := make(map[state.NodeId]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	g.groups[group] = set
}

func (g *Groups) Remove(group netip.Addr) {
	delete(g.groups, group)
}

func (g *Groups) IsMember(node state.NodeId, group netip.Addr) bool {
	members, ok := g.groups[group]
	if !ok {
		return false
	}
	_, ok = members[node]
	return ok
}

func (g *Groups) Has(group netip.Addr) bool {
	_, ok := g.groups[group]
	return ok
}

// Members returns the sorted member set, empty if the group does not exist
func (g *Groups) Members(group netip.Addr) []state.NodeId {
	members := make([]state.NodeId, 0, len(g.groups[group]))
	for m := range g.groups[group] {
		members = append(members, m)
	}
	slices.SortFunc(members, netip.Addr.Compare)
	return members
}

// Groups returns every registered group address in order
func (g *Groups) Groups() []netip.Addr {
	out := make([]netip.Addr, 0, len(g.groups))
	for grp := range g.groups {
		out = append(out, grp)
	}
	slices.SortFunc(out, netip.Addr.Compare)
	return out
}

func (g *Groups) Clear() {
	g.groups = make(map[netip.Addr]map[state.NodeId]struct{})
	g.allocated = 0
}
