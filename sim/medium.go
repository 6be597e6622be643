package sim

import (
	"net/netip"
	"slices"

	"github.com/encodeous/lrr/state"
)

// Medium is the radio model of a scenario. Which interfaces hear each other is decided by the link schedule alone.
type Medium struct {
	clock state.Scheduler
	links []state.LinkCfg
}

func NewMedium(clock state.Scheduler, links []state.LinkCfg) *Medium {
	return &Medium{
		clock: clock,
		links: slices.Clone(links),
	}
}

// Receivers returns the interfaces a transmission on iface reaches right now, in address order
func (m *Medium) Receivers(iface netip.Addr) []netip.Addr {
	now := m.clock.Now()
	out := make([]netip.Addr, 0)
	for _, l := range m.links {
		if !l.ActiveAt(now) {
			continue
		}
		if l.A == iface {
			out = append(out, l.B)
		} else if !l.Directed && l.B == iface {
			out = append(out, l.A)
		}
	}
	slices.SortFunc(out, netip.Addr.Compare)
	return slices.Compact(out)
}

func (m *Medium) Reaches(from, to netip.Addr) bool {
	return slices.Contains(m.Receivers(from), to)
}

// SetLinks replaces the link schedule
func (m *Medium) SetLinks(links []state.LinkCfg) {
	m.links = slices.Clone(links)
}

// Radio is one interface attached to the medium
type Radio struct {
	Addr   netip.Addr
	medium *Medium
}

func (m *Medium) Attach(addr netip.Addr) *Radio {
	return &Radio{Addr: addr, medium: m}
}

func (r *Radio) Neighbors() []netip.Addr {
	return r.medium.Receivers(r.Addr)
}
