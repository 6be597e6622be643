package core

import (
	"log/slog"
	"net/netip"
	"time"

	"github.com/encodeous/lrr/perf"
	"github.com/encodeous/lrr/state"
)

// Route is the outcome of a forwarding decision
type Route struct {
	Dst netip.Addr
	// Source is the local interface the packet leaves from
	Source netip.Addr
	// Gateway is the neighbour interface to hand the packet to, invalid when the packet is broadcast on Source
	Gateway netip.Addr
}

func (r Route) IsBroadcast() bool {
	return !r.Gateway.IsValid()
}

// Forwarder carries out the decisions RouteInput makes
type Forwarder interface {
	Forward(route Route, pkt *state.Packet)
	LocalDeliver(pkt *state.Packet, iface netip.Addr)
}

// Router is the per-node routing logic layered over the shared Graph
type Router struct {
	Local netip.Addr
	graph *Graph
	dpd   *DuplicateDetection
	log   *slog.Logger
}

func NewRouter(local netip.Addr, graph *Graph, clock state.Scheduler, dedupLifetime time.Duration, log *slog.Logger) *Router {
	return &Router{
		Local: local,
		graph: graph,
		dpd:   NewDuplicateDetection(clock, dedupLifetime),
		log:   log.With("node", local),
	}
}

// RouteOutput picks the routes for a locally originated packet. A multicast packet leaves on
// every interface of the sender's own tree, a unicast packet on exactly one.
func (r *Router) RouteOutput(pkt *state.Packet) ([]Route, error) {
	dst := pkt.Dst
	if dst.IsMulticast() {
		if r.graph.HaveMcastPath(r.Local, dst) {
			if routes := r.multicast(r.Local, dst); len(routes) > 0 {
				r.dpd.PrepareTx(pkt)
				return routes, nil
			}
		}
	} else if r.graph.Knows(dst) && r.graph.HavePath(r.Local, dst) {
		return []Route{r.unicast(pkt)}, nil
	}
	r.log.Debug("no route to host", "dst", dst)
	return nil, state.ErrNoRoute
}

func (r *Router) multicast(origin, group netip.Addr) []Route {
	ifaces := r.graph.MulticastRoute(origin, group, r.Local)
	routes := make([]Route, 0, len(ifaces))
	for _, out := range ifaces {
		routes = append(routes, Route{Dst: group, Source: out})
	}
	return routes
}

func (r *Router) unicast(pkt *state.Packet) Route {
	src, gw := r.graph.UnicastRoute(r.Local, pkt.Dst)
	return Route{Dst: pkt.Dst, Source: src, Gateway: gw}
}

// RouteInput handles a packet received on iface. It returns false if the packet could not be handled.
func (r *Router) RouteInput(pkt *state.Packet, iface netip.Addr, fw Forwarder) bool {
	dst, origin := pkt.Dst, pkt.Src
	if origin == r.Local {
		r.log.Debug("drop own packet", "pkt", pkt)
		return true
	}

	if dst.IsMulticast() {
		if r.dpd.IsDuplicate(pkt) {
			r.log.Debug("drop duplicate", "pkt", pkt)
			perf.PacketsDropped.Add(1)
			return true
		}
		if r.graph.Groups().IsMember(r.graph.MainAddress(r.Local), dst) {
			perf.PacketsDelivered.Add(1)
			fw.LocalDeliver(pkt, iface)
		}
		if pkt.TTL <= 1 {
			r.log.Debug("ttl exceeded", "pkt", pkt)
			perf.PacketsDropped.Add(1)
			return true
		}
		if !r.graph.Knows(origin) || !r.graph.IsMcastRetranslator(r.Local, origin, dst) {
			return true
		}
		for _, route := range r.multicast(origin, dst) {
			r.log.Debug("forward multicast", "pkt", pkt, "iface", route.Source)
			perf.PacketsForwarded.Add(1)
			fw.Forward(route, pkt.Clone())
		}
		return true
	}

	if r.graph.IsLocalAddress(dst, r.Local) {
		perf.PacketsDelivered.Add(1)
		fw.LocalDeliver(pkt, iface)
		return true
	}
	if r.graph.Knows(dst) && r.graph.HavePath(r.Local, dst) {
		route := r.unicast(pkt)
		r.log.Debug("forward unicast", "pkt", pkt, "gateway", route.Gateway)
		perf.PacketsForwarded.Add(1)
		fw.Forward(route, pkt)
		return true
	}
	perf.PacketsDropped.Add(1)
	return false
}

// Purge forgets expired duplicate records
func (r *Router) Purge() {
	r.dpd.Purge()
}
