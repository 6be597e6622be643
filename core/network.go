package core

import (
	"fmt"
	"log/slog"
	"net/netip"
	"slices"
	"time"

	"github.com/encodeous/lrr/sim"
	"github.com/encodeous/lrr/state"
)

// SimNode is one simulated host: a set of radios and a Router
type SimNode struct {
	Name   string
	Router *Router
	ifaces []state.Interface
	net    *Network

	Sent      int
	Received  int
	Forwarded int
	NoRoute   int
}

func (n *SimNode) Interfaces() []state.Interface {
	return n.ifaces
}

func (n *SimNode) Main() netip.Addr {
	return n.ifaces[0].Addr
}

func (n *SimNode) Forward(route Route, pkt *state.Packet) {
	n.Forwarded++
	pkt.TTL--
	n.net.transmit(n, route, pkt)
}

func (n *SimNode) LocalDeliver(pkt *state.Packet, iface netip.Addr) {
	n.Received++
	n.net.log.Debug("delivered", "node", n.Name, "iface", iface, "pkt", pkt)
}

// Network wires the scenario nodes to the radio medium and drives the scenario traffic.
type Network struct {
	cfg     *state.ScenarioCfg
	clock   state.Scheduler
	log     *slog.Logger
	Graph   *Graph
	Groups  *Groups
	Medium  *sim.Medium
	Nodes   []*SimNode
	byIface map[netip.Addr]*SimNode
	timers  []state.Handle
	gc      state.Handle
}

// NewNetwork builds the nodes of an expanded scenario. Groups without an address are allocated one and cfg is updated.
func NewNetwork(cfg *state.ScenarioCfg, clock state.Scheduler, log *slog.Logger) *Network {
	n := &Network{
		cfg:     cfg,
		clock:   clock,
		log:     log,
		Groups:  NewGroups(),
		Medium:  sim.NewMedium(clock, cfg.Links),
		byIface: make(map[netip.Addr]*SimNode),
	}
	n.Graph = NewGraph(GraphCfg{UpdatePeriod: cfg.UpdatePeriod}, clock, n.Groups, log)

	for _, nc := range cfg.Nodes {
		node := &SimNode{Name: nc.Name, net: n}
		for _, addr := range nc.Interfaces {
			node.ifaces = append(node.ifaces, state.Interface{Addr: addr, Device: n.Medium.Attach(addr)})
			n.byIface[addr] = node
		}
		if len(node.ifaces) > 0 {
			node.Router = NewRouter(node.Main(), n.Graph, clock, cfg.DedupLifetime, log)
		}
		n.Nodes = append(n.Nodes, node)
	}

	for i := range cfg.Groups {
		grp := &cfg.Groups[i]
		if !grp.Address.IsValid() {
			grp.Address = n.Groups.AllocateAddress()
		}
		members := make([]state.NodeId, 0, len(grp.Members))
		for _, name := range grp.Members {
			if nc := cfg.TryGetNode(name); nc != nil && len(nc.Interfaces) > 0 {
				members = append(members, nc.Interfaces[0])
			}
		}
		n.Groups.Set(grp.Address, members)
		log.Info("registered group", "name", grp.Name, "addr", grp.Address, "members", len(members))
	}
	n.Graph.Nodes = n.StateNodes()
	return n
}

// Config returns the scenario with group addresses filled in
func (n *Network) Config() *state.ScenarioCfg {
	return n.cfg
}

func (n *Network) StateNodes() []state.Node {
	out := make([]state.Node, 0, len(n.Nodes))
	for _, node := range n.Nodes {
		out = append(out, node)
	}
	return out
}

func (n *Network) Node(name string) *SimNode {
	idx := slices.IndexFunc(n.Nodes, func(node *SimNode) bool {
		return node.Name == name
	})
	if idx == -1 {
		return nil
	}
	return n.Nodes[idx]
}

// Send originates a packet at a node
func (n *Network) Send(from *SimNode, dst netip.Addr, ttl uint8, payload []byte) error {
	if from.Router == nil {
		return fmt.Errorf("node %s has no interfaces", from.Name)
	}
	pkt := &state.Packet{
		Src:     from.Main(),
		Dst:     dst,
		TTL:     ttl,
		Payload: payload,
	}
	routes, err := from.Router.RouteOutput(pkt)
	if err != nil {
		from.NoRoute++
		return fmt.Errorf("%s -> %s: %w", from.Name, dst, err)
	}
	from.Sent++
	for _, route := range routes {
		n.transmit(from, route, pkt.Clone())
	}
	return nil
}

// transmit puts a packet on the air. It arrives HopDelay later at every interface that can hear it then.
func (n *Network) transmit(from *SimNode, route Route, pkt *state.Packet) {
	n.clock.ScheduleOnce(n.cfg.HopDelay, func() {
		for _, rx := range n.Medium.Receivers(route.Source) {
			if !route.IsBroadcast() && rx != route.Gateway {
				continue
			}
			node, ok := n.byIface[rx]
			if !ok || node.Router == nil {
				continue
			}
			if !node.Router.RouteInput(pkt.Clone(), rx, node) {
				n.log.Debug("dropped, no route", "node", node.Name, "from", from.Name, "pkt", pkt)
			}
		}
	})
}

func (n *Network) scheduleTraffic() error {
	for _, t := range n.cfg.Traffic {
		from := n.Node(t.From)
		if from == nil {
			return fmt.Errorf("traffic source %s not defined", t.From)
		}
		dst, err := n.cfg.ResolveTarget(t.To)
		if err != nil {
			return err
		}
		for i := 0; i < t.Count; i++ {
			ttl := t.TTL
			n.timers = append(n.timers, n.clock.ScheduleOnce(t.At+t.Interval*time.Duration(i), func() {
				if err := n.Send(from, dst, ttl, nil); err != nil {
					n.log.Debug("send failed", "error", err)
				}
			}))
		}
	}
	return nil
}

func (n *Network) purge() {
	for _, node := range n.Nodes {
		if node.Router != nil {
			node.Router.Purge()
		}
	}
	n.gc = n.clock.ScheduleOnce(n.cfg.DedupLifetime, n.purge)
}

func (n *Network) Init(s *state.State) error {
	if err := n.scheduleTraffic(); err != nil {
		return err
	}
	n.gc = n.clock.ScheduleOnce(n.cfg.DedupLifetime, n.purge)
	return nil
}

func (n *Network) Cleanup(s *state.State) error {
	for _, h := range n.timers {
		h.Cancel()
	}
	n.timers = nil
	if n.gc != nil {
		n.gc.Cancel()
		n.gc = nil
	}
	return nil
}

type NodeReport struct {
	Name      string
	Main      netip.Addr
	Sent      int
	Received  int
	Forwarded int
	NoRoute   int
}

func (n *Network) Report() []NodeReport {
	out := make([]NodeReport, 0, len(n.Nodes))
	for _, node := range n.Nodes {
		r := NodeReport{
			Name:      node.Name,
			Sent:      node.Sent,
			Received:  node.Received,
			Forwarded: node.Forwarded,
			NoRoute:   node.NoRoute,
		}
		if len(node.ifaces) > 0 {
			r.Main = node.Main()
		}
		out = append(out, r)
	}
	return out
}
