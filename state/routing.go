package state

import (
	"fmt"
	"net/netip"
)

// NodeId is the canonical address of a node, the address of its first interface.
type NodeId = netip.Addr

type Metric uint16

// Link is a directed radio adjacency between two nodes, discovered on one pair of interfaces.
type Link struct {
	Src      NodeId
	Dst      NodeId
	SrcIface netip.Addr
	DstIface netip.Addr
	Metric   Metric
}

func (l Link) String() string {
	return fmt.Sprintf("%s(%s) -> %s(%s) [%d]", l.Src, l.SrcIface, l.Dst, l.DstIface, l.Metric)
}

// Topology maps each node to its neighbours and the best metric towards each of them.
type Topology map[NodeId]map[NodeId]Metric

func (t Topology) Has(src, dst NodeId) bool {
	row, ok := t[src]
	if !ok {
		return false
	}
	_, ok = row[dst]
	return ok
}

// Interface is one radio attachment of a node.
type Interface struct {
	Addr   netip.Addr
	Device Device
}

// Device answers which interface addresses are currently reachable over the radio.
type Device interface {
	Neighbors() []netip.Addr
}

type Node interface {
	Interfaces() []Interface
}
