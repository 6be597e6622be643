package state

import (
	"fmt"
	"net/netip"
)

// Packet is the network-layer view of a datagram the router makes decisions on.
type Packet struct {
	Src netip.Addr
	Dst netip.Addr
	TTL uint8
	// Seq is only meaningful when Tagged is set
	Seq     uint32
	Tagged  bool
	Payload []byte
}

func (p *Packet) String() string {
	if p.Tagged {
		return fmt.Sprintf("%s -> %s (ttl: %d, seq: %d)", p.Src, p.Dst, p.TTL, p.Seq)
	}
	return fmt.Sprintf("%s -> %s (ttl: %d)", p.Src, p.Dst, p.TTL)
}

// Clone returns a copy that can be handed to another node.
func (p *Packet) Clone() *Packet {
	c := *p
	return &c
}
