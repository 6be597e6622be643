package state

import (
	"errors"
	"fmt"
	"net/netip"
)

var (
	ErrAlreadyStarted     = errors.New("graph is already started")
	ErrGroupPoolExhausted = errors.New("multicast address pool exhausted")
	ErrNoRoute            = errors.New("no route to host")
)

// LookupError means an address was never registered. It is a setup error and aborts the run.
type LookupError struct {
	Kind string
	Addr netip.Addr
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("unknown %s %s", e.Kind, e.Addr)
}

// NoLinkError means the graph selected a next hop that has no backing link.
type NoLinkError struct {
	Src NodeId
	Dst NodeId
}

func (e *NoLinkError) Error() string {
	return fmt.Sprintf("no link between %s and %s", e.Src, e.Dst)
}
