package state

import (
	"net/netip"
	"time"
)

const (
	// INF is the distance between two vertices with no path
	INF = ^(uint32)(0)
	// INFM is the largest finite distance, sums saturate here
	INFM = INF - 1
	// HopMetric is the cost of a discovered radio link
	HopMetric = Metric(1)
)

var (
	DefaultUpdatePeriod = time.Second * 1
	DedupLifetime       = time.Second * 10
	DefaultHopDelay     = time.Millisecond * 1
	DefaultDuration     = time.Second * 10
	DefaultTTL          = uint8(64)
	SlowDispatch        = time.Millisecond * 4

	// multicast groups are allocated from McastBase.1 upwards
	McastBase      = netip.AddrFrom4([4]byte{227, 0, 0, 0})
	McastPoolLimit = 0xff
)
