package core

import (
	"net/netip"
	"testing"

	"github.com/encodeous/lrr/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupsMembership(t *testing.T) {
	g := NewGroups()
	g.Set(groupB, []state.NodeId{ip(3), ip(1)})
	g.Set(groupA, []state.NodeId{ip(2), ip(1), ip(2)})

	assert.Equal(t, []netip.Addr{groupA, groupB}, g.Groups())
	assert.Equal(t, []state.NodeId{ip(1), ip(2)}, g.Members(groupA))
	assert.True(t, g.IsMember(ip(1), groupB))
	assert.False(t, g.IsMember(ip(2), groupB))

	// Set replaces the member set
	g.Set(groupB, []state.NodeId{ip(4)})
	assert.False(t, g.IsMember(ip(1), groupB))
	assert.Equal(t, []state.NodeId{ip(4)}, g.Members(groupB))

	g.Remove(groupB)
	assert.False(t, g.Has(groupB))
	assert.False(t, g.IsMember(ip(4), groupB))
	assert.Empty(t, g.Members(groupB))
	assert.Equal(t, []netip.Addr{groupA}, g.Groups())
}

func TestGroupsAllocate(t *testing.T) {
	g := NewGroups()
	assert.Equal(t, netip.MustParseAddr("227.0.0.1"), g.AllocateAddress())
	assert.Equal(t, netip.MustParseAddr("227.0.0.2"), g.AllocateAddress())

	g.Set(netip.MustParseAddr("227.0.0.3"), nil)
	assert.Equal(t, netip.MustParseAddr("227.0.0.4"), g.AllocateAddress())

	g.Clear()
	assert.Empty(t, g.Groups())
	assert.Equal(t, netip.MustParseAddr("227.0.0.1"), g.AllocateAddress())
}

func TestGroupsPoolExhausted(t *testing.T) {
	g := NewGroups()
	var last netip.Addr
	for i := 0; i < 254; i++ {
		last = g.AllocateAddress()
		require.True(t, last.IsMulticast())
	}
	assert.Equal(t, netip.MustParseAddr("227.0.0.254"), last)
	assert.PanicsWithValue(t, state.ErrGroupPoolExhausted, func() {
		g.AllocateAddress()
	})
}
