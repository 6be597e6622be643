package state

import (
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameValidator_Valid(t *testing.T) {
	assert.NoError(t, NameValidator("1"))
	assert.NoError(t, NameValidator("ab_cd"))
	assert.NoError(t, NameValidator("abcd-a.com"))
}

func TestNameValidator_Invalid(t *testing.T) {
	assert.Error(t, NameValidator("1A"))
	assert.Error(t, NameValidator("node name"))
	assert.Error(t, NameValidator(""))
	assert.Error(t, NameValidator("\t"))
	assert.Error(t, NameValidator("abcd-a.com\\hi"))
	assert.Error(t, NameValidator(strings.Repeat("a", 200)))
}

func validScenario(t *testing.T) *ScenarioCfg {
	cfg := &ScenarioCfg{
		Name: "test",
		Nodes: []NodeCfg{
			{Name: "a", Interfaces: []netip.Addr{netip.MustParseAddr("10.0.0.1")}},
			{Name: "b", Interfaces: []netip.Addr{netip.MustParseAddr("10.0.0.2")}},
		},
		Graph:   []string{"a, b"},
		Groups:  []GroupCfg{{Name: "grp", Members: []string{"a", "b"}}},
		Traffic: []TrafficCfg{{From: "a", To: "grp"}},
	}
	require.NoError(t, ExpandScenario(cfg))
	return cfg
}

func TestScenarioValidator(t *testing.T) {
	assert.NoError(t, ScenarioValidator(validScenario(t)))

	cfg := validScenario(t)
	cfg.Nodes[1].Interfaces = cfg.Nodes[0].Interfaces
	assert.ErrorContains(t, ScenarioValidator(cfg), "is used by both a and b")

	cfg = validScenario(t)
	cfg.Nodes[1].Interfaces = nil
	assert.ErrorContains(t, ScenarioValidator(cfg), "has no interfaces")

	cfg = validScenario(t)
	cfg.Links = append(cfg.Links, LinkCfg{A: netip.MustParseAddr("10.0.0.1"), B: netip.MustParseAddr("10.9.9.9")})
	assert.ErrorContains(t, ScenarioValidator(cfg), "unknown interface 10.9.9.9")

	cfg = validScenario(t)
	cfg.Groups[0].Members = append(cfg.Groups[0].Members, "z")
	assert.ErrorContains(t, ScenarioValidator(cfg), "node z not defined")

	cfg = validScenario(t)
	cfg.Groups[0].Address = netip.MustParseAddr("10.0.0.9")
	assert.ErrorContains(t, ScenarioValidator(cfg), "is not a multicast address")

	cfg = validScenario(t)
	cfg.Traffic[0].To = "nowhere"
	assert.ErrorContains(t, ScenarioValidator(cfg), "is not a node, group or address")

	cfg = validScenario(t)
	cfg.Links[0].Up = 5
	cfg.Links[0].Down = 2
	assert.ErrorContains(t, ScenarioValidator(cfg), "goes down before it comes up")
}
