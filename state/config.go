package state

import (
	"cmp"
	"fmt"
	"net/netip"
	"slices"
	"strings"
	"time"
)

type NodeCfg struct {
	Name string
	// the first interface is the canonical address of the node
	Interfaces []netip.Addr
}

// LinkCfg lets A reach B, and B reach A unless Directed is set.
type LinkCfg struct {
	A        netip.Addr
	B        netip.Addr
	Directed bool          `yaml:",omitempty"`
	Up       time.Duration `yaml:",omitempty"` // the link appears at this time
	Down     time.Duration `yaml:",omitempty"` // the link disappears at this time, zero means never
}

func (l LinkCfg) ActiveAt(t time.Duration) bool {
	if t < l.Up {
		return false
	}
	return l.Down == 0 || t < l.Down
}

type GroupCfg struct {
	Name    string
	Address netip.Addr `yaml:",omitempty"` // allocated from the multicast pool when empty
	Members []string
}

// TrafficCfg sends Count packets from a node. To is a node name, a group name or a literal address.
type TrafficCfg struct {
	At       time.Duration
	From     string
	To       string
	Count    int           `yaml:",omitempty"`
	Interval time.Duration `yaml:",omitempty"`
	TTL      uint8         `yaml:",omitempty"`
}

type ScenarioCfg struct {
	Name          string
	Duration      time.Duration `yaml:",omitempty"`
	UpdatePeriod  time.Duration `yaml:"update_period,omitempty"`
	DedupLifetime time.Duration `yaml:"dedup_lifetime,omitempty"`
	HopDelay      time.Duration `yaml:"hop_delay,omitempty"`
	LogPath       string        `yaml:"log_path,omitempty"` // if not empty, logs are also written to this file
	Nodes         []NodeCfg
	// Graph is a shorthand for always-up links between the first interfaces of nodes
	Graph   []string     `yaml:",omitempty"`
	Links   []LinkCfg    `yaml:",omitempty"`
	Groups  []GroupCfg   `yaml:",omitempty"`
	Traffic []TrafficCfg `yaml:",omitempty"`
}

func (c *ScenarioCfg) NodeNames() []string {
	names := make([]string, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		names = append(names, n.Name)
	}
	return names
}

func (c *ScenarioCfg) TryGetNode(name string) *NodeCfg {
	idx := slices.IndexFunc(c.Nodes, func(n NodeCfg) bool {
		return n.Name == name
	})
	if idx == -1 {
		return nil
	}
	return &c.Nodes[idx]
}

func (c *ScenarioCfg) TryGetGroup(name string) *GroupCfg {
	idx := slices.IndexFunc(c.Groups, func(g GroupCfg) bool {
		return g.Name == name
	})
	if idx == -1 {
		return nil
	}
	return &c.Groups[idx]
}

// OwnerOf returns the node that owns the interface address
func (c *ScenarioCfg) OwnerOf(addr netip.Addr) *NodeCfg {
	for i, n := range c.Nodes {
		if slices.Contains(n.Interfaces, addr) {
			return &c.Nodes[i]
		}
	}
	return nil
}

// ResolveTarget turns a traffic destination into an address. Groups must have their address assigned.
func (c *ScenarioCfg) ResolveTarget(to string) (netip.Addr, error) {
	if n := c.TryGetNode(to); n != nil {
		return n.Interfaces[0], nil
	}
	if g := c.TryGetGroup(to); g != nil {
		if !g.Address.IsValid() {
			return netip.Addr{}, fmt.Errorf("group %s has no address", to)
		}
		return g.Address, nil
	}
	addr, err := netip.ParseAddr(to)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%s is not a node, group or address", to)
	}
	return addr, nil
}

func parseSymbolList(s string, validSymbols []string) ([]string, error) {
	line := make([]string, 0)
	for _, sym := range strings.Split(strings.TrimSpace(s), ",") {
		x := strings.TrimSpace(sym)
		if x == "" {
			continue
		}
		if !slices.Contains(validSymbols, x) {
			return nil, fmt.Errorf(`%s is not a valid node/alias`, x)
		}
		line = append(line, x)
	}
	if len(line) == 0 {
		return nil, fmt.Errorf(`node/alias list must not be empty`)
	}
	return line, nil
}

// ParseGraph expands graph lines into undirected node pairs.
// A line "a, b, c" connects every listed node to every other one.
// A line "name = a, b" defines an alias usable by later lines.
func ParseGraph(graph []string, nodes []string) ([]Pair[string, string], error) {
	aliases := make(map[string][]string)
	symbols := slices.Clone(nodes)
	pairs := make([]Pair[string, string], 0)

	expand := func(names []string) []string {
		out := make([]string, 0, len(names))
		for _, name := range names {
			if members, ok := aliases[name]; ok {
				out = append(out, members...)
			} else {
				out = append(out, name)
			}
		}
		slices.Sort(out)
		return slices.Compact(out)
	}

	for _, line := range graph {
		line = strings.ToLower(strings.TrimSpace(line))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, "=") {
			spl := strings.Split(line, "=")
			if len(spl) != 2 {
				return nil, fmt.Errorf("invalid graph: %s. alias definition must contain one '='", line)
			}
			alias := strings.TrimSpace(spl[0])
			if slices.Contains(symbols, alias) {
				return nil, fmt.Errorf("duplicate alias or node name: %s", alias)
			}
			lst, err := parseSymbolList(spl[1], symbols)
			if err != nil {
				return nil, err
			}
			aliases[alias] = expand(lst)
			symbols = append(symbols, alias)
			continue
		}
		names, err := parseSymbolList(line, symbols)
		if err != nil {
			return nil, err
		}
		members := expand(names)
		if len(members) < 2 {
			return nil, fmt.Errorf("invalid pairing, %v", names)
		}
		for i, a := range members {
			for _, b := range members[i+1:] {
				pairs = append(pairs, MakeSortedPair(a, b))
			}
		}
	}
	SortPairs(pairs)
	return slices.Compact(pairs), nil
}

// ExpandScenario fills in defaults and turns the graph shorthand into links.
func ExpandScenario(cfg *ScenarioCfg) error {
	if cfg.Duration == 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.UpdatePeriod == 0 {
		cfg.UpdatePeriod = DefaultUpdatePeriod
	}
	if cfg.DedupLifetime == 0 {
		cfg.DedupLifetime = DedupLifetime
	}
	if cfg.HopDelay == 0 {
		cfg.HopDelay = DefaultHopDelay
	}
	for i := range cfg.Traffic {
		if cfg.Traffic[i].Count == 0 {
			cfg.Traffic[i].Count = 1
		}
		if cfg.Traffic[i].TTL == 0 {
			cfg.Traffic[i].TTL = DefaultTTL
		}
	}
	pairs, err := ParseGraph(cfg.Graph, cfg.NodeNames())
	if err != nil {
		return err
	}
	for _, p := range pairs {
		a, b := cfg.TryGetNode(p.V1), cfg.TryGetNode(p.V2)
		if len(a.Interfaces) == 0 || len(b.Interfaces) == 0 {
			return fmt.Errorf("graph links %s and %s, but one of them has no interfaces", p.V1, p.V2)
		}
		cfg.Links = append(cfg.Links, LinkCfg{A: a.Interfaces[0], B: b.Interfaces[0]})
	}
	cfg.Graph = nil
	return nil
}

func SortPairs[T cmp.Ordered](pairs []Pair[T, T]) {
	slices.SortFunc(pairs, func(a, b Pair[T, T]) int {
		if c := cmp.Compare(a.V1, b.V1); c != 0 {
			return c
		}
		return cmp.Compare(a.V2, b.V2)
	})
}
