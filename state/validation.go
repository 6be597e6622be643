package state

import (
	"fmt"
	"net/netip"
	"os"
	"path"
	"path/filepath"
	"regexp"
)

var namePattern, _ = regexp.Compile("^[0-9a-z._-]+$")

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func NodeConfigValidator(node *NodeCfg) error {
	err := NameValidator(node.Name)
	if err != nil {
		return err
	}
	if len(node.Interfaces) == 0 {
		return fmt.Errorf("node %s has no interfaces", node.Name)
	}
	for _, addr := range node.Interfaces {
		if !addr.IsValid() {
			return fmt.Errorf("node %s has an invalid interface address", node.Name)
		}
		if addr.IsMulticast() {
			return fmt.Errorf("node %s: interface address %s is a multicast address", node.Name, addr)
		}
	}
	return nil
}

// ScenarioValidator checks an expanded scenario
func ScenarioValidator(cfg *ScenarioCfg) error {
	if cfg.Duration < 0 || cfg.UpdatePeriod <= 0 || cfg.DedupLifetime <= 0 || cfg.HopDelay <= 0 {
		return fmt.Errorf("scenario durations must be positive")
	}
	if cfg.LogPath != "" {
		if err := PathValidator(cfg.LogPath); err != nil {
			return fmt.Errorf("invalid log path: %w", err)
		}
	}
	names := make(map[string]bool)
	ifaces := make(map[netip.Addr]string)
	for i := range cfg.Nodes {
		node := &cfg.Nodes[i]
		if err := NodeConfigValidator(node); err != nil {
			return err
		}
		if names[node.Name] {
			return fmt.Errorf("duplicate node name: %s", node.Name)
		}
		names[node.Name] = true
		for _, addr := range node.Interfaces {
			if owner, ok := ifaces[addr]; ok {
				return fmt.Errorf("interface %s is used by both %s and %s", addr, owner, node.Name)
			}
			ifaces[addr] = node.Name
		}
	}
	for _, link := range cfg.Links {
		if _, ok := ifaces[link.A]; !ok {
			return fmt.Errorf("link references unknown interface %s", link.A)
		}
		if _, ok := ifaces[link.B]; !ok {
			return fmt.Errorf("link references unknown interface %s", link.B)
		}
		if link.A == link.B {
			return fmt.Errorf("link from %s to itself", link.A)
		}
		if link.Down != 0 && link.Down <= link.Up {
			return fmt.Errorf("link %s - %s goes down before it comes up", link.A, link.B)
		}
	}
	groups := make(map[string]bool)
	for _, grp := range cfg.Groups {
		if err := NameValidator(grp.Name); err != nil {
			return err
		}
		if names[grp.Name] || groups[grp.Name] {
			return fmt.Errorf("duplicate group name: %s", grp.Name)
		}
		groups[grp.Name] = true
		if grp.Address.IsValid() && !grp.Address.IsMulticast() {
			return fmt.Errorf("group %s: %s is not a multicast address", grp.Name, grp.Address)
		}
		for _, member := range grp.Members {
			if !names[member] {
				return fmt.Errorf("group %s: node %s not defined", grp.Name, member)
			}
		}
	}
	for _, t := range cfg.Traffic {
		if !names[t.From] {
			return fmt.Errorf("traffic source %s not defined", t.From)
		}
		if !names[t.To] && !groups[t.To] {
			if _, err := netip.ParseAddr(t.To); err != nil {
				return fmt.Errorf("traffic destination %s is not a node, group or address", t.To)
			}
		}
		if t.Count < 0 || t.Interval < 0 || t.At < 0 {
			return fmt.Errorf("traffic from %s has negative timing", t.From)
		}
	}
	return nil
}
