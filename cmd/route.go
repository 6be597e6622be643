package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	routeFrom string
	routeTo   string
	routeAt   time.Duration
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Shows the route the oracle picks between a node and a node, group or address",
	RunE: func(cmd *cobra.Command, args []string) error {
		network, err := snapshot(routeAt)
		if err != nil {
			return err
		}
		from := network.Node(routeFrom)
		if from == nil || from.Router == nil {
			return fmt.Errorf("%s is not a node with interfaces", routeFrom)
		}
		dst, err := network.Config().ResolveTarget(routeTo)
		if err != nil {
			return err
		}
		g := network.Graph

		if dst.IsMulticast() {
			if !g.HaveMcastPath(from.Main(), dst) {
				fmt.Printf("%s has no multicast path in %s\n", from.Name, dst)
				return nil
			}
			for _, node := range network.Nodes {
				if node.Router == nil {
					continue
				}
				out := g.MulticastRoute(from.Main(), dst, node.Main())
				if len(out) == 0 {
					continue
				}
				fmt.Printf("%s (%s) retransmits on %v\n", node.Name, node.Main(), out)
			}
			return nil
		}

		if !g.Knows(dst) || !g.HavePath(from.Main(), dst) {
			fmt.Printf("no route from %s to %s\n", from.Name, dst)
			return nil
		}
		src, gw := g.UnicastRoute(from.Main(), dst)
		fmt.Printf("%s -> %s: next hop %s, send on %s to %s, distance %d\n",
			from.Name, dst, g.NextHopMain(from.Main(), dst), src, gw, g.PathDistance(from.Main(), dst))
		return nil
	},
	GroupID: "ny",
}

func init() {
	rootCmd.AddCommand(routeCmd)

	routeCmd.Flags().StringVarP(&routeFrom, "from", "f", "", "Source node name")
	routeCmd.Flags().StringVarP(&routeTo, "to", "t", "", "Destination node, group or address")
	routeCmd.Flags().DurationVar(&routeAt, "at", 0, "Scenario time to route at")
	_ = routeCmd.MarkFlagRequired("from")
	_ = routeCmd.MarkFlagRequired("to")
}
