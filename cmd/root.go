package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var scenarioPath = "scenario.yaml"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lrr",
	Short: "Omniscient MANET routing simulator",
	Long: `lrr simulates a mobile ad-hoc network whose routes come from a single oracle with a global view of the topology.
Scenarios describe nodes, their radio links over time, multicast groups and the traffic to send.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "ny",
		Title: "Simulation Commands",
	})
	rootCmd.PersistentFlags().StringVarP(&scenarioPath, "scenario", "s", scenarioPath, "scenario file")
}
