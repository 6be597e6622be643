package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/encodeous/lrr/core"
	"github.com/spf13/cobra"
)

var renderAt time.Duration

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Prints the topology at a point in time as a graphviz digraph",
	RunE: func(cmd *cobra.Command, args []string) error {
		network, err := snapshot(renderAt)
		if err != nil {
			return err
		}
		return network.Graph.Print(os.Stdout)
	},
	GroupID: "ny",
}

func snapshot(at time.Duration) (*core.Network, error) {
	cfg, err := core.ReadScenario(scenarioPath)
	if err != nil {
		return nil, err
	}
	logger, closer, err := core.NewLogger(slog.LevelWarn, cfg.Name, "")
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return core.Snapshot(*cfg, at, logger)
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().DurationVar(&renderAt, "at", 0, "Scenario time to render")
}
