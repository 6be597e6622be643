package cmd

import (
	"fmt"

	"github.com/encodeous/lrr/core"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validates a scenario and prints it with defaults and graph links expanded",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := core.ReadScenario(scenarioPath)
		if err != nil {
			return err
		}
		cfgYaml, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Println("Scenario is valid")
		fmt.Print(string(cfgYaml))
		return nil
	},
	GroupID: "ny",
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
