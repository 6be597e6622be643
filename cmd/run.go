package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/encodeous/lrr/core"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario",
	Long:  `Runs the scenario on virtual time and prints what every node sent, received and forwarded. With --realtime the scenario runs on the wall clock instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		realtime, _ := cmd.Flags().GetBool("realtime")
		logPath, _ := cmd.Flags().GetString("log")

		network, err := core.Bootstrap(scenarioPath, logPath, verbose, realtime)
		if network != nil {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NODE\tADDRESS\tSENT\tRECEIVED\tFORWARDED\tNO ROUTE")
			for _, r := range network.Report() {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n", r.Name, r.Main, r.Sent, r.Received, r.Forwarded, r.NoRoute)
			}
			w.Flush()
		}
		return err
	},
	GroupID: "ny",
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().BoolP("realtime", "r", false, "Run on the wall clock")
	runCmd.Flags().StringP("log", "l", "", "Also write logs to this file")
}
