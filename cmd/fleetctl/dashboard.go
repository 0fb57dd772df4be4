package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dronefleet/internal/dashboard"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render Grafana dashboards for the GreptimeDB export",
	Long:  "dashboard renders Grafana dashboards querying the tables written by the GreptimeDB recorder. GREPTIMEDB_DATASOURCE_UID must name the Grafana datasource.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		if err := dashboard.Render(dashboardOut, dashboard.TablesFor(cfg.Greptime.Table)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dashboards written to %s\n", dashboardOut)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory")
}
