package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"dronefleet/internal/tui"
)

// printJSON writes v indented.
func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

var dronesCmd = &cobra.Command{
	Use:   "drones",
	Short: "List the fleet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPI()
		if err != nil {
			return err
		}
		drones, err := c.FetchDrones(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), drones)
		}
		tui.PrintDrones(cmd.OutOrStdout(), drones)
		return nil
	},
}

var droneCmd = &cobra.Command{
	Use:   "drone <id>",
	Short: "Show one drone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, err := newAPI()
		if err != nil {
			return err
		}
		d, err := c.FetchDrone(cmd.Context(), id)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), d)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Drone %d: %s\n", d.ID, d.Name)
		fmt.Fprintf(out, "  status       %s\n", d.Status)
		fmt.Fprintf(out, "  battery      %d%%\n", d.Battery)
		fmt.Fprintf(out, "  position     %.5f, %.5f\n", d.Lat, d.Lng)
		fmt.Fprintf(out, "  altitude     %.1f m\n", d.Altitude)
		fmt.Fprintf(out, "  speed        %.1f km/h\n", d.Speed)
		fmt.Fprintf(out, "  temperature  %d°C\n", d.Temperature)
		fmt.Fprintf(out, "  signal       %d%%\n", d.Signal)
		if !d.LastUpdate.IsZero() {
			fmt.Fprintf(out, "  last update  %s\n", d.LastUpdate.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var missionsCmd = &cobra.Command{
	Use:   "missions",
	Short: "List missions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPI()
		if err != nil {
			return err
		}
		missions, err := c.FetchMissions(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), missions)
		}
		tui.PrintMissions(cmd.OutOrStdout(), missions)
		return nil
	},
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List alerts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPI()
		if err != nil {
			return err
		}
		alerts, err := c.FetchAlerts(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), alerts)
		}
		tui.PrintAlerts(cmd.OutOrStdout(), alerts)
		return nil
	},
}

var alertsReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark an alert as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ops, err := newOperator()
		if err != nil {
			return err
		}
		err = ops.commands.MarkAlertRead(cmd.Context(), id)
		ops.report(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "alert %d marked as read\n", id)
		return nil
	},
}

func init() {
	alertsCmd.AddCommand(alertsReadCmd)
}
