package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"dronefleet/internal/api"
	"dronefleet/internal/command"
	"dronefleet/internal/notify"
	"dronefleet/internal/store"
	"dronefleet/internal/tui"
)

// operator is the command side of the client without the live feed. Control
// commands therefore go over the durable channel only.
type operator struct {
	store    *store.Store
	commands *command.Dispatcher
	log      *slog.Logger
}

func newOperator() (*operator, error) {
	cfg, log, err := setup()
	if err != nil {
		return nil, err
	}
	c, err := api.New(cfg.APIBaseURL, cfg.RequestTimeout.Std())
	if err != nil {
		return nil, err
	}
	return newOperatorWith(c, log), nil
}

func newOperatorWith(b command.Backend, log *slog.Logger) *operator {
	st := store.New(store.Initial())
	n := notify.NewNotifier(st, log, nil)
	return &operator{store: st, commands: command.New(b, st, n, log, nil), log: log}
}

// report prints the notifications raised by the command.
func (o *operator) report(out io.Writer) {
	tui.NewPrinter(out, false).PrintNotifications(o.store.Snapshot())
}

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Send control actions to drones and missions",
}

var controlDroneCmd = &cobra.Command{
	Use:       "drone <id> <action>",
	Short:     "Control a drone (return_home, emergency_stop, start_mission)",
	Args:      cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ops, err := newOperator()
		if err != nil {
			return err
		}
		err = ops.commands.ControlDrone(cmd.Context(), id, args[1])
		ops.report(cmd.OutOrStdout())
		return err
	},
}

var controlMissionCmd = &cobra.Command{
	Use:   "mission <id> <action>",
	Short: "Control a mission (pause, resume, cancel)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ops, err := newOperator()
		if err != nil {
			return err
		}
		err = ops.commands.ControlMission(cmd.Context(), id, args[1])
		ops.report(cmd.OutOrStdout())
		return err
	},
}

var (
	missionName    string
	missionDroneID int
	missionType    string
)

var missionCmd = &cobra.Command{
	Use:   "mission",
	Short: "Manage missions",
}

var missionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a mission",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ops, err := newOperator()
		if err != nil {
			return err
		}
		m, err := ops.commands.CreateMission(cmd.Context(), api.MissionRequest{Name: missionName, DroneID: missionDroneID, Type: missionType})
		ops.report(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), m)
		}
		tui.PrintMissions(cmd.OutOrStdout(), ops.store.Snapshot().Missions)
		return nil
	},
}

func init() {
	controlCmd.AddCommand(controlDroneCmd)
	controlCmd.AddCommand(controlMissionCmd)

	missionCreateCmd.Flags().StringVar(&missionName, "name", "", "Mission name")
	missionCreateCmd.Flags().IntVar(&missionDroneID, "drone", 0, "Drone ID flying the mission")
	missionCreateCmd.Flags().StringVar(&missionType, "type", "surveillance", "Mission type")
	missionCreateCmd.MarkFlagRequired("name")
	missionCreateCmd.MarkFlagRequired("drone")
	missionCmd.AddCommand(missionCreateCmd)
}
