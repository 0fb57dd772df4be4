package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dronefleet/internal/command"
)

var (
	authUsername string
	authPassword string
)

func authCommand(mode, use, short string) *cobra.Command {
	c := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := newOperator()
			if err != nil {
				return err
			}
			if err := ops.commands.Authenticate(cmd.Context(), mode, authUsername, authPassword); err != nil {
				return err
			}
			if mode == command.ModeRegister {
				fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", authUsername)
				return nil
			}
			if u := ops.store.Snapshot().User; u != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", u.Username)
			}
			return nil
		},
	}
	c.Flags().StringVarP(&authUsername, "username", "u", "", "Operator username")
	c.Flags().StringVarP(&authPassword, "password", "p", "", "Operator password")
	return c
}

var (
	loginCmd    = authCommand(command.ModeLogin, "login", "Log in to the fleet backend")
	registerCmd = authCommand(command.ModeRegister, "register", "Register a new operator")
)
