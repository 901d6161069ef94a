package main

import (
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/aretw0/configurator/pkg/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored wizard sessions",
	Long:  `List, inspect and remove the wizard sessions held by the configured store (use --redis to reach a shared store).`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List users with an active session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		users, err := a.Sessions.List(cmd.Context())
		if err != nil {
			return errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg("list sessions").WithCause(err)
		}
		if len(users) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No active sessions found.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Active Sessions:")
		for _, u := range users {
			fmt.Fprintln(cmd.OutOrStdout(), "- "+u)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <user-id>",
	Short: "Print a session as yaml",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.Sessions.Load(cmd.Context(), args[0])
		if errors.Is(err, domain.ErrSessionNotFound) {
			return errbuilder.New().WithCode(errbuilder.CodeNotFound).WithMsg(fmt.Sprintf("no session for %q", args[0]))
		}
		if err != nil {
			return errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg("load session").WithCause(err)
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(s)
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <user-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		var failed []error
		for _, user := range args {
			if err := a.Sessions.Delete(cmd.Context(), user); err != nil {
				failed = append(failed, fmt.Errorf("%s: %w", user, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", user)
		}
		if len(failed) > 0 {
			return errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg("remove sessions").WithCause(errors.Join(failed...))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
}
