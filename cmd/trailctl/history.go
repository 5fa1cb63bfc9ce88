package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gosuda/trail/internal/app"
	"github.com/gosuda/trail/internal/domain"
)

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <table> <record-id>",
		Short: "Show the versions of a row, newest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid record ID %q", args[1])
			}

			return withRuntime(cmd.Context(), app.Options{}, func(rt *app.Runtime) error {
				history, err := rt.Versions.GetVersionHistory(cmd.Context(), args[0], recordID, companyScope())
				if err != nil {
					return fmt.Errorf("loading history: %w", err)
				}

				views := make([]versionView, 0, len(history))
				for _, v := range history {
					views = append(views, newVersionView(v))
				}
				return render(cmd.OutOrStdout(), globalOutput, views)
			})
		},
	}
}

func newRollbackCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "rollback <version-id>",
		Short: "Restore a row to its state before a version",
		Long: "Writes the version's previous state back to its table and records the\n" +
			"restore as a new update version. Requires --company.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			versionID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid version ID %q", args[0])
			}
			if globalCompany == 0 {
				return errors.New("--company is required for rollback")
			}

			var actor *int64
			if userID != 0 {
				actor = &userID
			}

			return withRuntime(cmd.Context(), app.Options{}, func(rt *app.Runtime) error {
				v, err := rt.Versions.RollbackToVersion(cmd.Context(), versionID, globalCompany, actor, domain.ClientInfo{})
				if err != nil {
					return fmt.Errorf("rollback of version %d: %w", versionID, err)
				}
				return render(cmd.OutOrStdout(), globalOutput, newVersionView(v))
			})
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User recorded as performing the rollback")

	return cmd
}
