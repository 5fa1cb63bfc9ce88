package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gosuda/trail/internal/app"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), app.Options{Migrate: true}, func(rt *app.Runtime) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Schema applied. Signing key source: %s (%s)\n",
					rt.Key.Source(), rt.Key.Fingerprint())
				return nil
			})
		},
	}
}
