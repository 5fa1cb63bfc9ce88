// Command trailctl inspects and repairs the audit log and record versions
// directly against the database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gosuda/trail/internal/app"
	"github.com/gosuda/trail/internal/config"
)

var (
	version = "0.1.0-dev"

	globalCompany int64
	globalOutput  string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := newRootCmd()
	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "trailctl",
		Short:         "Operate the trail audit log and record versions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Int64VarP(&globalCompany, "company", "c", 0, "Company to operate on (0 = all companies)")
	rootCmd.PersistentFlags().StringVarP(&globalOutput, "output", "o", formatYAML, "Output format: yaml or json")

	rootCmd.AddCommand(
		newMigrateCmd(),
		newLogsCmd(),
		newStatsCmd(),
		newVerifyCmd(),
		newHistoryCmd(),
		newRollbackCmd(),
		newTokenCmd(),
	)

	return rootCmd
}

// companyScope returns the --company flag as a tenant scope.
func companyScope() *int64 {
	if globalCompany == 0 {
		return nil
	}
	id := globalCompany
	return &id
}

// withRuntime loads configuration, opens the backends and runs fn.
func withRuntime(ctx context.Context, opts app.Options, fn func(rt *app.Runtime) error) error {
	cfg, err := config.LoadOffline()
	if err != nil {
		return err
	}
	app.SetupLogging(cfg.Log, os.Stderr)

	rt, err := app.Open(ctx, cfg, opts)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer rt.Close()

	return fn(rt)
}
