package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gosuda/trail/internal/auth"
	"github.com/gosuda/trail/internal/config"
)

func newTokenCmd() *cobra.Command {
	var (
		userID int64
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API access token",
		Long: "Signs a bearer token with TRAIL_JWT_SECRET. Operator tokens may omit\n" +
			"--company to read every tenant.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if ttl == 0 {
				ttl = cfg.JWT.AccessTTL
			}

			tok, err := auth.IssueAccessToken(cfg.JWT.Secret, companyScope(), userID, role, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User ID embedded in the token")
	cmd.Flags().StringVar(&role, "role", auth.RoleMember, "Role: member, admin or operator")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default TRAIL_JWT_ACCESS_TTL)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
