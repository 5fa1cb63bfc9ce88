package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gosuda/trail/internal/app"
	"github.com/gosuda/trail/internal/domain"
)

// auditFilterFlags are shared by the logs and verify commands.
type auditFilterFlags struct {
	eventType  string
	userID     int64
	entityType string
	entityID   int64
	from       string
	to         string
}

func (f *auditFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.eventType, "type", "t", "", "Filter by event type")
	cmd.Flags().Int64Var(&f.userID, "user", 0, "Filter by acting user")
	cmd.Flags().StringVar(&f.entityType, "entity-type", "", "Filter by entity type")
	cmd.Flags().Int64Var(&f.entityID, "entity-id", 0, "Filter by entity ID")
	cmd.Flags().StringVar(&f.from, "from", "", "Inclusive start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "Inclusive end date (YYYY-MM-DD)")
}

func (f *auditFilterFlags) filter() (domain.AuditFilter, error) {
	from, err := parseDateFlag("from", f.from)
	if err != nil {
		return domain.AuditFilter{}, err
	}
	to, err := parseDateFlag("to", f.to)
	if err != nil {
		return domain.AuditFilter{}, err
	}

	filter := domain.AuditFilter{
		EventType:  f.eventType,
		EntityType: f.entityType,
		DateFrom:   from,
		DateTo:     to,
	}
	if f.userID != 0 {
		filter.UserID = &f.userID
	}
	if f.entityID != 0 {
		filter.EntityID = &f.entityID
	}
	return filter, nil
}

func newLogsCmd() *cobra.Command {
	var (
		flags  auditFilterFlags
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List audit events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}

			return withRuntime(cmd.Context(), app.Options{}, func(rt *app.Runtime) error {
				events, err := rt.Audit.GetLogs(cmd.Context(), companyScope(), filter, limit, offset)
				if err != nil {
					return fmt.Errorf("listing events: %w", err)
				}

				views := make([]eventView, 0, len(events))
				for _, ev := range events {
					views = append(views, newEventView(ev))
				}
				return render(cmd.OutOrStdout(), globalOutput, views)
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "Maximum number of events")
	cmd.Flags().IntVar(&offset, "offset", 0, "Events to skip")

	return cmd
}

func newStatsCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate audit activity per event type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fromDate, err := parseDateFlag("from", from)
			if err != nil {
				return err
			}
			toDate, err := parseDateFlag("to", to)
			if err != nil {
				return err
			}

			return withRuntime(cmd.Context(), app.Options{}, func(rt *app.Runtime) error {
				stats, err := rt.Audit.GetEventStats(cmd.Context(), companyScope(), fromDate, toDate)
				if err != nil {
					return fmt.Errorf("computing stats: %w", err)
				}
				return render(cmd.OutOrStdout(), globalOutput, stats)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Inclusive start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Inclusive end date (YYYY-MM-DD)")

	return cmd
}
