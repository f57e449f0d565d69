// Command crm-jobs runs the CRM background jobs against the GraphQL API,
// either on their cron schedules or once on demand.
package main

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xenking/crm/internal/crmclient"
	"github.com/xenking/crm/internal/jobs"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		return newRoot(lg, m).ExecuteContext(ctx)
	})
}

func newRoot(lg *zap.Logger, m *app.Telemetry) *cobra.Command {
	var configFile string

	build := func() (*jobs.Set, error) {
		cfg, err := loadConfig(configFile)
		if err != nil {
			return nil, err
		}
		return jobs.New(cfg.Jobs, crmclient.New(cfg.API), lg,
			jobs.WithMeterProvider(m.MeterProvider()),
		)
	}

	root := &cobra.Command{
		Use:           "crm-jobs",
		Short:         "CRM background jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default jobs.yaml or /etc/crm/jobs.yaml)")

	root.AddCommand(
		&cobra.Command{
			Use:   "schedule",
			Short: "Run every scheduled job on its cron schedule until interrupted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				set, err := build()
				if err != nil {
					return err
				}
				s, err := jobs.NewScheduler(set, lg)
				if err != nil {
					return errors.Wrap(err, "create scheduler")
				}
				return s.Run(cmd.Context())
			},
		},
		&cobra.Command{
			Use:       "run <job>",
			Short:     "Run one job now",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{jobs.NameHeartbeat, jobs.NameLowStock, jobs.NameReminders, jobs.NameReport},
			RunE: func(cmd *cobra.Command, args []string) error {
				set, err := build()
				if err != nil {
					return err
				}
				j, ok := set.Get(args[0])
				if !ok {
					return errors.Errorf("unknown job %q, want one of %v", args[0], set.Names())
				}
				j.Run(cmd.Context())
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List jobs and their schedules",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				set, err := build()
				if err != nil {
					return err
				}
				for _, j := range set.All() {
					schedule := j.Schedule
					if schedule == "" {
						schedule = "(on demand)"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", j.Name, schedule)
				}
				return nil
			},
		},
	)
	return root
}
