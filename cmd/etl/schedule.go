package main

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"legends/internal/signals"
)

func newScheduleCmd() *cobra.Command {
	var spec, task string
	var now bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the job on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signals.SetupSignalHandler(cmd.Context(), log, nil)
			defer stop()

			job := func() {
				// failures are logged and notified by the coordinator
				_ = runJob(ctx, cfg, log, task, cmd.OutOrStdout())
			}

			c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
			if _, err := c.AddFunc(spec, job); err != nil {
				return fmt.Errorf("invalid cron spec %q: %w", spec, err)
			}

			log.Info("scheduler started", "cron", spec, "task", task)
			if now {
				job()
			}
			c.Start()

			<-ctx.Done()
			log.Info("stopping scheduler")
			<-c.Stop().Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&spec, "cron", "0 */6 * * *", "cron schedule (minute hour dom month dow)")
	cmd.Flags().StringVar(&task, "task", "all", "task to run: all, champs, mastery or items")
	cmd.Flags().BoolVar(&now, "now", false, "also run once immediately")
	return cmd
}
