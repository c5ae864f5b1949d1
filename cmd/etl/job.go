package main

import (
	"context"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"legends/internal/config"
	"legends/internal/ddragon"
	"legends/internal/discord"
	"legends/internal/etl"
	"legends/internal/metrics"
	"legends/internal/pipeline"
	"legends/internal/riot"
	"legends/internal/signals"
	"legends/internal/store"
)

const metricsJob = "legends_etl"

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every task: champs, mastery, then items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, "all")
		},
	}
}

func newTaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "task <champs|mastery|items>",
		Short:     "Run a single task",
		Args:      cobra.ExactArgs(1),
		ValidArgs: pipeline.TaskNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, args[0])
		},
	}
}

func runCommand(cmd *cobra.Command, task string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signals.SetupSignalHandler(cmd.Context(), log, nil)
	defer stop()

	return runJob(ctx, cfg, log, task, cmd.OutOrStdout())
}

// runJob validates cfg for the selected task, runs it and prints the
// report to out.
func runJob(ctx context.Context, cfg *config.Config, log *slog.Logger, task string, out io.Writer) error {
	names := pipeline.TaskNames
	if task != "all" && task != "" {
		names = []string{task}
	}
	if err := cfg.Validate(names...); err != nil {
		log.Error("invalid configuration", "error", err)
		return err
	}

	deps, err := newDeps(cfg, log, names)
	if err != nil {
		return err
	}
	tasks, err := pipeline.TaskByName(deps, task)
	if err != nil {
		log.Error("invalid task", "error", err)
		return err
	}

	coord := &pipeline.Coordinator{Tasks: tasks, Logger: log}
	if cfg.NotifyWebhookURL != "" {
		coord.Notifier = discord.NewWebhookClient(cfg.NotifyWebhookURL)
	}

	rep, runErr := coord.Run(ctx)
	if out != nil {
		rep.Render(out)
	}

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(context.WithoutCancel(ctx), cfg.PushgatewayURL, metricsJob); err != nil {
			log.Warn("failed to push metrics", "url", cfg.PushgatewayURL, "error", err)
		}
	}
	return runErr
}

// newDeps builds the API clients and store opener. The Riot client is only
// created when the mastery task is selected.
func newDeps(cfg *config.Config, log *slog.Logger, names []string) (*pipeline.Deps, error) {
	dd := ddragon.NewClient(
		ddragon.WithBaseURL(cfg.DDragonBaseURL),
		ddragon.WithLocale(cfg.DDragonLocale),
		ddragon.WithTimeout(cfg.HTTPTimeout),
	)

	deps := &pipeline.Deps{
		Config:    cfg,
		Champions: dd,
		Items:     dd,
		Loader: &etl.Loader{
			Open: func(ctx context.Context) (store.Store, error) {
				return store.Open(ctx, cfg.StoreURI, cfg.StoreDatabase)
			},
			Logger: log,
		},
		Logger: log,
	}

	if slices.Contains(names, pipeline.TaskMastery) {
		rc, err := riot.NewClient(cfg.RiotAPIKey,
			riot.WithBaseURL(cfg.RiotBaseURL),
			riot.WithTimeout(cfg.HTTPTimeout),
		)
		if err != nil {
			return nil, err
		}
		deps.Mastery = rc
	}
	return deps, nil
}
