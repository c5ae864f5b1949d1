package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"legends/internal/config"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

// Run builds the command tree and executes it
func Run() ExitCode {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "etl",
		Short:         "Extract champion, item and mastery data into the document store.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "set debug logging level")
	rootCmd.PersistentFlags().StringSlice("env-file", nil, "env files to try in order (default .env, ../.env)")

	rootCmd.AddCommand(
		newRunCmd(),
		newTaskCmd(),
		newSubmitCmd(),
		newScheduleCmd(),
		newCheckCmd(),
	)
	return rootCmd
}

// setup reads the global flags and loads the configuration
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get verbose flag: %w", err)
	}
	envFiles, err := cmd.Root().PersistentFlags().GetStringSlice("env-file")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get env-file flag: %w", err)
	}

	log := newLogger(verbose)
	slog.SetDefault(log)

	cfg, err := config.Load(envFiles...)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		return nil, nil, err
	}
	return cfg, log, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}
