package main

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"legends/internal/pipeline"
	"legends/internal/signals"
)

// submitArgs are the decoded job launcher arguments
type submitArgs struct {
	Task         string
	NumExecutors int
	Parameters   map[string]any
}

func newSubmitCmd() *cobra.Command {
	var taskClass, numExecutors, parameters string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Launch a task from base64-encoded job arguments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}

			sa, err := decodeSubmitArgs(taskClass, numExecutors, parameters)
			if err != nil {
				log.Error("invalid job arguments", "error", err)
				return err
			}
			if err := cfg.Apply(sa.Parameters); err != nil {
				log.Error("invalid job parameters", "error", err)
				return err
			}
			// Tasks run sequentially; the executor count is informational.
			log.Info("submitting job", "task", sa.Task, "executors", sa.NumExecutors)

			ctx, stop := signals.SetupSignalHandler(cmd.Context(), log, nil)
			defer stop()
			return runJob(ctx, cfg, log, sa.Task, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&taskClass, "task-class", "", "base64 task class, e.g. tasks.TaskMastery or all")
	cmd.Flags().StringVar(&numExecutors, "num-executors", "", "base64 executor count")
	cmd.Flags().StringVar(&parameters, "parameters", "", "base64 JSON object of config overrides")
	_ = cmd.MarkFlagRequired("task-class")
	return cmd
}

func decodeSubmitArgs(taskClass, numExecutors, parameters string) (submitArgs, error) {
	var sa submitArgs

	class, err := decodeArg("task-class", taskClass)
	if err != nil {
		return sa, err
	}
	if sa.Task, err = taskFromClass(class); err != nil {
		return sa, err
	}

	if numExecutors != "" {
		n, err := decodeArg("num-executors", numExecutors)
		if err != nil {
			return sa, err
		}
		if sa.NumExecutors, err = strconv.Atoi(strings.TrimSpace(n)); err != nil {
			return sa, fmt.Errorf("invalid num-executors: %w", err)
		}
	}

	sa.Parameters = map[string]any{}
	if parameters != "" {
		p, err := decodeArg("parameters", parameters)
		if err != nil {
			return sa, err
		}
		if err := json.Unmarshal([]byte(p), &sa.Parameters); err != nil {
			return sa, fmt.Errorf("invalid parameters: %w", err)
		}
	}
	return sa, nil
}

func decodeArg(name, value string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return string(b), nil
}

// taskFromClass maps a dotted class name such as "tasks.TaskChamps" or
// "ChampsTask" to a task name. "all" selects every task.
func taskFromClass(class string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(class))
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(strings.TrimPrefix(name, "task"), "task")
	name = strings.Trim(name, "_")

	if name == "all" {
		return name, nil
	}
	for _, t := range pipeline.TaskNames {
		if name == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown task class %q", class)
}
