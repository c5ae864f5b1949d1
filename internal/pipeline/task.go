// Package pipeline runs ETL tasks as ordered stages and coordinates a full run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"legends/internal/etl"
	"legends/internal/metrics"
	"legends/internal/table"
)

// ErrNoResult is wrapped when a stage finishes without producing a table
var ErrNoResult = errors.New("pipeline: stage produced no result")

// Stage is one step of a task. It receives the previous stage's table,
// which is nil for the first stage or after a tolerated failure.
type Stage struct {
	Name string
	Run  func(ctx context.Context, in *table.Table) (*table.Table, error)

	// Tolerant stages log their error and hand nil to the next stage,
	// which falls back to its checkpoint.
	Tolerant bool
}

// StageError reports the stage that aborted a task
type StageError struct {
	Task  string
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s/%s: %v", e.Task, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageResult is the outcome of one stage
type StageResult struct {
	Stage    string
	Rows     int
	Duration time.Duration
	Err      error
}

// TaskReport collects what a task did
type TaskReport struct {
	Task   string
	Stages []StageResult
	Load   *etl.LoadResult
	Join   *table.JoinStats
	Err    error
}

// Task runs its stages strictly in sequence
type Task struct {
	Name   string
	Stages []Stage
	Logger *slog.Logger
	Clock  clockwork.Clock

	report *TaskReport
}

// Run executes every stage. The first intolerant failure aborts the
// remaining stages and is returned as a *StageError.
func (t *Task) Run(ctx context.Context) (TaskReport, error) {
	log := t.logger().With("task", t.Name)
	clock := t.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	t.report = &TaskReport{Task: t.Name}
	defer func() { t.report = nil }()

	var current *table.Table
	for _, stage := range t.Stages {
		if err := ctx.Err(); err != nil {
			serr := &StageError{Task: t.Name, Stage: stage.Name, Err: err}
			t.report.Err = serr
			return *t.report, serr
		}

		start := clock.Now()
		out, err := stage.Run(ctx, current)
		elapsed := clock.Since(start)

		t.report.Stages = append(t.report.Stages, StageResult{Stage: stage.Name, Rows: out.Len(), Duration: elapsed, Err: err})
		metrics.StageDuration.WithLabelValues(t.Name, stage.Name).Observe(elapsed.Seconds())

		if err != nil {
			if stage.Tolerant {
				metrics.StageOutcomes.WithLabelValues(t.Name, stage.Name, "tolerated").Inc()
				log.Warn("stage failed, continuing from checkpoint", "stage", stage.Name, "error", err)
				current = nil
				continue
			}
			metrics.StageOutcomes.WithLabelValues(t.Name, stage.Name, "error").Inc()
			serr := &StageError{Task: t.Name, Stage: stage.Name, Err: err}
			log.Error("stage failed", "stage", stage.Name, "error", err)
			t.report.Err = serr
			return *t.report, serr
		}

		metrics.StageOutcomes.WithLabelValues(t.Name, stage.Name, "ok").Inc()
		log.Debug("stage finished", "stage", stage.Name, "rows", out.Len(), "elapsed", elapsed)
		current = out
	}

	log.Info("task finished")
	return *t.report, nil
}

func (t *Task) recordLoad(res etl.LoadResult) {
	if t.report != nil {
		t.report.Load = &res
	}
}

func (t *Task) recordJoin(stats table.JoinStats) {
	if t.report != nil {
		t.report.Join = &stats
	}
}

func (t *Task) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}
