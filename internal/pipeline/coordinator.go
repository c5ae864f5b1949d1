package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/olekukonko/tablewriter"

	"legends/internal/metrics"
)

// Notifier is told how each run ended
type Notifier interface {
	RunSucceeded(ctx context.Context, elapsed time.Duration, written map[string]int) error
	RunFailed(ctx context.Context, elapsed time.Duration, cause error) error
}

// Report is the outcome of a coordinated run
type Report struct {
	Tasks   []TaskReport
	Elapsed time.Duration
	Err     error
}

// Coordinator runs tasks in order and stops at the first failure
type Coordinator struct {
	Tasks    []*Task
	Clock    clockwork.Clock
	Logger   *slog.Logger
	Notifier Notifier
}

// Run executes every task in order. The returned error is the failing
// task's *StageError; the report holds what ran up to that point.
func (c *Coordinator) Run(ctx context.Context) (Report, error) {
	log := c.Logger
	if log == nil {
		log = slog.Default()
	}
	clock := c.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	start := clock.Now()
	var rep Report

	for _, task := range c.Tasks {
		tr, err := task.Run(ctx)
		rep.Tasks = append(rep.Tasks, tr)
		if err != nil {
			rep.Err = err
			break
		}
	}

	rep.Elapsed = clock.Since(start)
	metrics.LastRunSeconds.Set(rep.Elapsed.Seconds())

	if rep.Err != nil {
		metrics.RunsTotal.WithLabelValues("failure").Inc()
		log.Error("ETL job failed", "error", rep.Err, "elapsed", FormatElapsed(rep.Elapsed))
		if c.Notifier != nil {
			if err := c.Notifier.RunFailed(context.WithoutCancel(ctx), rep.Elapsed, rep.Err); err != nil {
				log.Warn("failed to send failure notification", "error", err)
			}
		}
		return rep, rep.Err
	}

	metrics.RunsTotal.WithLabelValues("success").Inc()
	log.Info("ETL job succeeded", "elapsed", FormatElapsed(rep.Elapsed))
	if c.Notifier != nil {
		if err := c.Notifier.RunSucceeded(ctx, rep.Elapsed, rowsWritten(rep.Tasks)); err != nil {
			log.Warn("failed to send success notification", "error", err)
		}
	}
	return rep, nil
}

// FormatElapsed renders d as "1 hour 2 minutes 3 seconds". Zero hours and
// minutes are omitted; seconds are shown when non-zero or when nothing
// else is.
func FormatElapsed(d time.Duration) string {
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := total % 3600 / 60
	seconds := total % 60

	var parts []string
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}
	return strings.Join(parts, " ")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.FormatInt(n, 10) + " " + unit + "s"
}

// Render writes the report as a table, one line per stage
func (r Report) Render(w io.Writer) {
	tbl := tablewriter.NewWriter(w)
	tbl.SetAutoWrapText(false)
	tbl.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	tbl.SetAutoFormatHeaders(false)
	tbl.SetBorder(true)
	tbl.SetHeader([]string{"Task", "Stage", "Result", "Rows", "Duration", "Detail"})

	for _, task := range r.Tasks {
		name := task.Task
		for _, s := range task.Stages {
			result, detail := "ok", ""
			switch {
			case s.Err != nil && task.Err != nil && s.Stage == lastStage(task):
				result, detail = "FAILED", s.Err.Error()
			case s.Err != nil:
				result, detail = "fallback", s.Err.Error()
			case s.Stage == "load" && task.Load != nil:
				detail = fmt.Sprintf("written %d, skipped %d, errors %d", task.Load.Written, task.Load.Skipped, task.Load.Errors)
			case s.Stage == "join" && task.Join != nil:
				detail = fmt.Sprintf("unmatched mastery %d, champs %d", task.Join.LeftUnmatched, task.Join.RightUnmatched)
			}
			tbl.Append([]string{name, s.Stage, result, strconv.Itoa(s.Rows), s.Duration.Round(time.Millisecond).String(), detail})
			name = ""
		}
	}

	status := "SUCCESS"
	if r.Err != nil {
		status = "FAILED"
	}
	tbl.SetFooter([]string{"", "", status, "", FormatElapsed(r.Elapsed), ""})
	tbl.Render()
}

func lastStage(t TaskReport) string {
	if len(t.Stages) == 0 {
		return ""
	}
	return t.Stages[len(t.Stages)-1].Stage
}
