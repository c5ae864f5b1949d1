package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legends/internal/etl"
	"legends/internal/table"
)

type recordingNotifier struct {
	succeeded bool
	failed    error
	elapsed   time.Duration
	written   map[string]int
}

func (n *recordingNotifier) RunSucceeded(ctx context.Context, elapsed time.Duration, written map[string]int) error {
	n.succeeded, n.elapsed, n.written = true, elapsed, written
	return nil
}

func (n *recordingNotifier) RunFailed(ctx context.Context, elapsed time.Duration, cause error) error {
	n.failed, n.elapsed = cause, elapsed
	return nil
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 seconds"},
		{400 * time.Millisecond, "0 seconds"},
		{time.Second, "1 second"},
		{42 * time.Second, "42 seconds"},
		{time.Minute, "1 minute"},
		{2*time.Minute + time.Second, "2 minutes 1 second"},
		{time.Hour, "1 hour"},
		{3*time.Hour + 5*time.Second, "3 hours 5 seconds"},
		{time.Hour + time.Minute + time.Second, "1 hour 1 minute 1 second"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatElapsed(tt.in))
		})
	}
}

func TestCoordinator_SuccessMeasuresElapsed(t *testing.T) {
	clock := clockwork.NewFakeClock()
	notifier := &recordingNotifier{}

	slow := &Task{Name: "champs", Clock: clock, Stages: []Stage{
		{Name: "load", Run: func(ctx context.Context, in *table.Table) (*table.Table, error) {
			clock.Advance(61 * time.Second)
			return oneRow(), nil
		}},
	}}
	slow.Stages = append(slow.Stages, Stage{Name: "record", Run: func(ctx context.Context, in *table.Table) (*table.Table, error) {
		slow.recordLoad(etl.LoadResult{Collection: "champs", Written: 168})
		return in, nil
	}})

	c := &Coordinator{Tasks: []*Task{slow}, Clock: clock, Notifier: notifier}
	rep, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 61*time.Second, rep.Elapsed)
	assert.Equal(t, "1 minute 1 second", FormatElapsed(rep.Elapsed))
	assert.True(t, notifier.succeeded)
	assert.Equal(t, map[string]int{"champs": 168}, notifier.written)
}

func TestCoordinator_FailureStopsLaterTasks(t *testing.T) {
	boom := errors.New("duplicate join key")
	notifier := &recordingNotifier{}
	itemsRan := false

	c := &Coordinator{
		Notifier: notifier,
		Tasks: []*Task{
			{Name: "champs", Stages: []Stage{{Name: "load", Run: func(ctx context.Context, in *table.Table) (*table.Table, error) {
				return oneRow(), nil
			}}}},
			{Name: "mastery", Stages: []Stage{{Name: "join", Run: func(ctx context.Context, in *table.Table) (*table.Table, error) {
				return nil, boom
			}}}},
			{Name: "items", Stages: []Stage{{Name: "extract", Run: func(ctx context.Context, in *table.Table) (*table.Table, error) {
				itemsRan = true
				return nil, nil
			}}}},
		},
	}

	rep, err := c.Run(context.Background())

	var serr *StageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "mastery", serr.Task)
	assert.ErrorIs(t, notifier.failed, boom)
	assert.False(t, itemsRan)
	assert.Len(t, rep.Tasks, 2)

	var buf bytes.Buffer
	rep.Render(&buf)
	out := buf.String()
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "duplicate join key")
	assert.Contains(t, out, "champs")
}
