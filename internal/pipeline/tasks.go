package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"legends/internal/config"
	"legends/internal/etl"
	"legends/internal/metrics"
	"legends/internal/table"
)

// Task names, in the order a full run executes them
const (
	TaskChamps  = "champs"
	TaskMastery = "mastery"
	TaskItems   = "items"
)

// TaskNames lists every task in run order. Mastery joins the champion
// output, so champs must come first.
var TaskNames = []string{TaskChamps, TaskMastery, TaskItems}

// Artifacts keeps in-memory tables produced earlier in the same process
type Artifacts struct {
	mu     sync.RWMutex
	tables map[string]*table.Table
}

func NewArtifacts() *Artifacts {
	return &Artifacts{tables: make(map[string]*table.Table)}
}

func (a *Artifacts) Put(name string, t *table.Table) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tables[name] = t
}

// Get returns nil when nothing was stored under name
func (a *Artifacts) Get(name string) *table.Table {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tables[name]
}

// Deps wires tasks to their sources, store and configuration. Champions
// and Items are usually the same Data Dragon client.
type Deps struct {
	Config    *config.Config
	Champions etl.ChampionSource
	Items     etl.ItemSource
	Mastery   etl.MasterySource
	Loader    *etl.Loader
	Artifacts *Artifacts
	Logger    *slog.Logger
	Clock     clockwork.Clock
}

func (d *Deps) paths(p config.DatasetPaths) config.DatasetPaths {
	if !d.Config.Checkpoints {
		return config.DatasetPaths{}
	}
	return p
}

func (d *Deps) artifacts() *Artifacts {
	if d.Artifacts == nil {
		d.Artifacts = NewArtifacts()
	}
	return d.Artifacts
}

// NewChampsTask extracts, transforms and loads champion metadata keyed by key
func NewChampsTask(d *Deps) *Task {
	p := d.paths(d.Config.Champs)
	t := &Task{Name: TaskChamps, Logger: d.Logger, Clock: d.Clock}

	extractor := &etl.ChampsExtractor{Source: d.Champions, RawPath: p.Raw, Logger: d.Logger}
	transformer := etl.NewChampsTransformer(p.Raw, p.Clean, d.Logger)
	artifacts := d.artifacts()

	t.Stages = []Stage{
		{Name: "extract", Tolerant: true, Run: func(ctx context.Context, _ *table.Table) (*table.Table, error) {
			return extractor.Extract(ctx)
		}},
		{Name: "transform", Run: transformStage(transformer, func(out *table.Table) {
			artifacts.Put(TaskChamps, out)
		})},
		{Name: "load", Run: t.loadStage(d.Loader, "champs", "key")},
	}
	return t
}

// NewMasteryTask extracts and ranks the player's masteries, joins champion
// metadata and loads the result keyed by key.
func NewMasteryTask(d *Deps) *Task {
	p := d.paths(d.Config.Mastery)
	t := &Task{Name: TaskMastery, Logger: d.Logger, Clock: d.Clock}

	extractor := &etl.MasteryExtractor{Source: d.Mastery, PUUID: d.Config.PUUID, RawPath: p.Raw, Logger: d.Logger}
	transformer := etl.NewMasteryTransformer(p.Raw, p.Clean, d.Logger)
	joiner := &etl.Joiner{
		Validate:   table.OneToOne,
		ChampsPath: d.paths(d.Config.Champs).Clean,
		FinalPath:  p.Final,
		Logger:     d.Logger,
	}
	artifacts := d.artifacts()

	t.Stages = []Stage{
		{Name: "extract", Tolerant: true, Run: func(ctx context.Context, _ *table.Table) (*table.Table, error) {
			return extractor.Extract(ctx)
		}},
		{Name: "transform", Run: transformStage(transformer, nil)},
		{Name: "join", Run: func(ctx context.Context, in *table.Table) (*table.Table, error) {
			res, err := joiner.Run(in, artifacts.Get(TaskChamps))
			t.recordJoin(res.Stats)
			metrics.JoinUnmatchedRows.WithLabelValues("mastery").Set(float64(res.Stats.LeftUnmatched))
			metrics.JoinUnmatchedRows.WithLabelValues("champs").Set(float64(res.Stats.RightUnmatched))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", res.Status, err)
			}
			return res.Table, nil
		}},
		{Name: "load", Run: t.loadStage(d.Loader, "mastery", "key")},
	}
	return t
}

// NewItemsTask extracts, transforms and loads item metadata keyed by name
func NewItemsTask(d *Deps) *Task {
	p := d.paths(d.Config.Items)
	t := &Task{Name: TaskItems, Logger: d.Logger, Clock: d.Clock}

	extractor := &etl.ItemsExtractor{Source: d.Items, RawPath: p.Raw, Logger: d.Logger}
	transformer := etl.NewItemsTransformer(p.Raw, p.Clean, d.Logger)

	t.Stages = []Stage{
		{Name: "extract", Tolerant: true, Run: func(ctx context.Context, _ *table.Table) (*table.Table, error) {
			return extractor.Extract(ctx)
		}},
		{Name: "transform", Run: transformStage(transformer, nil)},
		{Name: "load", Run: t.loadStage(d.Loader, "items", "name")},
	}
	return t
}

// Tasks builds every task in run order
func Tasks(d *Deps) []*Task {
	return []*Task{NewChampsTask(d), NewMasteryTask(d), NewItemsTask(d)}
}

// TaskByName builds the named tasks; "all" selects every task in run order
func TaskByName(d *Deps, name string) ([]*Task, error) {
	switch name {
	case "all", "":
		return Tasks(d), nil
	case TaskChamps:
		return []*Task{NewChampsTask(d)}, nil
	case TaskMastery:
		return []*Task{NewMasteryTask(d)}, nil
	case TaskItems:
		return []*Task{NewItemsTask(d)}, nil
	}
	return nil, fmt.Errorf("unknown task %q, expected all, champs, mastery or items", name)
}

// transformStage adapts a Transformer, turning an absent result into an error
func transformStage(tr *etl.Transformer, keep func(*table.Table)) func(context.Context, *table.Table) (*table.Table, error) {
	return func(ctx context.Context, in *table.Table) (*table.Table, error) {
		out, status := tr.Run(in)
		if out == nil {
			return nil, fmt.Errorf("%s: %w", status, ErrNoResult)
		}
		if keep != nil {
			keep(out)
		}
		return out, nil
	}
}

func (t *Task) loadStage(loader *etl.Loader, collection, keyField string) func(context.Context, *table.Table) (*table.Table, error) {
	return func(ctx context.Context, in *table.Table) (*table.Table, error) {
		res, err := loader.Load(ctx, collection, in, keyField)
		t.recordLoad(res)
		for result, n := range map[string]int{"written": res.Written, "skipped": res.Skipped, "error": res.Errors} {
			if n > 0 {
				metrics.RowsLoaded.WithLabelValues(collection, result).Add(float64(n))
			}
		}
		if err != nil {
			return nil, err
		}
		return in, nil
	}
}

// rowsWritten sums the documents written per collection across reports
func rowsWritten(reports []TaskReport) map[string]int {
	out := make(map[string]int, len(reports))
	for _, r := range reports {
		if r.Load != nil {
			out[r.Load.Collection] += r.Load.Written
		}
	}
	return out
}
