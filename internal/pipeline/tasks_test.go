package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legends/internal/config"
	"legends/internal/ddragon"
	"legends/internal/etl"
	"legends/internal/riot"
	"legends/internal/store"
	"legends/internal/table"
)

type fakeDDragon struct {
	err error
}

func (f *fakeDDragon) LatestVersion(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "14.1.1", nil
}

func (f *fakeDDragon) Champions(ctx context.Context, version string) (map[string]ddragon.Champion, error) {
	return map[string]ddragon.Champion{
		"Aatrox": {ID: "Aatrox", Key: "266", Name: "Aatrox", Title: "the Darkin Blade", Tags: []string{"Fighter"},
			Partype: "Blood Well", Info: ddragon.ChampionInfo{Attack: 8}, Stats: map[string]float64{"hp": 650}},
		"Ahri": {ID: "Ahri", Key: "103", Name: "Ahri", Title: "the Nine-Tailed Fox", Tags: []string{"Mage"},
			Partype: "Mana", Info: ddragon.ChampionInfo{Magic: 8}, Stats: map[string]float64{"hp": 590}},
		"Annie": {ID: "Annie", Key: "1", Name: "Annie", Title: "the Dark Child", Tags: []string{"Mage"},
			Partype: "Mana", Stats: map[string]float64{"hp": 560}},
	}, nil
}

func (f *fakeDDragon) Items(ctx context.Context, version string) (map[string]ddragon.Item, error) {
	var boots ddragon.Item
	if err := json.Unmarshal([]byte(`{"name":"Botas","plaintext":"rápido","description":"<p>","gold":{"total":300}}`), &boots); err != nil {
		return nil, err
	}
	return map[string]ddragon.Item{"1001": boots}, nil
}

type fakeRiot struct{}

func (fakeRiot) ChampionMasteries(ctx context.Context, puuid string) ([]riot.ChampionMastery, error) {
	return []riot.ChampionMastery{
		{PUUID: puuid, ChampionID: 103, ChampionLevel: 4, ChampionPoints: 10000, LastPlayTime: 1690000000000},
		{PUUID: puuid, ChampionID: 266, ChampionLevel: 7, ChampionPoints: 500000, LastPlayTime: 1700000000000, ChestGranted: true},
	}, nil
}

func newDeps(t *testing.T, dd *fakeDDragon) (*Deps, string) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.SetDataDir(filepath.Join(dir, "data"))
	cfg.PUUID = "p-1"

	uri := "sqlite://" + filepath.Join(dir, "legends.db")
	return &Deps{
		Config:    cfg,
		Champions: dd,
		Items:     dd,
		Mastery:   fakeRiot{},
		Loader: &etl.Loader{Open: func(ctx context.Context) (store.Store, error) {
			return store.Open(ctx, uri, cfg.StoreDatabase)
		}},
		Artifacts: NewArtifacts(),
	}, uri
}

func TestTasks_FullRun(t *testing.T) {
	ctx := context.Background()
	deps, uri := newDeps(t, &fakeDDragon{})

	rep, err := (&Coordinator{Tasks: Tasks(deps)}).Run(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Tasks, 3)
	assert.Equal(t, []string{"champs", "mastery", "items"}, []string{rep.Tasks[0].Task, rep.Tasks[1].Task, rep.Tasks[2].Task})

	final, err := table.ReadCSV(deps.Config.Mastery.Final)
	require.NoError(t, err)
	assert.Equal(t, etl.FinalColumns, final.Columns[:len(etl.FinalColumns)])
	assert.Equal(t, []string{"266", "103"}, final.Column("key"))
	assert.Equal(t, []string{"Aatrox", "Ahri"}, final.Column("champion"))

	require.NotNil(t, rep.Tasks[1].Join)
	assert.Equal(t, 1, rep.Tasks[1].Join.RightUnmatched)

	s, err := store.Open(ctx, uri, "pylegends")
	require.NoError(t, err)
	defer s.Close(ctx)

	for collection, want := range map[string]int64{"champs": 3, "mastery": 2, "items": 1} {
		n, err := s.Count(ctx, collection)
		require.NoError(t, err)
		assert.Equal(t, want, n, collection)
	}

	item, err := s.Get(ctx, "items", "name", "Botas")
	require.NoError(t, err)
	assert.Equal(t, "rápido", item["summary"])
	assert.NotContains(t, item, "description")

	// loading again must not duplicate documents
	_, err = (&Coordinator{Tasks: Tasks(deps)}).Run(ctx)
	require.NoError(t, err)
	n, err := s.Count(ctx, "mastery")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMasteryTask_JoinsChampionCheckpoint(t *testing.T) {
	ctx := context.Background()
	deps, _ := newDeps(t, &fakeDDragon{})

	_, err := NewChampsTask(deps).Run(ctx)
	require.NoError(t, err)

	// a fresh process has no in-memory champion table
	deps.Artifacts = NewArtifacts()
	rep, err := NewMasteryTask(deps).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Load.Written)
}

func TestMasteryTask_WithoutChampionsFails(t *testing.T) {
	deps, _ := newDeps(t, &fakeDDragon{})

	_, err := NewMasteryTask(deps).Run(context.Background())

	var serr *StageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "join", serr.Stage)
	assert.ErrorIs(t, err, etl.ErrNoInput)
}

func TestChampsTask_ExtractFailureFallsBackToCheckpoint(t *testing.T) {
	ctx := context.Background()
	deps, _ := newDeps(t, &fakeDDragon{})

	_, err := NewChampsTask(deps).Run(ctx)
	require.NoError(t, err)

	deps.Champions = &fakeDDragon{err: ddragon.ErrNoVersion}
	rep, err := NewChampsTask(deps).Run(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, rep.Stages[0].Err, ddragon.ErrNoVersion)
	assert.Equal(t, 3, rep.Load.Written)
}

func TestChampsTask_NoDataAnywhere(t *testing.T) {
	deps, _ := newDeps(t, &fakeDDragon{err: errors.New("offline")})

	_, err := NewChampsTask(deps).Run(context.Background())
	require.ErrorIs(t, err, ErrNoResult)
}

func TestTasks_WithoutCheckpoints(t *testing.T) {
	deps, _ := newDeps(t, &fakeDDragon{})
	deps.Config.Checkpoints = false

	_, err := (&Coordinator{Tasks: Tasks(deps)}).Run(context.Background())
	require.NoError(t, err)
	assert.NoFileExists(t, deps.Config.Mastery.Final)
}

func TestTaskByName(t *testing.T) {
	deps, _ := newDeps(t, &fakeDDragon{})

	all, err := TaskByName(deps, "all")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	one, err := TaskByName(deps, "items")
	require.NoError(t, err)
	assert.Equal(t, "items", one[0].Name)

	_, err = TaskByName(deps, "runes")
	require.Error(t, err)
}
