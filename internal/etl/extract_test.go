package etl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legends/internal/ddragon"
	"legends/internal/riot"
	"legends/internal/table"
)

type fakeDDragon struct {
	version    string
	versionErr error
	champs     map[string]ddragon.Champion
	items      map[string]ddragon.Item
	calls      int
}

func (f *fakeDDragon) LatestVersion(ctx context.Context) (string, error) {
	return f.version, f.versionErr
}

func (f *fakeDDragon) Champions(ctx context.Context, version string) (map[string]ddragon.Champion, error) {
	f.calls++
	return f.champs, nil
}

func (f *fakeDDragon) Items(ctx context.Context, version string) (map[string]ddragon.Item, error) {
	f.calls++
	return f.items, nil
}

type fakeRiot struct {
	masteries []riot.ChampionMastery
	err       error
}

func (f *fakeRiot) ChampionMasteries(ctx context.Context, puuid string) ([]riot.ChampionMastery, error) {
	return f.masteries, f.err
}

func TestChampsExtractor_WritesRawCheckpoint(t *testing.T) {
	raw := filepath.Join(t.TempDir(), "champs", "raw.csv")
	src := &fakeDDragon{version: "14.1.1", champs: map[string]ddragon.Champion{"Aatrox": aatrox()}}

	tbl, err := (&ChampsExtractor{Source: src, RawPath: raw}).Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())

	saved, err := table.ReadCSV(raw)
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns, saved.Columns)
	assert.Equal(t, "266", saved.Rows[0]["key"])
}

func TestChampsExtractor_NoVersionSkipsFetch(t *testing.T) {
	src := &fakeDDragon{versionErr: ddragon.ErrNoVersion}

	_, err := (&ChampsExtractor{Source: src}).Extract(context.Background())
	require.ErrorIs(t, err, ddragon.ErrNoVersion)
	assert.Zero(t, src.calls)
}

func TestItemsExtractor_EmptyPayloadKeepsPreviousCheckpoint(t *testing.T) {
	raw := filepath.Join(t.TempDir(), "raw.csv")
	require.NoError(t, os.WriteFile(raw, []byte("id,name\n1001,Botas\n"), 0644))

	src := &fakeDDragon{version: "14.1.1", items: map[string]ddragon.Item{}}

	tbl, err := (&ItemsExtractor{Source: src, RawPath: raw}).Extract(context.Background())
	require.ErrorIs(t, err, ErrEmptyPayload)
	assert.Nil(t, tbl)

	data, err := os.ReadFile(raw)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1001,Botas\n", string(data))
}

func TestMasteryExtractor_FetchErrorWritesNothing(t *testing.T) {
	raw := filepath.Join(t.TempDir(), "raw.csv")
	src := &fakeRiot{err: errors.New("boom")}

	_, err := (&MasteryExtractor{Source: src, PUUID: "p", RawPath: raw}).Extract(context.Background())
	require.Error(t, err)

	_, statErr := os.Stat(raw)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMasteryExtractor_CheckpointsDisabled(t *testing.T) {
	src := &fakeRiot{masteries: []riot.ChampionMastery{{ChampionID: 266, ChampionLevel: 7}}}

	tbl, err := (&MasteryExtractor{Source: src, PUUID: "p"}).Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
}
