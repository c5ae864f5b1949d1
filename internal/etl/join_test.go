package etl

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legends/internal/table"
)

func cleanChamps() *table.Table {
	tbl := table.New("key", "champion", "title", "tags", "attack", "hp")
	tbl.Append(table.Row{"key": "1", "champion": "Annie", "title": "the Dark Child", "tags": `["Mage"]`, "attack": "2", "hp": "560"})
	tbl.Append(table.Row{"key": "103", "champion": "Ahri", "title": "the Nine-Tailed Fox", "tags": `["Mage"]`, "attack": "3", "hp": "590"})
	tbl.Append(table.Row{"key": "266", "champion": "Aatrox", "title": "the Darkin Blade", "tags": `["Fighter"]`, "attack": "8", "hp": "650"})
	return tbl
}

func cleanMastery(t *testing.T) *table.Table {
	t.Helper()
	out, status := NewMasteryTransformer("", "", nil).Run(rawMastery(
		[3]string{"103", "4", "10000"},
		[3]string{"266", "7", "500000"},
		[3]string{"999", "1", "10"},
	))
	require.NotNil(t, out, status)
	return out
}

func TestJoiner_CanonicalOrderAndRowSet(t *testing.T) {
	final := filepath.Join(t.TempDir(), "mastery", "final.csv")
	j := &Joiner{FinalPath: final}

	res, err := j.Run(cleanMastery(t), cleanChamps())
	require.NoError(t, err)

	out := res.Table
	assert.Equal(t, []string{
		"rank", "key", "champion", "title", "level", "tags", "points", "last", "next", "chest", "tokens", "final",
		"attack", "hp", "since",
	}, out.Columns)
	assert.Equal(t, []string{"266", "103"}, out.Column("key"))
	assert.Equal(t, 2, res.Stats.Matched)
	assert.Equal(t, 1, res.Stats.LeftUnmatched)
	assert.Equal(t, 1, res.Stats.RightUnmatched)

	saved, err := table.ReadCSV(final)
	require.NoError(t, err)
	assert.Equal(t, out.Columns, saved.Columns)
	assert.Equal(t, out.Rows, saved.Rows)
}

func TestJoiner_ReadsChampionCheckpoint(t *testing.T) {
	dir := t.TempDir()
	champsPath := filepath.Join(dir, "champs", "clean.csv")
	require.NoError(t, cleanChamps().WriteCSV(champsPath))

	res, err := (&Joiner{ChampsPath: champsPath}).Run(cleanMastery(t), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aatrox", "Ahri"}, res.Table.Column("champion"))
}

func TestJoiner_MissingChampionFile(t *testing.T) {
	res, err := (&Joiner{ChampsPath: filepath.Join(t.TempDir(), "clean.csv")}).Run(cleanMastery(t), nil)

	require.ErrorIs(t, err, ErrNoInput)
	assert.Nil(t, res.Table)
	assert.Contains(t, res.Status, "file not found")
}

func TestJoiner_DuplicateChampionKeys(t *testing.T) {
	champs := cleanChamps()
	champs.Append(table.Row{"key": "266", "champion": "Aatrox (copy)"})

	_, err := (&Joiner{}).Run(cleanMastery(t), champs)
	require.ErrorIs(t, err, table.ErrDuplicateKey)

	res, err := (&Joiner{Validate: table.ManyToMany}).Run(cleanMastery(t), champs)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Table.Len())
}
