package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) Store {
	t.Helper()
	uri := "sqlite://" + filepath.Join(t.TempDir(), "legends.db")
	s, err := Open(context.Background(), uri, "pylegends")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestSQLStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	doc := Document{"key": int64(266), "champion": "Aatrox", "points": int64(250000)}
	require.NoError(t, s.Upsert(ctx, "mastery", "key", doc))
	require.NoError(t, s.Upsert(ctx, "mastery", "key", doc))

	n, err := s.Count(ctx, "mastery")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLStore_UpsertReplacesWithLatestValues(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	require.NoError(t, s.Upsert(ctx, "mastery", "key", Document{"key": int64(266), "level": int64(6)}))
	require.NoError(t, s.Upsert(ctx, "mastery", "key", Document{"key": int64(266), "level": int64(7)}))

	got, err := s.Get(ctx, "mastery", "key", int64(266))
	require.NoError(t, err)
	assert.EqualValues(t, 7, got["level"])
}

func TestSQLStore_CollectionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	require.NoError(t, s.Upsert(ctx, "items", "name", Document{"name": "Botas"}))
	require.NoError(t, s.Upsert(ctx, "champs", "key", Document{"key": int64(1)}))
	require.NoError(t, s.Upsert(ctx, "champs", "key", Document{"key": int64(2)}))

	items, err := s.Count(ctx, "items")
	require.NoError(t, err)
	champs, err := s.Count(ctx, "champs")
	require.NoError(t, err)

	assert.Equal(t, int64(1), items)
	assert.Equal(t, int64(2), champs)
}

func TestSQLStore_GetMissing(t *testing.T) {
	s := openTestSQLite(t)

	_, err := s.Get(context.Background(), "items", "name", "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_UpsertWithoutKey(t *testing.T) {
	s := openTestSQLite(t)

	err := s.Upsert(context.Background(), "items", "name", Document{"gold_total": int64(300)})
	require.ErrorIs(t, err, ErrMissingKey)
}
