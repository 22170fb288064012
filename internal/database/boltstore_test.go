package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hatoview/internal/userconfig"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "data", "hatoview.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutAndGetConfig(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.PutConfig(ctx, []ConfigRecord{
		{User: "admin", Name: "num-events-per-page", Value: 20},
		{User: "admin", Name: "color", Value: "red and blue"},
		{User: "guest", Name: "num-events-per-page", Value: 100},
	}))

	records, err := store.GetConfig(ctx, "admin", []string{"num-events-per-page", "missing"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, float64(20), records[0].Value)
	assert.False(t, records[0].UpdatedAt.IsZero())

	users, err := store.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "guest"}, users)

	n, err := store.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestNilValueRemovesItem(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.PutConfig(ctx, []ConfigRecord{{User: "admin", Name: "level", Value: 99}}))
	require.NoError(t, store.PutConfig(ctx, []ConfigRecord{{User: "admin", Name: "level", Value: nil}}))

	records, err := store.GetConfig(ctx, "admin", []string{"level"})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestEmptyUserRejected(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, err := store.GetConfig(ctx, "", []string{"x"})
	assert.ErrorIs(t, err, ErrEmptyUser)
	assert.ErrorIs(t, store.PutConfig(ctx, []ConfigRecord{{Name: "x", Value: 1}}), ErrEmptyUser)
}

func TestDeleteUserAndStats(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.PutConfig(ctx, []ConfigRecord{
		{User: "admin", Name: "a", Value: 1},
		{User: "admin", Name: "b", Value: true},
		{User: "guest", Name: "a", Value: "x"},
	}))

	stats, err := store.GetDatabaseStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 3, stats.TotalItems)
	assert.Greater(t, stats.DatabaseSize, int64(0))
	assert.False(t, stats.NewestUpdate.IsZero())

	require.NoError(t, store.DeleteConfig(ctx, "admin", "b"))
	require.NoError(t, store.DeleteUser(ctx, "guest"))
	require.NoError(t, store.DeleteUser(ctx, "nobody"))

	users, err := store.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, users)

	n, err := store.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUserConfigAdapter(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	var cfg userconfig.Store = store.UserConfig("admin", nil)
	require.NoError(t, cfg.Store(ctx, userconfig.Items{"num-triggers-per-page": 30, "minimum-severity": "2"}))

	items, err := cfg.Get(ctx, []string{"num-triggers-per-page", "minimum-severity", "unset"})
	require.NoError(t, err)
	assert.Equal(t, userconfig.Items{
		"num-triggers-per-page": float64(30),
		"minimum-severity":      "2",
		"unset":                 nil,
	}, items)

	other, err := store.UserConfig("guest", nil).Get(ctx, []string{"num-triggers-per-page"})
	require.NoError(t, err)
	assert.Nil(t, other["num-triggers-per-page"])
}
