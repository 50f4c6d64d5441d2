package persist

import (
	"context"
	"testing"
	"time"

	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

func standardConfig(t *testing.T, fw schema.FrameworkID) schema.FrameworkConfig {
	t.Helper()
	fc, err := schema.DefaultFrameworkConfig(fw, schema.ThresholdProfiles[schema.DefaultThresholdProfile])
	require.NoError(t, err)
	return fc
}

func newSQLiteConfigStore(t *testing.T) *ConfigStoreImpl {
	t.Helper()
	store, err := NewConfigStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	impl := store.(*ConfigStoreImpl)
	impl.now = func() time.Time { return fixedNow }
	return impl
}

// exerciseConfigStore runs the same contract against any ConfigStore.
func exerciseConfigStore(t *testing.T, store contract.ConfigStore) {
	ctx := context.Background()

	_, err := store.Get(ctx, "acme", schema.BANT)
	assert.ErrorIs(t, err, schema.ErrConfigNotFound)

	fc := standardConfig(t, schema.BANT)
	ws, err := fc.Weights.SetWeight(schema.DimBudget, 40)
	require.NoError(t, err)
	fc = fc.WithWeights(ws)

	saved, err := store.Put(ctx, "acme", fc)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Version)
	assert.Equal(t, fixedNow, saved.UpdatedAt)

	got, err := store.Get(ctx, "acme", schema.BANT)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.True(t, fixedNow.Equal(got.UpdatedAt))
	assert.True(t, ws.Equal(got.Weights), "weights should round trip in order")
	assert.Equal(t, []schema.DimensionKey{schema.DimBudget, schema.DimAuthority, schema.DimNeed, schema.DimTimeline}, got.Weights.Keys())
	assert.Equal(t, fc.Thresholds, got.Thresholds)
	assert.InDelta(t, 250_000, got.Dimensions[schema.DimBudget].Max, 0)
	assert.NoError(t, got.Validate())

	// A stale writer loses.
	_, err = store.Put(ctx, "acme", fc)
	assert.ErrorIs(t, err, schema.ErrVersionConflict)

	// The current writer wins and bumps the version.
	next, err := store.Put(ctx, "acme", got.WithThresholds(schema.ThresholdSet{HotMin: 80, WarmMin: 60}))
	require.NoError(t, err)
	assert.Equal(t, 2, next.Version)

	// Other tenants are isolated.
	_, err = store.Get(ctx, "globex", schema.BANT)
	assert.ErrorIs(t, err, schema.ErrConfigNotFound)

	_, err = store.Put(ctx, "acme", standardConfig(t, schema.APEX))
	require.NoError(t, err)
	list, err := store.List(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, schema.APEX, list[0].Framework)
	assert.Equal(t, schema.BANT, list[1].Framework)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 2, status.TotalConfigs)
	assert.Equal(t, 1, status.TotalTenants)
	assert.True(t, fixedNow.Equal(status.LastUpdated))

	require.NoError(t, store.Delete(ctx, "acme", schema.BANT))
	require.NoError(t, store.Delete(ctx, "acme", schema.BANT), "deleting twice is fine")
	_, err = store.Get(ctx, "acme", schema.BANT)
	assert.ErrorIs(t, err, schema.ErrConfigNotFound)
}

func TestSQLiteConfigStore(t *testing.T) {
	exerciseConfigStore(t, newSQLiteConfigStore(t))
}

func TestConfigStore_RejectsInvalidConfig(t *testing.T) {
	store := newSQLiteConfigStore(t)
	fc := standardConfig(t, schema.SPICE)
	fc = fc.WithWeights(schema.NewWeightSet(
		schema.WeightEntry{Key: schema.DimSituation, Value: 50},
		schema.WeightEntry{Key: schema.DimPain, Value: 10},
	))

	_, err := store.Put(context.Background(), "acme", fc)
	require.Error(t, err)
	assert.True(t, schema.IsInvalidConfiguration(err))
}

func TestNoneConfigStore(t *testing.T) {
	store, err := NewConfigStore(schema.NoneBackend, "")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, "acme", schema.BANT)
	assert.ErrorIs(t, err, schema.ErrPersistenceDisabled)

	_, err = store.Put(ctx, "acme", standardConfig(t, schema.BANT))
	assert.ErrorIs(t, err, schema.ErrPersistenceDisabled)

	list, err := store.List(ctx, "acme")
	assert.NoError(t, err)
	assert.Empty(t, list)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "none", status.Backend)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestNewConfigStore_UnsupportedBackend(t *testing.T) {
	_, err := NewConfigStore("oracle", "")
	assert.Error(t, err)
}
