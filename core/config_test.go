package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/huangsam/leadscore/internal/persist"
	"github.com/huangsam/leadscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func bantWeights(budget, authority, need, timeline int) schema.WeightSet {
	return schema.NewWeightSet(
		schema.WeightEntry{Key: schema.DimBudget, Value: budget},
		schema.WeightEntry{Key: schema.DimAuthority, Value: authority},
		schema.WeightEntry{Key: schema.DimNeed, Value: need},
		schema.WeightEntry{Key: schema.DimTimeline, Value: timeline},
	)
}

func storedBANT(t *testing.T, weights schema.WeightSet, version int) schema.FrameworkConfig {
	t.Helper()
	cfg := defaultConfig(t, schema.BANT).WithWeights(weights)
	cfg.Version = version
	return cfg
}

// savedAs mimics a store that bumps the version on every write.
func savedAs(cfg schema.FrameworkConfig) schema.FrameworkConfig {
	cfg.Version++
	return cfg
}

func TestConfigServiceLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing stored uses defaults", func(t *testing.T) {
		store := &persist.MockConfigStore{}
		store.On("Get", mock.Anything, "acme", schema.BANT).Return(schema.FrameworkConfig{}, schema.ErrConfigNotFound)

		cfg, err := NewConfigService(store, nil).Load(ctx, "acme", schema.BANT)
		require.NoError(t, err)
		assert.Zero(t, cfg.Version)
		assert.True(t, cfg.Weights.Equal(bantWeights(25, 25, 25, 25)))
		assert.Equal(t, schema.ThresholdSet{HotMin: 71, WarmMin: 40}, cfg.Thresholds)
		store.AssertExpectations(t)
	})

	t.Run("stored config is returned in dimension order", func(t *testing.T) {
		stored := storedBANT(t, schema.NewWeightSet(
			schema.WeightEntry{Key: schema.DimTimeline, Value: 10},
			schema.WeightEntry{Key: schema.DimBudget, Value: 70},
			schema.WeightEntry{Key: schema.DimNeed, Value: 10},
			schema.WeightEntry{Key: schema.DimAuthority, Value: 10},
		), 3)
		store := &persist.MockConfigStore{}
		store.On("Get", mock.Anything, "acme", schema.BANT).Return(stored, nil)

		cfg, err := NewConfigService(store, nil).Load(ctx, "acme", schema.BANT)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Version)
		assert.Equal(t, []schema.DimensionKey{schema.DimBudget, schema.DimAuthority, schema.DimNeed, schema.DimTimeline}, cfg.Weights.Keys())
	})

	t.Run("store failure", func(t *testing.T) {
		store := &persist.MockConfigStore{}
		store.On("Get", mock.Anything, "acme", schema.APEX).Return(schema.FrameworkConfig{}, errors.New("connection refused"))

		_, err := NewConfigService(store, nil).Load(ctx, "acme", schema.APEX)
		assert.ErrorContains(t, err, `failed to load APEX configuration for tenant "acme": connection refused`)
	})

	t.Run("no store", func(t *testing.T) {
		cfg, err := NewConfigService(nil, nil).Load(ctx, "acme", schema.SPICE)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Weights.Len())
		assert.Equal(t, 100, cfg.Weights.Sum())
	})

	t.Run("unknown framework", func(t *testing.T) {
		_, err := NewConfigService(nil, nil).Load(ctx, "acme", "CHAMP")
		assert.ErrorIs(t, err, schema.ErrUnknownFramework)
	})
}

func TestConfigServiceDefaultsOverride(t *testing.T) {
	strict := defaultConfig(t, schema.MDCP).WithThresholds(schema.ThresholdProfiles["strict"])
	strict.Version = 9
	svc := NewConfigService(nil, map[schema.FrameworkID]schema.FrameworkConfig{schema.MDCP: strict})

	cfg, err := svc.Default(schema.MDCP)
	require.NoError(t, err)
	assert.Equal(t, schema.ThresholdSet{HotMin: 80, WarmMin: 60}, cfg.Thresholds)
	assert.Zero(t, cfg.Version)

	other, err := svc.Default(schema.BANT)
	require.NoError(t, err)
	assert.Equal(t, schema.ThresholdSet{HotMin: 71, WarmMin: 40}, other.Thresholds)
}

func TestConfigServiceSetWeight(t *testing.T) {
	ctx := context.Background()

	t.Run("rebalance and save", func(t *testing.T) {
		store := &persist.MockConfigStore{}
		store.On("Get", mock.Anything, "acme", schema.BANT).Return(schema.FrameworkConfig{}, schema.ErrConfigNotFound)
		want := bantWeights(70, 10, 10, 10)
		store.On("Put", mock.Anything, "acme", mock.MatchedBy(func(cfg schema.FrameworkConfig) bool {
			return cfg.Version == 0 && cfg.Weights.Equal(want)
		})).Return(savedAs(storedBANT(t, want, 0)), nil)

		cfg, err := NewConfigService(store, nil).SetWeight(ctx, "acme", schema.BANT, schema.DimBudget, 70, false)
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.Version)
		assert.True(t, cfg.Weights.Equal(want))
		store.AssertExpectations(t)
	})

	t.Run("clamped proposal is not saved", func(t *testing.T) {
		store := &persist.MockConfigStore{}
		store.On("Get", mock.Anything, "acme", schema.BANT).Return(storedBANT(t, bantWeights(70, 10, 10, 10), 1), nil)

		cfg, err := NewConfigService(store, nil).SetWeight(ctx, "acme", schema.BANT, schema.DimNeed, 100, false)
		unbalanced, ok := schema.AsUnbalanced(err)
		require.True(t, ok)
		assert.Equal(t, []schema.DimensionKey{schema.DimAuthority, schema.DimTimeline}, unbalanced.Clamped)
		assert.True(t, cfg.Weights.Equal(bantWeights(0, 0, 100, 0)))
		assert.Equal(t, 1, cfg.Version)
		store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("clamped proposal saved when accepted", func(t *testing.T) {
		store := &persist.MockConfigStore{}
		stored := storedBANT(t, bantWeights(70, 10, 10, 10), 1)
		store.On("Get", mock.Anything, "acme", schema.BANT).Return(stored, nil)
		store.On("Put", mock.Anything, "acme", mock.Anything).Return(savedAs(stored.WithWeights(bantWeights(0, 0, 100, 0))), nil)

		cfg, err := NewConfigService(store, nil).SetWeight(ctx, "acme", schema.BANT, schema.DimNeed, 100, true)
		_, ok := schema.AsUnbalanced(err)
		assert.True(t, ok)
		assert.Equal(t, 2, cfg.Version)
		store.AssertExpectations(t)
	})

	t.Run("rejected edits", func(t *testing.T) {
		store := &persist.MockConfigStore{}
		store.On("Get", mock.Anything, "acme", schema.BANT).Return(schema.FrameworkConfig{}, schema.ErrConfigNotFound)
		svc := NewConfigService(store, nil)

		_, err := svc.SetWeight(ctx, "acme", schema.BANT, "champion", 10, false)
		assert.ErrorIs(t, err, schema.ErrUnknownDimension)

		_, err = svc.SetWeight(ctx, "acme", schema.BANT, schema.DimNeed, 101, false)
		assert.ErrorIs(t, err, schema.ErrWeightOutOfRange)

		store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestConfigServiceSetThresholds(t *testing.T) {
	ctx := context.Background()
	store := &persist.MockConfigStore{}
	store.On("Get", mock.Anything, "acme", schema.BANT).Return(schema.FrameworkConfig{}, schema.ErrConfigNotFound)
	store.On("Put", mock.Anything, "acme", mock.MatchedBy(func(cfg schema.FrameworkConfig) bool {
		return cfg.Thresholds == schema.ThresholdSet{HotMin: 80, WarmMin: 60}
	})).Return(savedAs(defaultConfig(t, schema.BANT).WithThresholds(schema.ThresholdSet{HotMin: 80, WarmMin: 60})), nil)
	svc := NewConfigService(store, nil)

	cfg, err := svc.SetThresholds(ctx, "acme", schema.BANT, schema.ThresholdSet{HotMin: 80, WarmMin: 60})
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Version)

	_, err = svc.SetThresholds(ctx, "acme", schema.BANT, schema.ThresholdSet{HotMin: 40, WarmMin: 40})
	require.Error(t, err)
	assert.True(t, schema.IsInvalidConfiguration(err))
	assert.ErrorIs(t, err, schema.ErrInvalidThresholds)
	store.AssertNumberOfCalls(t, "Put", 1)
}

func TestConfigServiceSave(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid weights never reach the store", func(t *testing.T) {
		store := &persist.MockConfigStore{}
		_, err := NewConfigService(store, nil).Save(ctx, "acme", storedBANT(t, bantWeights(70, 70, 0, 0), 1))

		var invalid *schema.InvalidConfigurationError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, []string{"weights sum to 140, want 100"}, invalid.Violations())
		store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("version conflict", func(t *testing.T) {
		store := &persist.MockConfigStore{}
		store.On("Put", mock.Anything, "acme", mock.Anything).Return(schema.FrameworkConfig{}, schema.ErrVersionConflict)

		_, err := NewConfigService(store, nil).Save(ctx, "acme", storedBANT(t, bantWeights(40, 20, 20, 20), 1))
		assert.ErrorIs(t, err, schema.ErrVersionConflict)
	})

	t.Run("no store", func(t *testing.T) {
		_, err := NewConfigService(nil, nil).Save(ctx, "acme", defaultConfig(t, schema.BANT))
		assert.ErrorIs(t, err, schema.ErrPersistenceDisabled)
	})
}

func TestConfigServiceReset(t *testing.T) {
	ctx := context.Background()
	store := &persist.MockConfigStore{}
	store.On("Delete", mock.Anything, "acme", schema.BANT).Return(nil)
	store.On("Delete", mock.Anything, "acme", schema.APEX).Return(schema.ErrConfigNotFound)
	store.On("Delete", mock.Anything, "acme", schema.MDCP).Return(errors.New("disk full"))
	svc := NewConfigService(store, nil)

	assert.NoError(t, svc.Reset(ctx, "acme", schema.BANT))
	assert.NoError(t, svc.Reset(ctx, "acme", schema.APEX))
	assert.ErrorContains(t, svc.Reset(ctx, "acme", schema.MDCP), "disk full")
	assert.ErrorIs(t, svc.Reset(ctx, "acme", "CHAMP"), schema.ErrUnknownFramework)
	assert.ErrorIs(t, NewConfigService(nil, nil).Reset(ctx, "acme", schema.BANT), schema.ErrPersistenceDisabled)
}

func TestImportConfigsRollsBackOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	doc := `tenant: acme
frameworks:
  - framework_id: BANT
    weights: {budget: 20, authority: 20, need: 20, timeline: 40}
    thresholds: {hot_min: 71, warm_min: 40}
  - framework_id: MDCP
    weights: {market: 25, decision_maker: 25, company: 25, pain: 25}
    thresholds: {hot_min: 80, warm_min: 60}
  - framework_id: APEX
    weights: {ability: 25, priority: 25, engagement: 25, executive: 25}
    thresholds: {hot_min: 70, warm_min: 40}
`
	isBANT := func(weights schema.WeightSet, version int) any {
		return mock.MatchedBy(func(cfg schema.FrameworkConfig) bool {
			return cfg.Framework == schema.BANT && cfg.Version == version && cfg.Weights.Equal(weights)
		})
	}
	stored := storedBANT(t, bantWeights(70, 10, 10, 10), 1)
	imported := bantWeights(20, 20, 20, 40)

	store := &persist.MockConfigStore{}
	store.On("Get", mock.Anything, "acme", schema.BANT).Return(stored, nil)
	store.On("Put", mock.Anything, "acme", isBANT(imported, 1)).Return(storedBANT(t, imported, 2), nil).Once()
	store.On("Get", mock.Anything, "acme", schema.MDCP).Return(schema.FrameworkConfig{}, schema.ErrConfigNotFound)
	store.On("Put", mock.Anything, "acme", mock.MatchedBy(func(cfg schema.FrameworkConfig) bool {
		return cfg.Framework == schema.MDCP
	})).Return(func() schema.FrameworkConfig {
		cfg := defaultConfig(t, schema.MDCP)
		cfg.Version = 1
		return cfg
	}(), nil).Once()
	store.On("Get", mock.Anything, "acme", schema.APEX).Return(schema.FrameworkConfig{}, schema.ErrConfigNotFound)
	store.On("Put", mock.Anything, "acme", mock.MatchedBy(func(cfg schema.FrameworkConfig) bool {
		return cfg.Framework == schema.APEX
	})).Return(schema.FrameworkConfig{}, schema.ErrVersionConflict).Once()

	// Rollback: MDCP had nothing stored, BANT gets its old weights back.
	store.On("Delete", mock.Anything, "acme", schema.MDCP).Return(nil).Once()
	store.On("Put", mock.Anything, "acme", isBANT(bantWeights(70, 10, 10, 10), 2)).Return(storedBANT(t, bantWeights(70, 10, 10, 10), 3), nil).Once()

	saved, err := ImportConfigs(ctx, NewConfigService(store, nil), "acme", strings.NewReader(doc))
	require.ErrorIs(t, err, schema.ErrVersionConflict)
	assert.Nil(t, saved)
	store.AssertExpectations(t)
}
