package core

import (
	"context"
	"testing"

	"github.com/huangsam/leadscore/internal/persist"
	"github.com/huangsam/leadscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCheckConfigs(t *testing.T) {
	ctx := context.Background()
	store := &persist.MockConfigStore{}
	store.On("Get", mock.Anything, "acme", schema.BANT).Return(storedBANT(t, bantWeights(70, 70, 0, 0), 2), nil)
	store.On("Get", mock.Anything, "acme", schema.APEX).Return(schema.FrameworkConfig{}, schema.ErrConfigNotFound)

	result, err := CheckConfigs(ctx, NewConfigService(store, nil), "acme", []schema.FrameworkID{schema.APEX, schema.BANT})
	require.NoError(t, err)
	assert.Equal(t, "acme", result.Tenant)
	assert.False(t, result.Passed)
	require.Len(t, result.Frameworks, 2)

	apex := result.Frameworks[0]
	assert.True(t, apex.Valid)
	assert.False(t, apex.Stored)
	assert.Equal(t, 100, apex.WeightSum)

	bant := result.Frameworks[1]
	assert.False(t, bant.Valid)
	assert.True(t, bant.Stored)
	assert.Equal(t, 2, bant.Version)
	assert.Equal(t, 140, bant.WeightSum)
	assert.Equal(t, []string{"weights sum to 140, want 100"}, bant.Violations)
}

func TestExecuteConfigCheck(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)
	cfg := testConfig(t, schema.AllFrameworks...)
	cfg.Output = schema.CSVOut

	require.NoError(t, ExecuteConfigCheck(ctx, cfg, mgr))

	bad, err := schema.DefaultFrameworkConfig(schema.SPICE, schema.ThresholdSet{HotMin: 30, WarmMin: 60})
	require.NoError(t, err)
	cfg.FrameworkConfigs = map[schema.FrameworkID]schema.FrameworkConfig{schema.SPICE: bad}
	err = ExecuteConfigCheck(ctx, cfg, mgr)
	assert.ErrorContains(t, err, "1 framework configuration(s) failed validation")
}
