package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/schema"
)

// ConfigService loads and edits tenant framework configurations.
//
// Configurations are values: every edit produces a new copy which is
// validated before it is written, so readers only ever see a whole
// configuration from before or after the edit.
type ConfigService struct {
	store    contract.ConfigStore
	defaults map[schema.FrameworkID]schema.FrameworkConfig
}

// NewConfigService creates a service backed by store. Frameworks missing from
// defaults are seeded with the standard threshold profile. A nil store keeps
// every tenant on the defaults and refuses writes.
func NewConfigService(store contract.ConfigStore, defaults map[schema.FrameworkID]schema.FrameworkConfig) *ConfigService {
	seeded := make(map[schema.FrameworkID]schema.FrameworkConfig, len(schema.AllFrameworks))
	standard := schema.ThresholdProfiles[schema.DefaultThresholdProfile]
	for _, fw := range schema.AllFrameworks {
		if cfg, ok := defaults[fw]; ok {
			seeded[fw] = cfg.Clone()
			continue
		}
		cfg, _ := schema.DefaultFrameworkConfig(fw, standard)
		seeded[fw] = cfg
	}
	return &ConfigService{store: store, defaults: seeded}
}

// Default returns the seeded configuration of a framework.
func (s *ConfigService) Default(fw schema.FrameworkID) (schema.FrameworkConfig, error) {
	cfg, ok := s.defaults[fw]
	if !ok {
		return schema.FrameworkConfig{}, fmt.Errorf("%w: %q", schema.ErrUnknownFramework, fw)
	}
	out := cfg.Clone()
	out.Version = 0
	return out, nil
}

// Load returns the tenant's stored configuration, or the seeded default with
// version 0 when nothing is stored.
func (s *ConfigService) Load(ctx context.Context, tenant string, fw schema.FrameworkID) (schema.FrameworkConfig, error) {
	def, err := s.Default(fw)
	if err != nil {
		return schema.FrameworkConfig{}, err
	}
	if s.store == nil {
		return def, nil
	}

	cfg, err := s.store.Get(ctx, tenant, fw)
	switch {
	case errors.Is(err, schema.ErrConfigNotFound), errors.Is(err, schema.ErrPersistenceDisabled):
		return def, nil
	case err != nil:
		return schema.FrameworkConfig{}, fmt.Errorf("failed to load %s configuration for tenant %q: %w", fw, tenant, err)
	}
	return cfg.Canonical(), nil
}

// LoadAll loads the configuration of each framework in order.
func (s *ConfigService) LoadAll(ctx context.Context, tenant string, frameworks []schema.FrameworkID) ([]schema.FrameworkConfig, error) {
	out := make([]schema.FrameworkConfig, 0, len(frameworks))
	for _, fw := range frameworks {
		cfg, err := s.Load(ctx, tenant, fw)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

// SetWeight rebalances the framework's weights around one edited dimension
// and persists the result.
//
// When the rebalance had to clamp other dimensions the returned error is a
// *schema.UnbalancedWeightsError. If acceptClamped is false nothing is
// written and the proposed configuration is returned for review; otherwise
// the clamped configuration is written and returned along with the advisory.
func (s *ConfigService) SetWeight(ctx context.Context, tenant string, fw schema.FrameworkID, key schema.DimensionKey, value int, acceptClamped bool) (schema.FrameworkConfig, error) {
	cfg, err := s.Load(ctx, tenant, fw)
	if err != nil {
		return schema.FrameworkConfig{}, err
	}

	weights, err := cfg.Weights.SetWeight(key, value)
	unbalanced, clamped := schema.AsUnbalanced(err)
	if err != nil && !clamped {
		return cfg, fmt.Errorf("%s: %w", fw, err)
	}

	proposed := cfg.WithWeights(weights)
	if clamped && !acceptClamped {
		return proposed, unbalanced
	}

	saved, err := s.Save(ctx, tenant, proposed)
	if err != nil {
		return proposed, err
	}
	if clamped {
		return saved, unbalanced
	}
	return saved, nil
}

// SetThresholds replaces the framework's thresholds and persists the result.
func (s *ConfigService) SetThresholds(ctx context.Context, tenant string, fw schema.FrameworkID, thresholds schema.ThresholdSet) (schema.FrameworkConfig, error) {
	cfg, err := s.Load(ctx, tenant, fw)
	if err != nil {
		return schema.FrameworkConfig{}, err
	}
	return s.Save(ctx, tenant, cfg.WithThresholds(thresholds))
}

// Save validates cfg and writes it. cfg.Version must match the stored
// version or schema.ErrVersionConflict is returned.
func (s *ConfigService) Save(ctx context.Context, tenant string, cfg schema.FrameworkConfig) (schema.FrameworkConfig, error) {
	cfg = cfg.Canonical()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if s.store == nil {
		return cfg, schema.ErrPersistenceDisabled
	}
	saved, err := s.store.Put(ctx, tenant, cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to save %s configuration for tenant %q: %w", cfg.Framework, tenant, err)
	}
	return saved, nil
}

// Reset removes the tenant's stored configuration so it scores with defaults again.
func (s *ConfigService) Reset(ctx context.Context, tenant string, fw schema.FrameworkID) error {
	if _, err := s.Default(fw); err != nil {
		return err
	}
	if s.store == nil {
		return schema.ErrPersistenceDisabled
	}
	if err := s.store.Delete(ctx, tenant, fw); err != nil && !errors.Is(err, schema.ErrConfigNotFound) {
		return fmt.Errorf("failed to reset %s configuration for tenant %q: %w", fw, tenant, err)
	}
	return nil
}
