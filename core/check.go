package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/internal/outwriter"
	"github.com/huangsam/leadscore/schema"
)

// ExecuteConfigCheck runs the preflight gate for CI/CD and deploys.
// It validates every selected framework configuration of the tenant and
// returns an error if any of them would be refused by the engine.
func ExecuteConfigCheck(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()

	svc := NewConfigService(mgr.GetConfigStore(), cfg.FrameworkConfigs)
	result, err := CheckConfigs(ctx, svc, cfg.Tenant, cfg.Frameworks)
	if err != nil {
		return err
	}

	if err := outwriter.PrintCheckResult(result, cfg, time.Since(start)); err != nil {
		return err
	}
	if !result.Passed {
		failed := 0
		for _, fc := range result.Frameworks {
			if !fc.Valid {
				failed++
			}
		}
		return fmt.Errorf("%d framework configuration(s) failed validation", failed)
	}
	return nil
}

// CheckConfigs loads and validates each framework configuration.
// Only a store failure is returned as an error; violations are reported in the result.
func CheckConfigs(ctx context.Context, svc *ConfigService, tenant string, frameworks []schema.FrameworkID) (schema.CheckResult, error) {
	result := schema.CheckResult{Tenant: tenant, Passed: true}
	for _, fw := range frameworks {
		fc, err := svc.Load(ctx, tenant, fw)
		if err != nil {
			return result, err
		}
		check := schema.FrameworkCheck{
			Framework:  fw,
			Valid:      true,
			Stored:     fc.Version > 0,
			Version:    fc.Version,
			WeightSum:  fc.Weights.Sum(),
			Thresholds: fc.Thresholds,
		}
		if err := fc.Validate(); err != nil {
			check.Valid = false
			check.Violations = violations(err)
			result.Passed = false
		}
		result.Frameworks = append(result.Frameworks, check)
	}
	return result, nil
}

func violations(err error) []string {
	var invalid *schema.InvalidConfigurationError
	if errors.As(err, &invalid) {
		return invalid.Violations()
	}
	return []string{err.Error()}
}
