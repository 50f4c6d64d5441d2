// Package core has core logic for scoring, configuration and ranking.
package core

import (
	"context"
	"fmt"
	"os"

	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/internal/outwriter"
	"github.com/huangsam/leadscore/schema"
)

// ExecuteSetWeight edits one dimension weight of a framework and prints the
// resulting configuration. A clamped rebalance is only written when the
// caller accepted clamping; either way the advisory is logged.
func ExecuteSetWeight(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, fw schema.FrameworkID, key schema.DimensionKey, value int) error {
	svc := NewConfigService(mgr.GetConfigStore(), cfg.FrameworkConfigs)
	fc, err := svc.SetWeight(ctx, cfg.Tenant, fw, key, value, cfg.AcceptClamped)
	if unbalanced, ok := schema.AsUnbalanced(err); ok {
		if !cfg.AcceptClamped {
			if printErr := outwriter.PrintFrameworkConfig(fc, cfg); printErr != nil {
				return printErr
			}
			return fmt.Errorf("%w; rerun with --accept-clamped to save this proposal", unbalanced)
		}
		contract.LogWarn("Saved weights after clamping", unbalanced)
		err = nil
	}
	if err != nil {
		return err
	}
	return outwriter.PrintFrameworkConfig(fc, cfg)
}

// ExecuteSetThresholds replaces the tier thresholds of a framework.
func ExecuteSetThresholds(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, fw schema.FrameworkID, thresholds schema.ThresholdSet) error {
	svc := NewConfigService(mgr.GetConfigStore(), cfg.FrameworkConfigs)
	fc, err := svc.SetThresholds(ctx, cfg.Tenant, fw, thresholds)
	if err != nil {
		return err
	}
	return outwriter.PrintFrameworkConfig(fc, cfg)
}

// ExecuteConfigShow prints the effective configuration of each selected framework.
func ExecuteConfigShow(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	svc := NewConfigService(mgr.GetConfigStore(), cfg.FrameworkConfigs)
	cfgs, err := svc.LoadAll(ctx, cfg.Tenant, cfg.Frameworks)
	if err != nil {
		return err
	}
	return outwriter.PrintFrameworkConfigs(cfgs, cfg)
}

// ExecuteConfigExport writes the selected framework configurations as YAML.
func ExecuteConfigExport(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	svc := NewConfigService(mgr.GetConfigStore(), cfg.FrameworkConfigs)
	file, err := contract.SelectOutputFile(cfg.OutputFile)
	if err != nil {
		return err
	}
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}
	if err := ExportConfigs(ctx, svc, cfg.Tenant, cfg.Frameworks, file); err != nil {
		return err
	}
	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 Wrote configuration to %s\n", cfg.OutputFile)
	}
	return nil
}

// ExecuteConfigImport saves every framework configuration in a YAML file.
func ExecuteConfigImport(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	svc := NewConfigService(mgr.GetConfigStore(), cfg.FrameworkConfigs)
	saved, err := ImportConfigs(ctx, svc, cfg.Tenant, file)
	if err != nil {
		return err
	}
	return outwriter.PrintFrameworkConfigs(saved, cfg)
}

// ExecuteConfigReset drops the stored configuration of each selected framework.
func ExecuteConfigReset(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	svc := NewConfigService(mgr.GetConfigStore(), cfg.FrameworkConfigs)
	for _, fw := range cfg.Frameworks {
		if err := svc.Reset(ctx, cfg.Tenant, fw); err != nil {
			return err
		}
		fmt.Printf("Reset %s configuration for tenant %s to defaults\n", fw, cfg.Tenant)
	}
	return nil
}

// ExecuteFrameworks prints the dimension table of each selected framework
// with the tenant's effective weights.
func ExecuteFrameworks(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	svc := NewConfigService(mgr.GetConfigStore(), cfg.FrameworkConfigs)
	cfgs, err := svc.LoadAll(ctx, cfg.Tenant, cfg.Frameworks)
	if err != nil {
		return err
	}
	return outwriter.PrintFrameworks(cfgs, cfg)
}
