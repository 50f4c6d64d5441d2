package core

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/leadscore/schema"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// configDocument is the YAML file written by config export and read by config import.
type configDocument struct {
	Tenant     string              `yaml:"tenant"`
	Frameworks []frameworkDocument `yaml:"frameworks"`
}

// frameworkDocument keeps weights as a node so their order survives a round trip.
type frameworkDocument struct {
	Framework  schema.FrameworkID                              `yaml:"framework_id"`
	Version    int                                             `yaml:"version"`
	Weights    yaml.Node                                       `yaml:"weights"`
	Thresholds schema.ThresholdSet                             `yaml:"thresholds"`
	Dimensions map[schema.DimensionKey]schema.DimensionOptions `yaml:"dimensions,omitempty"`
}

// ExportConfigs writes the tenant's configurations as one YAML document.
func ExportConfigs(ctx context.Context, svc *ConfigService, tenant string, frameworks []schema.FrameworkID, w io.Writer) error {
	cfgs, err := svc.LoadAll(ctx, tenant, frameworks)
	if err != nil {
		return err
	}

	doc := configDocument{Tenant: tenant}
	for _, fc := range cfgs {
		weights := yaml.Node{Kind: yaml.MappingNode}
		for _, e := range fc.Weights.Entries() {
			weights.Content = append(weights.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(e.Key)},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(e.Value)},
			)
		}
		doc.Frameworks = append(doc.Frameworks, frameworkDocument{
			Framework:  fc.Framework,
			Version:    fc.Version,
			Weights:    weights,
			Thresholds: fc.Thresholds,
			Dimensions: fc.Dimensions,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return enc.Close()
}

// ImportConfigs reads a YAML document written by ExportConfigs and saves
// every framework in it for tenant, replacing what is stored. Nothing is
// written unless every framework in the document is valid, and a failed save
// restores the frameworks already written by this import.
func ImportConfigs(ctx context.Context, svc *ConfigService, tenant string, r io.Reader) ([]schema.FrameworkConfig, error) {
	var doc configDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if len(doc.Frameworks) == 0 {
		return nil, fmt.Errorf("configuration document has no frameworks")
	}

	var (
		pending []schema.FrameworkConfig
		errs    error
	)
	for _, fd := range doc.Frameworks {
		fc, err := fd.toConfig()
		if err == nil {
			err = fc.Validate()
		}
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		pending = append(pending, fc)
	}
	if errs != nil {
		return nil, errs
	}

	var (
		saved    = make([]schema.FrameworkConfig, 0, len(pending))
		previous = make([]schema.FrameworkConfig, 0, len(pending))
	)
	for _, fc := range pending {
		current, err := svc.Load(ctx, tenant, fc.Framework)
		if err == nil {
			fc.Version = current.Version
			var out schema.FrameworkConfig
			out, err = svc.Save(ctx, tenant, fc)
			if err == nil {
				saved = append(saved, out)
				previous = append(previous, current)
				continue
			}
		}
		if rbErr := rollbackImport(ctx, svc, tenant, saved, previous); rbErr != nil {
			err = multierr.Append(err, rbErr)
		}
		return nil, err
	}
	return saved, nil
}

// rollbackImport puts back the configurations replaced by an import, newest
// first. A framework that had nothing stored is reset to its defaults.
func rollbackImport(ctx context.Context, svc *ConfigService, tenant string, saved, previous []schema.FrameworkConfig) error {
	var errs error
	for i := len(saved) - 1; i >= 0; i-- {
		prev := previous[i]
		if prev.Version == 0 {
			if err := svc.Reset(ctx, tenant, prev.Framework); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("failed to roll back %s: %w", prev.Framework, err))
			}
			continue
		}
		prev.Version = saved[i].Version
		if _, err := svc.Save(ctx, tenant, prev); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to roll back %s: %w", prev.Framework, err))
		}
	}
	return errs
}

func (fd frameworkDocument) toConfig() (schema.FrameworkConfig, error) {
	fw, err := schema.ParseFrameworkID(string(fd.Framework))
	if err != nil {
		return schema.FrameworkConfig{}, err
	}
	fc, err := schema.DefaultFrameworkConfig(fw, fd.Thresholds)
	if err != nil {
		return schema.FrameworkConfig{}, err
	}

	if fd.Weights.Kind == yaml.MappingNode {
		entries := make([]schema.WeightEntry, 0, len(fd.Weights.Content)/2)
		for i := 0; i+1 < len(fd.Weights.Content); i += 2 {
			key, value := fd.Weights.Content[i], fd.Weights.Content[i+1]
			var n int
			if err := value.Decode(&n); err != nil {
				return schema.FrameworkConfig{}, &schema.InvalidConfigurationError{
					Framework: fw,
					Err:       fmt.Errorf("weight %s: %w", key.Value, err),
				}
			}
			entries = append(entries, schema.WeightEntry{Key: schema.DimensionKey(key.Value), Value: n})
		}
		fc = fc.WithWeights(schema.NewWeightSet(entries...))
	}
	for key, opts := range fd.Dimensions {
		fc = fc.WithDimension(key, opts)
	}
	return fc.Canonical(), nil
}
