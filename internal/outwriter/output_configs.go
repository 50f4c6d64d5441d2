package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var (
	passColor = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
)

// frameworkSummary is the JSON form of one framework in the catalog.
type frameworkSummary struct {
	Framework   schema.FrameworkID  `json:"framework_id"`
	Description string              `json:"description"`
	Thresholds  schema.ThresholdSet `json:"thresholds"`
	Version     int                 `json:"version"`
	Dimensions  []dimensionSummary  `json:"dimensions"`
}

type dimensionSummary struct {
	Key         schema.DimensionKey   `json:"dimension"`
	Evaluator   schema.EvaluatorKind  `json:"evaluator"`
	Weight      int                   `json:"weight"`
	Fields      []schema.PayloadField `json:"fields"`
	Description string                `json:"description"`
}

func summarize(fc schema.FrameworkConfig) frameworkSummary {
	out := frameworkSummary{
		Framework:   fc.Framework,
		Description: schema.FrameworkDescription(fc.Framework),
		Thresholds:  fc.Thresholds,
		Version:     fc.Version,
	}
	for _, e := range fc.Weights.Entries() {
		d := dimensionSummary{Key: e.Key, Weight: e.Value, Fields: fc.Dimensions[e.Key].Fields}
		if spec, ok := schema.LookupDimension(fc.Framework, e.Key); ok {
			d.Evaluator = spec.Kind
			d.Description = spec.Description
		}
		out.Dimensions = append(out.Dimensions, d)
	}
	return out
}

// PrintCheckResult outputs the preflight report, dispatching based on the output format configured.
func PrintCheckResult(result schema.CheckResult, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCheckCSV(w, result)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is only supported for scoring results")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCheckTable(w, result, duration)
		}, "Wrote table")
	}
}

func writeCheckCSV(w io.Writer, result schema.CheckResult) error {
	header := []string{"framework_id", "valid", "stored", "version", "weight_sum", "hot_min", "warm_min", "violations"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, fc := range result.Frameworks {
			row := []string{
				string(fc.Framework),
				strconv.FormatBool(fc.Valid),
				strconv.FormatBool(fc.Stored),
				strconv.Itoa(fc.Version),
				strconv.Itoa(fc.WeightSum),
				strconv.Itoa(fc.Thresholds.HotMin),
				strconv.Itoa(fc.Thresholds.WarmMin),
				strings.Join(fc.Violations, "; "),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
		return nil
	})
}

func writeCheckTable(w io.Writer, result schema.CheckResult, duration time.Duration) error {
	if _, err := fmt.Fprintf(w, "🔍 Configuration check for tenant %s\n", result.Tenant); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Framework", "Status", "Source", "Weights", "Thresholds", "Violations"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	failed := 0
	var data [][]string
	for _, fc := range result.Frameworks {
		status := passColor.Sprint("valid")
		if !fc.Valid {
			status = failColor.Sprint("invalid")
			failed++
		}
		source := "defaults"
		if fc.Stored {
			source = fmt.Sprintf("stored v%d", fc.Version)
		}
		data = append(data, []string{
			string(fc.Framework),
			status,
			source,
			fmt.Sprintf("sum %d", fc.WeightSum),
			fc.Thresholds.String(),
			strings.Join(fc.Violations, "; "),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if failed == 0 {
		if _, err := fmt.Fprintf(w, "✅ All %d framework configurations are valid\n", len(result.Frameworks)); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprintf(w, "❌ %d of %d framework configurations failed validation\n", failed, len(result.Frameworks)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Check completed in %v\n", duration)
	return err
}

// PrintFrameworkConfig outputs a single framework configuration.
func PrintFrameworkConfig(fc schema.FrameworkConfig, cfg *contract.Config) error {
	return PrintFrameworkConfigs([]schema.FrameworkConfig{fc}, cfg)
}

// PrintFrameworkConfigs outputs framework configurations with their weights,
// thresholds and evaluator inputs.
func PrintFrameworkConfigs(cfgs []schema.FrameworkConfig, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, cfgs)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeFrameworkCSV(w, cfgs)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is only supported for scoring results")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeConfigTables(w, cfgs)
		}, "Wrote table")
	}
}

func writeConfigTables(w io.Writer, cfgs []schema.FrameworkConfig) error {
	for i, fc := range cfgs {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		source := "defaults"
		if fc.Version > 0 {
			source = fmt.Sprintf("version %d, updated %s", fc.Version, fc.UpdatedAt.UTC().Format(time.RFC3339))
		}
		if _, err := fmt.Fprintf(w, "⚙️  %s (%s)\n", fc.Framework, source); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "Thresholds: Hot >= %d, Warm >= %d\n", fc.Thresholds.HotMin, fc.Thresholds.WarmMin); err != nil {
			return err
		}

		table := tablewriter.NewWriter(w)
		table.Header([]string{"Dimension", "Weight", "Evaluator", "Fields", "Floor"})
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignLeft
		})
		var data [][]string
		for _, d := range summarize(fc).Dimensions {
			data = append(data, []string{
				string(d.Key),
				strconv.Itoa(d.Weight),
				string(d.Evaluator),
				joinFields(d.Fields),
				strconv.Itoa(fc.Dimensions[d.Key].Floor),
			})
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	return nil
}

// PrintFrameworks outputs the framework catalog with each framework's effective weights.
func PrintFrameworks(cfgs []schema.FrameworkConfig, cfg *contract.Config) error {
	summaries := make([]frameworkSummary, len(cfgs))
	for i, fc := range cfgs {
		summaries[i] = summarize(fc)
	}

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, summaries)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeFrameworkCSV(w, cfgs)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is only supported for scoring results")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeFrameworkText(w, summaries)
		}, "Wrote text")
	}
}

func writeFrameworkText(w io.Writer, summaries []frameworkSummary) error {
	for _, s := range summaries {
		if _, err := fmt.Fprintf(w, "📋 %s: %s (%s)\n", s.Framework, s.Description, s.Thresholds); err != nil {
			return err
		}
		for _, d := range s.Dimensions {
			if _, err := fmt.Fprintf(w, "   %-15s %3d%%  %-17s %s\n", d.Key, d.Weight, d.Evaluator, d.Description); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "Composite = sum(raw * weight / 100), rounded. Hot >= hot_min, Warm >= warm_min, else Cold.")
	return err
}

func writeFrameworkCSV(w io.Writer, cfgs []schema.FrameworkConfig) error {
	header := []string{"framework_id", "version", "dimension", "evaluator", "weight", "fields", "hot_min", "warm_min"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, fc := range cfgs {
			for _, d := range summarize(fc).Dimensions {
				row := []string{
					string(fc.Framework),
					strconv.Itoa(fc.Version),
					string(d.Key),
					string(d.Evaluator),
					strconv.Itoa(d.Weight),
					joinFields(d.Fields),
					strconv.Itoa(fc.Thresholds.HotMin),
					strconv.Itoa(fc.Thresholds.WarmMin),
				}
				if err := cw.Write(row); err != nil {
					return fmt.Errorf("failed to write CSV row: %w", err)
				}
			}
		}
		return nil
	})
}

func joinFields(fields []schema.PayloadField) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ",")
}
