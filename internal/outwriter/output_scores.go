package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/leadscore/core/algo"
	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/internal/parquet"
	"github.com/huangsam/leadscore/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// topContributions is how many dimensions the Explain column names.
const topContributions = 3

// scoreDocument is the JSON form of a scoring command.
type scoreDocument struct {
	Tenant  string               `json:"tenant"`
	Batches []schema.BatchResult `json:"batches"`
}

// PrintScoreResults outputs ranked batches, dispatching based on the output format configured.
// Batches arrive fully ranked; only the top cfg.ResultLimit rows of each are printed.
func PrintScoreResults(batches []schema.BatchResult, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeScoreJSON(w, cfg.Tenant, batches, cfg.ResultLimit)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeScoreCSV(w, batches, cfg.ResultLimit)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return writeScoreParquet(batches, cfg)
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeScoreTables(w, batches, cfg, duration)
		}, "Wrote table")
	}
}

func writeScoreJSON(w io.Writer, tenant string, batches []schema.BatchResult, limit int) error {
	doc := scoreDocument{Tenant: tenant, Batches: make([]schema.BatchResult, len(batches))}
	for i, b := range batches {
		b.Results = limitResults(b.Results, limit)
		doc.Batches[i] = b
	}
	return writeJSON(w, doc)
}

func writeScoreCSV(w io.Writer, batches []schema.BatchResult, limit int) error {
	header := []string{
		"framework_id",
		"rank",
		"contact_id",
		"composite_score",
		"tier",
		"dimension_scores",
		"degraded",
		"config_version",
		"calculated_at",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, b := range batches {
			for i, r := range limitResults(b.Results, limit) {
				row := []string{
					string(r.Framework),
					strconv.Itoa(i + 1),
					r.ContactID,
					strconv.Itoa(r.Composite),
					contract.GetPlainLabel(r.Tier),
					formatDimensionScores(r),
					joinKeys(r.Degraded(), ";"),
					strconv.Itoa(r.ConfigVersion),
					r.CalculatedAt.UTC().Format(time.RFC3339),
				}
				if err := cw.Write(row); err != nil {
					return fmt.Errorf("failed to write CSV row: %w", err)
				}
			}
		}
		return nil
	})
}

func writeScoreParquet(batches []schema.BatchResult, cfg *contract.Config) error {
	limited := make([]schema.BatchResult, len(batches))
	for i, b := range batches {
		b.Results = limitResults(b.Results, cfg.ResultLimit)
		limited[i] = b
	}
	rows, err := parquet.ConvertBatchResults(cfg.Tenant, limited)
	if err != nil {
		return err
	}
	if err := parquet.WriteContactScoresParquet(rows, cfg.OutputFile); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "💾 Wrote Parquet to %s\n", cfg.OutputFile)
	return nil
}

// writeScoreTables renders one table per framework followed by its summary.
func writeScoreTables(w io.Writer, batches []schema.BatchResult, cfg *contract.Config, duration time.Duration) error {
	for i, b := range batches {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := writeScoreTable(w, b, cfg); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Scoring completed in %v with %d workers. Results backend: %s\n", duration, cfg.Workers, cfg.ResultsBackend)
	return err
}

func writeScoreTable(w io.Writer, b schema.BatchResult, cfg *contract.Config) error {
	if _, err := fmt.Fprintf(w, "📋 %s: %s\n", b.Framework, schema.FrameworkDescription(b.Framework)); err != nil {
		return err
	}

	keys := dimensionKeys(b)
	table := tablewriter.NewWriter(w)

	headers := []string{"Rank", "Contact", "Score", "Tier"}
	if cfg.Detail {
		for _, k := range keys {
			headers = append(headers, string(k))
		}
	}
	if cfg.Explain {
		headers = append(headers, "Explain")
	}
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	contactWidth := getMaxTableContactWidth(cfg, len(keys))
	var data [][]string
	for i, r := range limitResults(b.Results, cfg.ResultLimit) {
		row := []string{
			strconv.Itoa(i + 1),
			contract.TruncateText(r.ContactID, contactWidth),
			strconv.Itoa(r.Composite),
			contract.GetColorLabel(r.Tier),
		}
		if cfg.Detail {
			for _, k := range keys {
				row = append(row, formatDimensionCell(r, k))
			}
		}
		if cfg.Explain {
			row = append(row, formatTopContributions(r))
		}
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	tiers := algo.CountTiers(b.Results)
	if _, err := fmt.Fprintf(w, "Showing top %d of %d scored contacts (Hot: %d, Warm: %d, Cold: %d)\n",
		len(data), b.Scored, tiers[schema.HotTier], tiers[schema.WarmTier], tiers[schema.ColdTier]); err != nil {
		return err
	}
	if len(b.Failed) > 0 || b.Skipped > 0 {
		if _, err := fmt.Fprintf(w, "Failed: %d, Skipped: %d of %d contacts\n", len(b.Failed), b.Skipped, b.Total); err != nil {
			return err
		}
		for _, f := range b.Failed {
			if _, err := fmt.Fprintf(w, "  ❌ %s: %s\n", failureID(f.ContactID), f.Error); err != nil {
				return err
			}
		}
	}
	if b.Canceled {
		if _, err := fmt.Fprintln(w, "⚠️  Run was canceled before every contact finished"); err != nil {
			return err
		}
	}
	return nil
}

// dimensionKeys returns the framework's dimensions in declaration order.
func dimensionKeys(b schema.BatchResult) []schema.DimensionKey {
	if len(b.Results) > 0 {
		keys := make([]schema.DimensionKey, len(b.Results[0].Dimensions))
		for i, d := range b.Results[0].Dimensions {
			keys[i] = d.Key
		}
		return keys
	}
	specs, err := schema.Dimensions(b.Framework)
	if err != nil {
		return nil
	}
	keys := make([]schema.DimensionKey, len(specs))
	for i, s := range specs {
		keys[i] = s.Key
	}
	return keys
}

// formatDimensionCell prints a raw score, starred when the input was degraded.
func formatDimensionCell(r schema.ScoreResult, key schema.DimensionKey) string {
	for _, d := range r.Dimensions {
		if d.Key == key {
			if d.Degraded {
				return strconv.Itoa(d.Raw) + "*"
			}
			return strconv.Itoa(d.Raw)
		}
	}
	return "-"
}

// formatTopContributions names the dimensions that added the most points to the composite.
func formatTopContributions(r schema.ScoreResult) string {
	dims := make([]schema.DimensionScore, 0, len(r.Dimensions))
	for _, d := range r.Dimensions {
		if d.Weighted > 0 {
			dims = append(dims, d)
		}
	}
	if len(dims) == 0 {
		return "No contributors"
	}
	sort.SliceStable(dims, func(i, j int) bool {
		return dims[i].Weighted > dims[j].Weighted
	})

	parts := make([]string, 0, topContributions)
	for _, d := range dims[:min(len(dims), topContributions)] {
		part := fmt.Sprintf("%s %.1f", d.Key, d.Weighted)
		if d.Degraded {
			part += "*"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " > ")
}

// formatDimensionScores writes key=raw pairs in framework order.
func formatDimensionScores(r schema.ScoreResult) string {
	parts := make([]string, len(r.Dimensions))
	for i, d := range r.Dimensions {
		parts[i] = fmt.Sprintf("%s=%d", d.Key, d.Raw)
	}
	return strings.Join(parts, ";")
}

func joinKeys(keys []schema.DimensionKey, sep string) string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	return strings.Join(names, sep)
}

func failureID(id string) string {
	if id == "" {
		return "(no id)"
	}
	return id
}
