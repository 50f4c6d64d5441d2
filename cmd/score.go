package cmd

import (
	"github.com/huangsam/leadscore/core"
	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/internal/jobs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// scoreCmd scores a batch of contacts.
var scoreCmd = &cobra.Command{
	Use:   "score [contacts-file]",
	Short: "Score contacts and rank them by composite score",
	Long: `Score every contact in a file against the selected frameworks.

The input is a JSON array or JSON lines. Each record is either
{"id": "...", "enrichment": {...}} or a flat enrichment object carrying its
own "id" or "contact_id".

A contact whose enrichment cannot be read is reported as failed; the rest of
the batch is still scored. Missing fields never fail a contact, they score
the dimension's floor and are marked degraded.

Examples:
  # Score against every framework
  leadscore score contacts.json

  # BANT only, with the per-dimension breakdown
  leadscore score contacts.json -f bant --explain

  # Read JSON lines from stdin and write CSV
  cat contacts.jsonl | leadscore score --output csv

  # Hand the batch to a worker instead
  leadscore score contacts.json --enqueue`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			viper.Set("input", args[0])
		}
		return sharedSetup(rootCtx, cmd, args)
	},
	Run: func(_ *cobra.Command, _ []string) {
		if cfg.Enqueue {
			if err := jobs.ExecuteEnqueue(rootCtx, cfg); err != nil {
				contract.LogFatal("Failed to enqueue scoring", err)
			}
			return
		}
		if err := core.ExecuteScoring(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Scoring failed", err)
		}
	},
}

// checkCmd focused on CI/CD policy enforcement.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate framework configurations (fails on any violation)",
	Long: `Validate the tenant's effective configuration of every selected framework.

Exits non-zero when any configuration would be refused by the scorer, so it
can gate deploys and configuration changes.

Checks:
- Weights cover exactly the framework's dimensions and sum to 100
- Every weight is within 0-100
- Thresholds satisfy 0 <= warm_min < hot_min <= 100
- Dimension options are valid for their evaluator

Examples:
  # Check every framework of the default tenant
  leadscore check

  # Check one tenant's SPICE configuration
  leadscore check --tenant acme -f spice`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteConfigCheck(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Configuration check failed", err)
		}
	},
}

// frameworksCmd lists the frameworks and their dimensions.
var frameworksCmd = &cobra.Command{
	Use:   "frameworks",
	Short: "List frameworks, dimensions and effective weights",
	Long: `Show each framework's dimensions with their evaluator, source fields
and the tenant's effective weight.

Examples:
  leadscore frameworks
  leadscore frameworks -f apex --output json`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteFrameworks(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Failed to list frameworks", err)
		}
	},
}
