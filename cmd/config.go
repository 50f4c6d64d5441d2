package cmd

import (
	"fmt"
	"strconv"

	"github.com/huangsam/leadscore/core"
	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/schema"
	"github.com/spf13/cobra"
)

// weightsCmd groups weight editing.
var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Edit dimension weights",
}

// weightsSetCmd changes one dimension weight and rebalances the rest.
var weightsSetCmd = &cobra.Command{
	Use:   "set <framework> <dimension> <weight>",
	Short: "Set one dimension weight; the others are rebalanced to keep 100",
	Long: `Set a dimension weight and spread the difference evenly over the other
dimensions so the total stays at 100.

If another dimension would leave 0-100 it is clamped and the remainder is
spread over the dimensions that still have room. A clamped result is shown
for review and only saved with --accept-clamped.

Examples:
  leadscore weights set bant budget 40
  leadscore weights set spice impact 90 --accept-clamped`,
	Args:    cobra.ExactArgs(3),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		fw, err := schema.ParseFrameworkID(args[0])
		if err != nil {
			contract.LogFatal("Invalid framework", err)
		}
		weight, err := strconv.Atoi(args[2])
		if err != nil {
			contract.LogFatal("Invalid weight", fmt.Errorf("weight must be a whole number: %q", args[2]))
		}
		if err := core.ExecuteSetWeight(rootCtx, cfg, storeManager, fw, schema.DimensionKey(args[1]), weight); err != nil {
			contract.LogFatal("Failed to set weight", err)
		}
	},
}

// thresholdsCmd groups threshold editing.
var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Edit tier thresholds",
}

// thresholdsSetCmd replaces the tier thresholds of a framework.
var thresholdsSetCmd = &cobra.Command{
	Use:   "set <framework> <hot_min|profile> [warm_min]",
	Short: "Set the Hot and Warm minimum scores of a framework",
	Long: `Set the composite scores at which a contact becomes Hot and Warm.
Requires 0 <= warm_min < hot_min <= 100. A profile name may be given instead
of the two numbers.

Profiles:
  standard      hot 71, warm 40
  strict        hot 80, warm 60
  conservative  hot 85, warm 65

Examples:
  leadscore thresholds set bant 75 45
  leadscore thresholds set mdcp strict`,
	Args:    cobra.RangeArgs(2, 3),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		fw, err := schema.ParseFrameworkID(args[0])
		if err != nil {
			contract.LogFatal("Invalid framework", err)
		}
		thresholds, err := parseThresholdArgs(args[1:])
		if err != nil {
			contract.LogFatal("Invalid thresholds", err)
		}
		if err := core.ExecuteSetThresholds(rootCtx, cfg, storeManager, fw, thresholds); err != nil {
			contract.LogFatal("Failed to set thresholds", err)
		}
	},
}

func parseThresholdArgs(args []string) (schema.ThresholdSet, error) {
	if len(args) == 1 {
		return schema.LookupThresholdProfile(args[0])
	}
	hot, err := strconv.Atoi(args[0])
	if err != nil {
		return schema.ThresholdSet{}, fmt.Errorf("hot_min must be a whole number: %q", args[0])
	}
	warm, err := strconv.Atoi(args[1])
	if err != nil {
		return schema.ThresholdSet{}, fmt.Errorf("warm_min must be a whole number: %q", args[1])
	}
	return schema.ThresholdSet{HotMin: hot, WarmMin: warm}, nil
}

// configCmd manages whole framework configurations.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show, export, import and reset framework configurations",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration of each selected framework",
	Long: `Show weights, thresholds and version of each selected framework. Version 0
means nothing is stored and the seeded defaults apply.

Examples:
  leadscore config show --tenant acme
  leadscore config show -f bant --output json`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteConfigShow(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Failed to show configuration", err)
		}
	},
}

var configExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the selected configurations as YAML",
	Long: `Write the tenant's effective configurations as one YAML document that
config import can read back. Weights keep their dimension order.

Examples:
  leadscore config export --output-file acme.yaml --tenant acme`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteConfigExport(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Failed to export configuration", err)
		}
	},
}

var configImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Save every configuration in a YAML file",
	Long: `Validate every framework in a YAML file written by config export and save
them for the tenant. Nothing is written unless all of them are valid.

Examples:
  leadscore config import acme.yaml --tenant acme`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		if err := core.ExecuteConfigImport(rootCtx, cfg, storeManager, args[0]); err != nil {
			contract.LogFatal("Failed to import configuration", err)
		}
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop stored configurations so the seeded defaults apply again",
	Args:  cobra.NoArgs,
	Long: `Delete the tenant's stored configuration of each selected framework.

Examples:
  leadscore config reset --tenant acme -f bant`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteConfigReset(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Failed to reset configuration", err)
		}
	},
}
