// Package outwriter has output and writer logic.
package outwriter

import (
	"os"

	"github.com/huangsam/leadscore/internal/contract"
	"golang.org/x/term"
)

// getMaxTableContactWidth calculates the maximum width for contact ids in
// table output based on terminal width and table configuration.
func getMaxTableContactWidth(cfg *contract.Config, dimensions int) int {
	termWidth := cfg.Width
	if termWidth == 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	baseWidth := 28 // Rank + Score + Tier with borders/padding
	if cfg.Detail {
		baseWidth += 10 * dimensions
	}
	if cfg.Explain {
		baseWidth += 40
	}
	baseWidth += 10

	available := termWidth - baseWidth
	if available < 12 {
		return 12
	}
	if available > 48 {
		return 48
	}
	return available
}

// limitResults caps the rows printed for a batch; a non-positive limit keeps all.
func limitResults[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
