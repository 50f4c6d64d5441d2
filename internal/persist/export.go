package persist

import (
	"errors"
	"fmt"

	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/internal/parquet"
)

// ExecuteResultsExport exports recorded runs and contact scores to two Parquet files
// named after outputFile.
func ExecuteResultsExport(store contract.ResultStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("results store is not initialized")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get results status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no scoring results found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total scoring runs: %d\n", status.TotalRuns)
	fmt.Printf("Total contact scores: %d\n", status.TableSizes[contactScoresTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve scoring runs: %w", err)
	}
	scores, err := store.GetAllScores()
	if err != nil {
		return fmt.Errorf("failed to retrieve contact scores: %w", err)
	}

	runsFile := outputFile + ".scoring_runs.parquet"
	if err := parquet.WriteScoringRunsParquet(parquet.ConvertScoringRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write scoring runs: %w", err)
	}
	fmt.Printf("Exported %d scoring runs to: %s\n", len(runs), runsFile)

	scoresFile := outputFile + ".contact_scores.parquet"
	if err := parquet.WriteContactScoresParquet(parquet.ConvertContactScoreRecords(scores), scoresFile); err != nil {
		return fmt.Errorf("failed to write contact scores: %w", err)
	}
	fmt.Printf("Exported %d contact scores to: %s\n", len(scores), scoresFile)
	return nil
}
