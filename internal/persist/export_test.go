package persist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/leadscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteResultsExport(t *testing.T) {
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	store := &MockResultStore{}
	store.On("GetStatus").Return(schema.ResultStoreStatus{
		Backend:    "sqlite",
		Connected:  true,
		TotalRuns:  1,
		TableSizes: map[string]int64{contactScoresTable: 1},
	}, nil)
	store.On("GetAllRuns").Return([]schema.ScoringRunRecord{
		{RunID: "run-1", TenantID: "acme", Framework: "BANT", StartTime: start, TotalContacts: 1, ScoredContacts: 1},
	}, nil)
	store.On("GetAllScores").Return([]schema.ContactScoreRecord{
		{TenantID: "acme", ContactID: "c-1", Framework: "BANT", RunID: "run-1", CompositeScore: 58, Tier: "Warm", DimensionsJSON: "[]", CalculatedAt: start},
	}, nil)

	out := filepath.Join(t.TempDir(), "export")
	require.NoError(t, ExecuteResultsExport(store, out))

	for _, suffix := range []string{".scoring_runs.parquet", ".contact_scores.parquet"} {
		info, err := os.Stat(out + suffix)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	store.AssertExpectations(t)
}

func TestExecuteResultsExport_Errors(t *testing.T) {
	assert.Error(t, ExecuteResultsExport(&MockResultStore{}, ""))
	assert.Error(t, ExecuteResultsExport(nil, "out"))

	empty := &MockResultStore{}
	empty.On("GetStatus").Return(schema.ResultStoreStatus{Connected: true}, nil)
	assert.ErrorContains(t, ExecuteResultsExport(empty, "out"), "no scoring results")

	broken := &MockResultStore{}
	broken.On("GetStatus").Return(schema.ResultStoreStatus{}, errors.New("boom"))
	assert.ErrorContains(t, ExecuteResultsExport(broken, "out"), "boom")
}
