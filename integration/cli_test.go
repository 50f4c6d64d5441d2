//go:build basic

package integration

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scoreOutput struct {
	Tenant  string `json:"tenant"`
	Batches []struct {
		Framework string `json:"framework_id"`
		Total     int    `json:"total"`
		Scored    int    `json:"scored"`
		Failed    []struct {
			ContactID string `json:"contact_id"`
			Error     string `json:"error"`
		} `json:"failed"`
		Results []struct {
			ContactID string `json:"contact_id"`
			Composite int    `json:"composite_score"`
			Tier      string `json:"tier"`
		} `json:"results"`
	} `json:"batches"`
}

// sqliteEnv points both stores at files under dir.
func sqliteEnv(dir string) []string {
	return []string{
		"LEADSCORE_CONFIG_BACKEND=sqlite",
		"LEADSCORE_CONFIG_DB_CONNECT=" + filepath.Join(dir, "configs.db"),
		"LEADSCORE_RESULTS_BACKEND=sqlite",
		"LEADSCORE_RESULTS_DB_CONNECT=" + filepath.Join(dir, "results.db"),
	}
}

func TestScoreTiers(t *testing.T) {
	dir := t.TempDir()
	input := writeSampleContacts(t, dir)

	stdout, err := runLeadscore(t, dir, sqliteEnv(dir), "score", input, "-f", "bant", "--output", "json", "--tenant", "acme")
	require.NoError(t, err)

	var out scoreOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "acme", out.Tenant)
	require.Len(t, out.Batches, 1)

	bant := out.Batches[0]
	assert.Equal(t, "BANT", bant.Framework)
	assert.Equal(t, 4, bant.Total)
	assert.Equal(t, 3, bant.Scored)
	require.Len(t, bant.Failed, 1)
	assert.Equal(t, "bad-1", bant.Failed[0].ContactID)

	require.Len(t, bant.Results, 3)
	tiers := map[string]string{}
	for _, r := range bant.Results {
		tiers[r.ContactID] = r.Tier
	}
	assert.Equal(t, map[string]string{"hot-1": "Hot", "warm-1": "Warm", "cold-1": "Cold"}, tiers)
	assert.Equal(t, "hot-1", bant.Results[0].ContactID)
}

func TestWeightsPersistAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	env := sqliteEnv(dir)
	input := writeSampleContacts(t, dir)

	_, err := runLeadscore(t, dir, env, "weights", "set", "bant", "authority", "70", "--tenant", "acme", "--output", "json")
	require.NoError(t, err)

	stdout, err := runLeadscore(t, dir, env, "score", input, "-f", "bant", "--output", "json", "--tenant", "acme")
	require.NoError(t, err)
	var out scoreOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	for _, r := range out.Batches[0].Results {
		if r.ContactID == "warm-1" {
			// budget 30*10 + authority 80*70 + need 20*10 + timeline 100*10, over 100
			assert.Equal(t, 71, r.Composite)
			assert.Equal(t, "Hot", r.Tier)
		}
	}

	// Another tenant still scores with the defaults
	stdout, err = runLeadscore(t, dir, env, "score", input, "-f", "bant", "--output", "json", "--tenant", "globex")
	require.NoError(t, err)
	out = scoreOutput{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	for _, r := range out.Batches[0].Results {
		if r.ContactID == "warm-1" {
			assert.Equal(t, 58, r.Composite)
		}
	}

	_, err = runLeadscore(t, dir, env, "config", "reset", "-f", "bant", "--tenant", "acme")
	require.NoError(t, err)
}

func TestCheckFailsOnInvalidThresholds(t *testing.T) {
	dir := t.TempDir()
	env := append(sqliteEnv(dir), "LEADSCORE_DEFAULT_HOT_MIN=40", "LEADSCORE_DEFAULT_WARM_MIN=40")

	_, err := runLeadscore(t, dir, env, "check", "--output", "json")
	require.Error(t, err)

	_, err = runLeadscore(t, dir, sqliteEnv(dir), "check", "--output", "json")
	require.NoError(t, err)
}

func TestResultsStatusAfterScoring(t *testing.T) {
	dir := t.TempDir()
	env := sqliteEnv(dir)
	input := writeSampleContacts(t, dir)

	_, err := runLeadscore(t, dir, env, "score", input, "--output", "json")
	require.NoError(t, err)

	stdout, err := runLeadscore(t, dir, env, "results", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sqlite")

	_, err = runLeadscore(t, dir, env, "results", "export", "--output-file", filepath.Join(dir, "leadscore.parquet"))
	require.NoError(t, err)

	_, err = runLeadscore(t, dir, env, "results", "clear")
	require.NoError(t, err)
}
