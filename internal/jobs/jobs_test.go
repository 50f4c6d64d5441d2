package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/huangsam/leadscore/core"
	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/internal/persist"
	"github.com/huangsam/leadscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func contacts() []schema.Contact {
	return []schema.Contact{
		{ID: "c-1", Enrichment: json.RawMessage(`{"title":"VP of Sales","timeline":"asap"}`)},
		{ID: "c-2", Enrichment: json.RawMessage(`"not an object"`)},
	}
}

func TestScoreBatchPayload(t *testing.T) {
	task, err := NewScoreBatchTask(ScoreBatchPayload{Tenant: "acme", Framework: "bant", Contacts: contacts()})
	require.NoError(t, err)
	assert.Equal(t, TaskScoreBatch, task.Type())

	payload, err := ParseScoreBatchPayload(task)
	require.NoError(t, err)
	assert.Equal(t, schema.BANT, payload.Framework)
	assert.Len(t, payload.Contacts, 2)

	tests := []struct {
		name string
		data string
		want string
	}{
		{"not json", `{`, "failed to decode"},
		{"unknown framework", `{"tenant":"acme","framework_id":"CHAMP"}`, "unknown framework"},
		{"no tenant", `{"framework_id":"BANT"}`, "has no tenant"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScoreBatchPayload(asynq.NewTask(TaskScoreBatch, []byte(tt.data)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestClientEnqueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient("redis://"+mr.Addr(), "leadscore")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ids, err := client.EnqueueScoreBatch(context.Background(), "acme", []schema.FrameworkID{schema.BANT, schema.SPICE}, contacts())
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])

	pending, err := mr.List("asynq:{leadscore}:pending")
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, pending)
	for _, id := range ids {
		assert.True(t, mr.Exists("asynq:{leadscore}:t:"+id), id)
	}
}

func TestNewClientErrors(t *testing.T) {
	_, err := NewClient("", "leadscore")
	assert.ErrorContains(t, err, "redis url not configured")

	_, err = NewClient("://bad", "leadscore")
	assert.ErrorContains(t, err, "failed to parse redis url")
}

func newTestWorker(t *testing.T, mgr contract.StoreManager) *Worker {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := &contract.Config{RedisURL: "redis://" + mr.Addr(), Queue: "leadscore", Concurrency: 1, Workers: 2}
	engine := core.NewEngine(core.WithClock(func() time.Time { return fixedNow }))
	w, err := NewWorker(cfg, mgr, engine, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return w
}

func TestWorkerRecordsRun(t *testing.T) {
	results := new(persist.MockResultStore)
	results.On("BeginRun", mock.AnythingOfType("string"), "acme", schema.BANT, fixedNow, 0).Return(nil)
	results.On("RecordScore", "acme", mock.AnythingOfType("string"), mock.MatchedBy(func(r schema.ScoreResult) bool {
		return r.ContactID == "c-1" && r.Composite == 58 && r.Tier == schema.WarmTier
	})).Return(nil)
	results.On("EndRun", mock.AnythingOfType("string"), fixedNow, mock.MatchedBy(func(b schema.BatchResult) bool {
		return b.Scored == 1 && len(b.Failed) == 1 && b.Failed[0].ContactID == "c-2"
	})).Return(nil)

	w := newTestWorker(t, persist.NewStoreManager(nil, results))
	task, err := NewScoreBatchTask(ScoreBatchPayload{Tenant: "acme", Framework: schema.BANT, Contacts: contacts()})
	require.NoError(t, err)

	require.NoError(t, w.handleScoreBatch(context.Background(), task))
	results.AssertExpectations(t)
}

func TestWorkerSkipsRetryOnBadPayload(t *testing.T) {
	w := newTestWorker(t, persist.NewStoreManager(nil, nil))
	err := w.handleScoreBatch(context.Background(), asynq.NewTask(TaskScoreBatch, []byte(`{"tenant":"acme","framework_id":"CHAMP"}`)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.ErrorIs(t, err, schema.ErrUnknownFramework)
}

func TestWorkerSkipsRetryOnInvalidConfig(t *testing.T) {
	bad, err := schema.DefaultFrameworkConfig(schema.BANT, schema.ThresholdSet{HotMin: 71, WarmMin: 40})
	require.NoError(t, err)
	bad = bad.WithWeights(schema.NewWeightSet(
		schema.WeightEntry{Key: "budget", Value: 40},
		schema.WeightEntry{Key: "authority", Value: 40},
	))

	w := newTestWorker(t, persist.NewStoreManager(nil, nil))
	w.cfg.FrameworkConfigs = map[schema.FrameworkID]schema.FrameworkConfig{schema.BANT: bad}
	task, err := NewScoreBatchTask(ScoreBatchPayload{Tenant: "acme", Framework: schema.BANT, Contacts: contacts()})
	require.NoError(t, err)

	err = w.handleScoreBatch(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.True(t, schema.IsInvalidConfiguration(err))
}
