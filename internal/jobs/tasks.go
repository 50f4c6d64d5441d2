// Package jobs runs batch scoring asynchronously on an asynq queue.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/huangsam/leadscore/schema"
)

// TaskScoreBatch scores a batch of contacts against one framework.
const TaskScoreBatch = "score:batch"

// ScoreBatchPayload is the body of a score:batch task.
type ScoreBatchPayload struct {
	Tenant      string             `json:"tenant"`
	Framework   schema.FrameworkID `json:"framework_id"`
	Contacts    []schema.Contact   `json:"contacts"`
	SubmittedAt time.Time          `json:"submitted_at"`
}

// NewScoreBatchTask encodes payload as a score:batch task.
func NewScoreBatchTask(payload ScoreBatchPayload, opts ...asynq.Option) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", TaskScoreBatch, err)
	}
	return asynq.NewTask(TaskScoreBatch, data, opts...), nil
}

// ParseScoreBatchPayload decodes and checks a score:batch task.
func ParseScoreBatchPayload(task *asynq.Task) (ScoreBatchPayload, error) {
	var payload ScoreBatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ScoreBatchPayload{}, fmt.Errorf("failed to decode %s payload: %w", TaskScoreBatch, err)
	}
	fw, err := schema.ParseFrameworkID(string(payload.Framework))
	if err != nil {
		return ScoreBatchPayload{}, err
	}
	payload.Framework = fw
	if payload.Tenant == "" {
		return ScoreBatchPayload{}, fmt.Errorf("%s payload has no tenant", TaskScoreBatch)
	}
	return payload, nil
}
