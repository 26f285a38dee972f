package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskRecord persists one operation log entry.
	TaskRecord = "audit:record"
	// TaskPurge deletes entries older than the retention window.
	TaskPurge = "audit:purge"
)

// PurgePayload parameterises a purge run.
type PurgePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewRecordTask wraps an entry in a task.
func NewRecordTask(e Entry) (*asynq.Task, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("audit: encode entry: %w", err)
	}
	return asynq.NewTask(TaskRecord, data), nil
}

// NewPurgeTask builds the periodic purge task.
func NewPurgeTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(PurgePayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurge, data), nil
}

func decodePayload(t *asynq.Task, dst any) error {
	if err := json.Unmarshal(t.Payload(), dst); err != nil {
		return fmt.Errorf("audit: decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}
