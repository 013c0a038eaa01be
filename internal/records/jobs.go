package records

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/metrics"
)

const jobKeyPrefix = "job:"

// JobState is the last reported status of a background job. The server and
// the worker share it through the records backend.
type JobState struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// JobStore keeps one blob per job so the server and worker never overwrite
// each other's jobs. Like Store it is fail-soft.
type JobStore struct {
	backend Backend
	now     func() time.Time
	logger  *slog.Logger
}

func NewJobStore(backend Backend, logger *slog.Logger) *JobStore {
	return &JobStore{backend: backend, now: time.Now, logger: logger}
}

func (j *JobStore) Set(ctx context.Context, id, status, message string) {
	data, err := json.Marshal(JobState{ID: id, Status: status, Message: message, UpdatedAt: j.now().UTC()})
	if err != nil {
		j.fail(ctx, "job_encode", err)
		return
	}
	if err := j.backend.Store(ctx, jobKeyPrefix+id, data); err != nil {
		j.fail(ctx, "job_store", err)
	}
}

func (j *JobStore) Get(ctx context.Context, id string) (JobState, bool) {
	data, err := j.backend.Load(ctx, jobKeyPrefix+id)
	if err != nil {
		j.fail(ctx, "job_load", err)
		return JobState{}, false
	}
	if len(data) == 0 {
		return JobState{}, false
	}
	var state JobState
	if err := json.Unmarshal(data, &state); err != nil {
		j.fail(ctx, "job_decode", err)
		return JobState{}, false
	}
	return state, true
}

func (j *JobStore) fail(ctx context.Context, op string, err error) {
	metrics.RecordStoreFailure(ctx, op)
	j.logger.WarnContext(ctx, "Job state operation failed", "operation", op,
		"error", errors.NewStorageError("job state unavailable", "JOB_STATE_FAILED", err))
}
