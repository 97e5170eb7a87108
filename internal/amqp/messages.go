package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"autonomos/internal/core"

	"github.com/google/uuid"
)

// InboundJob carries one webhook message from the web process to a worker.
type InboundJob struct {
	JobID      string              `json:"job_id"`
	Message    core.InboundMessage `json:"message"`
	EnqueuedAt time.Time           `json:"enqueued_at"`
}

// NewInboundJob wraps msg with a fresh job id.
func NewInboundJob(msg core.InboundMessage) *InboundJob {
	return &InboundJob{
		JobID:      uuid.NewString(),
		Message:    msg,
		EnqueuedAt: time.Now().UTC(),
	}
}

// ToJSON converts the job to JSON bytes
func (j *InboundJob) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

// InboundJobFromJSON decodes a job and checks that its message can be routed.
func InboundJobFromJSON(data []byte) (*InboundJob, error) {
	var job InboundJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	if err := job.Message.Validate(); err != nil {
		return nil, fmt.Errorf("invalid job %s: %w", job.JobID, err)
	}
	return &job, nil
}
