// Package report archives window reports in the background. The API enqueues
// report:generate tasks, the worker builds the CSV from the full record set and
// keeps it in Redis for later download.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/parkconnect-api/internal/records"
)

// TypeGenerate is the asynq task type for report archiving.
const TypeGenerate = "report:generate"

// Queue is the asynq queue report tasks run on.
const Queue = "reports"

// Payload identifies the report window. An empty Date means the day the task
// runs, which is what scheduled tasks use.
type Payload struct {
	Kind records.ReportKind `json:"kind"`
	Date string             `json:"date,omitempty"`
}

// NewGenerateTask builds a report:generate task.
func NewGenerateTask(p Payload, opts ...asynq.Option) (*asynq.Task, error) {
	if _, err := records.ParseReportKind(string(p.Kind)); err != nil {
		return nil, err
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode report payload: %w", err)
	}
	base := []asynq.Option{asynq.Queue(Queue), asynq.MaxRetry(5), asynq.Timeout(2 * time.Minute)}
	return asynq.NewTask(TypeGenerate, body, append(base, opts...)...), nil
}

// DecodePayload parses a task payload.
func DecodePayload(t *asynq.Task) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return Payload{}, err
	}
	return p, nil
}
