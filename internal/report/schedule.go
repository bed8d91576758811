package report

import (
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/parkconnect-api/internal/records"
)

// Schedules maps each report kind to a cron spec. Empty specs are skipped.
type Schedules map[records.ReportKind]string

// Registrar is the part of asynq.Scheduler used to register periodic tasks.
type Registrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

// RegisterSchedules registers one periodic report:generate task per kind.
// It returns the number of entries registered.
func RegisterSchedules(s Registrar, specs Schedules, logger zerolog.Logger) (int, error) {
	n := 0
	for _, kind := range records.ReportKinds {
		spec := strings.TrimSpace(specs[kind])
		if spec == "" {
			continue
		}
		task, err := NewGenerateTask(Payload{Kind: kind})
		if err != nil {
			return n, err
		}
		id, err := s.Register(spec, task)
		if err != nil {
			return n, err
		}
		logger.Info().Str("report", string(kind)).Str("cron", spec).Str("entry_id", id).Msg("report schedule registered")
		n++
	}
	return n, nil
}
