package report

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/parkconnect-api/internal/records"
)

// Generator handles report:generate tasks.
type Generator struct {
	Source  records.Source
	Engine  *records.Engine
	Archive *Archive
	Logger  zerolog.Logger
	// OnExport receives the report kind and outcome of every task.
	OnExport func(kind, outcome string)
}

// ProcessTask implements asynq.Handler. Malformed payloads are not retried.
func (g *Generator) ProcessTask(ctx context.Context, t *asynq.Task) error {
	p, err := DecodePayload(t)
	if err != nil {
		return fmt.Errorf("decode report payload: %v: %w", err, asynq.SkipRetry)
	}
	kind, err := records.ParseReportKind(string(p.Kind))
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	ref, err := g.Engine.ParseDate(p.Date)
	if err != nil {
		return fmt.Errorf("invalid report date %q: %w", p.Date, asynq.SkipRetry)
	}

	all, err := g.Source.List(ctx)
	if err != nil {
		g.observe(kind, "error")
		return err
	}
	rep, err := g.Engine.BuildReport(all, kind, ref)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	log := g.Logger.With().Str("report", string(kind)).Str("file", rep.Filename).Logger()
	if rep.Empty() {
		g.observe(kind, "empty")
		log.Info().Msg("report window has no records, nothing archived")
		return nil
	}
	body, err := rep.CSV()
	if err != nil {
		g.observe(kind, "error")
		return err
	}
	if err := g.Archive.Save(ctx, rep.Filename, body); err != nil {
		g.observe(kind, "error")
		return err
	}
	g.observe(kind, "archived")
	log.Info().Int("records", rep.Summary.Count).Msg("report archived")
	return nil
}

func (g *Generator) observe(kind records.ReportKind, outcome string) {
	if g.OnExport != nil {
		g.OnExport(string(kind), outcome)
	}
}

// Register mounts the generator on mux.
func (g *Generator) Register(mux *asynq.ServeMux) {
	mux.Handle(TypeGenerate, g)
}
