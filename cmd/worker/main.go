package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/parkconnect-api/internal/app"
	"github.com/noah-isme/parkconnect-api/internal/booking"
	"github.com/noah-isme/parkconnect-api/internal/common"
	"github.com/noah-isme/parkconnect-api/internal/config"
	"github.com/noah-isme/parkconnect-api/internal/notify"
	"github.com/noah-isme/parkconnect-api/internal/obs"
	"github.com/noah-isme/parkconnect-api/internal/records"
	"github.com/noah-isme/parkconnect-api/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("component", "worker").Logger()
	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisOpt, err := app.AsynqRedis(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker needs redis")
	}

	deps, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close(logger)
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn().Msg("worker reads its own in-memory store; reports only reflect the demo data")
	}

	bookings := &booking.Service{Store: deps.Store, Location: cfg.Location, Logger: logger}
	generator := &report.Generator{
		Source:   bookings,
		Engine:   records.NewEngine(cfg.Location),
		Archive:  &report.Archive{R: deps.Redis, TTL: cfg.ReportArchiveTTL},
		Logger:   logger.With().Str("task", report.TypeGenerate).Logger(),
		OnExport: obs.ObserveExport,
	}
	emailWorker := notify.EmailWorker{
		Mail:   common.LogEmailSender{Logger: logger.With().Str("from", cfg.NotifyEmailFrom).Logger()},
		Guard:  notify.SentGuard{Client: deps.Redis, TTL: cfg.IdempotencyTTL},
		Logger: logger.With().Str("task", notify.TypeEmail).Logger(),
	}

	mux := asynq.NewServeMux()
	generator.Register(mux)
	emailWorker.Register(mux)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues: map[string]int{
			notify.Queue: 6,
			report.Queue: 3,
		},
		Logger:   asynqLogger{logger: logger},
		LogLevel: asynq.InfoLevel,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Error().Err(err).
				Str("type", task.Type()).
				Int("retry", retried).
				Int("max_retry", maxRetry).
				Msg("task failed")
		}),
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: cfg.Location,
		Logger:   asynqLogger{logger: logger.With().Str("component", "scheduler").Logger()},
	})
	n, err := report.RegisterSchedules(scheduler, app.ReportSchedules(cfg), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("register report schedules")
	}

	if n > 0 {
		if err := scheduler.Start(); err != nil {
			logger.Fatal().Err(err).Msg("start scheduler")
		}
		defer scheduler.Shutdown()
	}
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}
	logger.Info().Int("schedules", n).Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")

	<-ctx.Done()
	logger.Info().Msg("worker shutting down")
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

// asynqLogger routes asynq's internal logging through zerolog.
type asynqLogger struct {
	logger zerolog.Logger
}

func (l asynqLogger) Debug(args ...any) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }
