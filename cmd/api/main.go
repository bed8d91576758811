package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/parkconnect-api/internal/analytics"
	"github.com/noah-isme/parkconnect-api/internal/app"
	"github.com/noah-isme/parkconnect-api/internal/audit"
	"github.com/noah-isme/parkconnect-api/internal/auth"
	"github.com/noah-isme/parkconnect-api/internal/booking"
	"github.com/noah-isme/parkconnect-api/internal/cache"
	"github.com/noah-isme/parkconnect-api/internal/common"
	"github.com/noah-isme/parkconnect-api/internal/config"
	"github.com/noah-isme/parkconnect-api/internal/events"
	"github.com/noah-isme/parkconnect-api/internal/health"
	"github.com/noah-isme/parkconnect-api/internal/lock"
	"github.com/noah-isme/parkconnect-api/internal/notify"
	"github.com/noah-isme/parkconnect-api/internal/obs"
	"github.com/noah-isme/parkconnect-api/internal/pricing"
	"github.com/noah-isme/parkconnect-api/internal/queue"
	"github.com/noah-isme/parkconnect-api/internal/ratelimit"
	"github.com/noah-isme/parkconnect-api/internal/records"
	"github.com/noah-isme/parkconnect-api/internal/report"
	"github.com/noah-isme/parkconnect-api/internal/resilience"
	"github.com/noah-isme/parkconnect-api/internal/scan"
	"github.com/noah-isme/parkconnect-api/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Logger()
	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
	queue.MustRegisterMetrics(cfg.Obs.MetricsNamespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingEnabled := cfg.Obs.EnableTracing
	if tracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "parkconnect-api",
			Endpoint:      cfg.Obs.OTLPEndpoint,
			Exporter:      cfg.Obs.TracingExporter,
			SamplingRatio: cfg.Obs.SamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.Build(startCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close(logger)
	rdb := deps.Redis

	var tasks *asynq.Client
	queueAdmin := &queue.AdminHandler{
		Queues: []string{report.Queue, notify.Queue},
		Logger: logger.With().Str("component", "queue-admin").Logger(),
	}
	if opt, err := app.AsynqRedis(cfg); err == nil {
		tasks = asynq.NewClient(opt)
		inspector := asynq.NewInspector(opt)
		queueAdmin.Inspector = inspector
		defer func() {
			if err := tasks.Close(); err != nil {
				logger.Error().Err(err).Msg("close task client")
			}
			if err := inspector.Close(); err != nil {
				logger.Error().Err(err).Msg("close task inspector")
			}
		}()
	}

	locker := &lock.Locker{R: rdb, RetryBackoff: cfg.LockRetryBackoff}
	bus := &events.Bus{
		Store:     deps.Store,
		Notifiers: []events.Notifier{emailNotifier(cfg, tasks, logger)},
	}

	pricingSvc := &pricing.Service{
		Store: deps.Store,
		Cache: cache.NewJSON(rdb, cfg.PricingCacheTTL),
		Breaker: resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).
			WithTarget("pricing-store").
			WithLogger(logger),
		Locker:       locker,
		LockTTL:      cfg.LockTTL,
		FetchTimeout: cfg.PricingFetchTimeout,
		Events:       bus,
		Logger:       logger.With().Str("component", "pricing").Logger(),
		OnFallback:   obs.ObservePricingFallback,
	}

	analyticsSvc := &analytics.Service{
		Cache:    cache.NewJSON(rdb, cfg.DashboardCacheTTL),
		Location: cfg.Location,
		Logger:   logger.With().Str("component", "analytics").Logger(),
	}

	bookingSvc := &booking.Service{
		Store:     deps.Store,
		Tiers:     pricingSvc,
		Validator: booking.NewValidator(cfg.Location),
		Events:    bus,
		Locker:    locker,
		LockTTL:   cfg.LockTTL,
		Location:  cfg.Location,
		Logger:    logger.With().Str("component", "booking").Logger(),
		OnCreated: func(res booking.CreateResult) {
			source := "live"
			if len(res.Warnings) > 0 {
				source = "fallback"
			}
			categories := make([]string, 0, len(res.Booking.Visitors))
			for _, c := range res.Booking.Categories() {
				categories = append(categories, string(c))
			}
			obs.ObserveBooking(source, categories)
			analyticsSvc.Invalidate(context.Background())
		},
		OnChanged: analyticsSvc.BookingChanged,
	}
	analyticsSvc.Source = bookingSvc

	engine := records.NewEngine(cfg.Location)
	scanSvc := &scan.Service{
		Bookings: bookingSvc,
		Location: cfg.Location,
		Logger:   logger.With().Str("component", "scan").Logger(),
		OnScan:   obs.ObserveScan,
	}

	authSvc, err := auth.NewService(auth.Config{
		Accounts:       app.StaffAccounts(cfg),
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
		Issuer:         cfg.JWTIssuer,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{Service: authSvc}
	authMiddleware := auth.Middleware{Service: authSvc}

	limiter, err := app.NewBookingLimiter(cfg, rdb)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	bookingLimit := ratelimit.Handler{
		Limiter: limiter,
		Config: ratelimit.Config{
			Key:    ratelimit.ByClientIP("create"),
			Window: cfg.BookingRateLimitWindow,
			Max:    cfg.BookingRateLimitMax,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		},
		OnReject: func(*http.Request) { obs.ObserveRateLimited() },
	}
	idem := common.Idem{R: rdb, TTL: cfg.IdempotencyTTL}

	pricingHandler := &pricing.Handler{Service: pricingSvc}
	bookingHandler := &booking.Handler{Service: bookingSvc}
	scanHandler := &scan.Handler{Svc: scanSvc}
	recordsHandler := &records.Handler{
		Source:   bookingSvc,
		Engine:   engine,
		Logger:   logger.With().Str("component", "records").Logger(),
		OnExport: obs.ObserveExport,
	}
	reportHandler := &report.Handler{
		Archive: &report.Archive{R: rdb, TTL: cfg.ReportArchiveTTL},
		Engine:  engine,
	}
	if tasks != nil {
		reportHandler.Tasks = tasks
	}
	analyticsHandler := &analytics.Handler{Svc: analyticsSvc}
	auditSvc := &audit.Service{Store: deps.Store, Enabled: cfg.AuditEnabled}
	auditRecorder := audit.HTTPRecorder{
		Service: auditSvc,
		OnError: func(err error) { logger.Error().Err(err).Msg("record audit entry") },
	}
	audited := func(action, resource, idParam string) func(http.Handler) http.Handler {
		return auditRecorder.Middleware(audit.HTTPConfig{Action: action, Resource: resource, ResourceIDParam: idParam})
	}

	var httpMetrics *obs.HTTPMetrics
	if cfg.Obs.EnablePrometheus {
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.SpanRouteMiddleware)
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.IsProduction()}.Middleware)
	r.Use(security.CORS(cfg.CORSAllowedOrigins))
	r.Use(security.BodyLimit{Max: cfg.HTTPMaxBodyBytes}.Middleware)

	if httpMetrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.Obs.EnablePprof {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.Obs.PprofUser, cfg.Obs.PprofPassword))
	}

	healthHandler := health.Handler{
		Checker:      health.Deps{Store: deps.Store, Redis: rdb},
		StoreTimeout: 500 * time.Millisecond,
		RedisTimeout: 300 * time.Millisecond,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Post("/auth/login", authHandler.Login)

		v.Get("/pricing", pricingHandler.Get)
		v.Post("/pricing/quote", pricingHandler.Quote)

		v.With(bookingLimit.Middleware, idem.Middleware).Post("/bookings", bookingHandler.Create)
		v.Get("/bookings/{id}", bookingHandler.Get)
		v.Get("/bookings/{id}/ticket.pdf", bookingHandler.Ticket)

		v.Group(func(staff chi.Router) {
			staff.Use(authMiddleware.RequireRole(auth.RoleAdmin, auth.RoleVerifier))
			staff.Get("/scan/{id}", scanHandler.Verify)
			staff.With(audited("booking.check_in", "booking", "id")).Post("/scan/{id}/check-in", scanHandler.CheckIn)
			staff.With(audited("booking.check_out", "booking", "id")).Post("/scan/{id}/check-out", scanHandler.CheckOut)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireRole(auth.RoleAdmin))
			admin.With(audited("pricing.update", "pricing", "")).Put("/pricing", pricingHandler.Update)
			admin.Get("/visitors", recordsHandler.List)
			admin.Get("/visitors/export", recordsHandler.Export)
			admin.Get("/reports/archive/{name}", reportHandler.Download)
			admin.Get("/reports/{kind}", recordsHandler.Report)
			admin.With(audited("report.archive", "report", "kind")).Post("/reports/{kind}/archive", reportHandler.Enqueue)
			admin.With(audited("booking.payment", "booking", "id")).Patch("/bookings/{id}/payment", bookingHandler.SetPayment)
			admin.With(audited("booking.cancel", "booking", "id")).Post("/bookings/{id}/cancel", bookingHandler.Cancel)
			admin.Get("/dashboard", analyticsHandler.Dashboard)
			admin.Get("/audit", audit.Handler{Store: deps.Store}.List)
			admin.Get("/queues", queueAdmin.Stats)
			admin.Get("/queues/{queue}/dead", queueAdmin.ListDead)
			admin.With(audited("queue.replay", "queue", "queue")).Post("/queues/{queue}/dead/replay", queueAdmin.ReplayDead)
		})
	})

	var handler http.Handler = r
	if tracingEnabled {
		handler = obs.HTTPHandler(r, "parkconnect-api")
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	health.SetReady(true)
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("store", cfg.StoreDriver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
	}

	health.SetReady(false)
	logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// emailNotifier queues visitor emails for the worker when Redis is available
// and otherwise sends them inline through the log sender.
func emailNotifier(cfg *config.Config, tasks *asynq.Client, logger zerolog.Logger) events.Notifier {
	if tasks != nil {
		return notify.QueuedNotifier{Tasks: tasks, Enabled: cfg.NotifyEmailEnabled}
	}
	mail := common.LogEmailSender{Logger: logger.With().Str("from", cfg.NotifyEmailFrom).Logger()}
	return notify.EmailNotifier{Mail: mail, Enabled: cfg.NotifyEmailEnabled}
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
