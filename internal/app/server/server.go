package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"visapath/internal/domain/accounts"
	"visapath/internal/domain/activity"
	"visapath/internal/domain/billing"
	"visapath/internal/domain/cases"
	"visapath/internal/domain/documents"
	"visapath/internal/domain/invites"
	"visapath/internal/domain/messages"
	"visapath/internal/domain/notifications"
	"visapath/internal/domain/reports"
	"visapath/internal/domain/retention"
	"visapath/internal/domain/settings"
	"visapath/internal/platform/config"
	"visapath/internal/platform/crypto"
	"visapath/internal/platform/db"
	"visapath/internal/platform/email"
	"visapath/internal/platform/identity"
	"visapath/internal/platform/jobs"
	"visapath/internal/platform/metrics"
	"visapath/internal/platform/objectstore"
	s3store "visapath/internal/platform/objectstore/s3"
	"visapath/internal/platform/payments"
	"visapath/internal/resilience"
	accountshandler "visapath/internal/transport/http/handlers/accounts"
	activityhandler "visapath/internal/transport/http/handlers/activity"
	adminhandler "visapath/internal/transport/http/handlers/admin"
	authhandler "visapath/internal/transport/http/handlers/auth"
	billinghandler "visapath/internal/transport/http/handlers/billing"
	caseshandler "visapath/internal/transport/http/handlers/cases"
	documentshandler "visapath/internal/transport/http/handlers/documents"
	inviteshandler "visapath/internal/transport/http/handlers/invites"
	messageshandler "visapath/internal/transport/http/handlers/messages"
	notificationshandler "visapath/internal/transport/http/handlers/notifications"
	reportshandler "visapath/internal/transport/http/handlers/reports"
	settingshandler "visapath/internal/transport/http/handlers/settings"
	"visapath/internal/transport/http/middleware"
)

type App struct {
	Config config.Config
	DB     *pgxpool.Pool
	Jobs   *jobs.Service
	Router http.Handler

	objects  objectstore.Store
	stopJobs context.CancelFunc
}

// New connects, migrates, seeds and wires the whole application. The
// returned App owns its pool and background workers; Close releases them.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, locateMigrations()); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	cipher, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("object store: %w", err)
	}

	idp := identity.New(cfg)
	gateway := payments.New(cfg)
	mailer := email.New(cfg)
	// Each App carries its own registry so repeated construction in tests
	// never collides with collectors registered by an earlier instance.
	promReg := prometheus.NewRegistry()
	breakers := resilience.NewBreakerRegistry()
	breakers.Instrument(metrics.NewBreakerMetricsWithRegistry(promReg))
	pipelineMetrics := metrics.NewPipelineMetricsWithRegistry(promReg)

	accountsSvc := accounts.New(accounts.NewStore(pool), idp)
	notificationsSvc := notifications.New(notifications.NewStore(pool), mailer, cfg.EmailFrom)
	invitesSvc := invites.New(invites.NewStore(pool))
	activitySvc := activity.New(pool)
	casesSvc := cases.New(cases.NewStore(pool))
	documentsSvc := documents.New(documents.NewStore(pool), objects)
	messagesSvc := messages.New(messages.NewStore(pool, cipher))
	billingSvc := billing.New(billing.NewStore(pool), gateway, breakers, notificationsSvc, cfg.ReconcileMinAge)
	retentionSvc := retention.New(retention.NewStore(pool), idp, objects, notificationsSvc, pipelineMetrics)
	reportsSvc := reports.NewService(reports.NewStore(pool))
	settingsSvc := settings.New(pool)

	jobsSvc := jobs.New(pool, cfg)
	jobsSvc.RunRetention = func(ctx context.Context) (any, error) {
		return retentionSvc.Run(ctx)
	}
	jobsSvc.RunReconcile = func(ctx context.Context) (any, error) {
		return billingSvc.Reconcile(ctx)
	}
	jobsCtx, stopJobs := context.WithCancel(context.Background())
	jobsSvc.Start(jobsCtx)

	idemStore := middleware.NewIdempotencyStore(pool)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recover)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics(metrics.NewHTTPMetricsWithRegistry(promReg)))
	}
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		authHandler := authhandler.NewHandler(accountsSvc, invitesSvc, activitySvc, cfg.JWTSecret, cfg.TokenTTL)
		authHandler.RegisterRoutes(r)

		billingHandler := billinghandler.NewHandler(billingSvc, activitySvc, idemStore, cfg.PaymentsWebhookSecret)
		billingHandler.RegisterWebhook(r)

		adminHandler := adminhandler.NewHandler(accountsSvc, casesSvc, retentionSvc, jobsSvc, activitySvc, cfg.CronSecret)
		adminHandler.RegisterTrigger(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			accountshandler.NewHandler(accountsSvc, activitySvc, notificationsSvc).RegisterRoutes(r)

			documentsHandler := documentshandler.NewHandler(documentsSvc, activitySvc, notificationsSvc)
			messagesHandler := messageshandler.NewHandler(messagesSvc, notificationsSvc)
			casesHandler := caseshandler.NewHandler(casesSvc, activitySvc, notificationsSvc)
			casesHandler.RegisterRoutes(r, documentsHandler.CaseRoutes, messagesHandler.CaseRoutes)
			documentsHandler.RegisterRoutes(r)
			messagesHandler.RegisterRoutes(r)

			notificationshandler.NewHandler(notificationsSvc).RegisterRoutes(r)
			billingHandler.RegisterRoutes(r)
			inviteshandler.NewHandler(invitesSvc).RegisterRoutes(r)
			settingshandler.NewHandler(settingsSvc).RegisterRoutes(r)
			activityhandler.NewHandler(activitySvc).RegisterRoutes(r)
			adminHandler.RegisterRoutes(r)
			reportshandler.NewHandler(reportsSvc).RegisterRoutes(r)
		})
	})

	return &App{
		Config:   cfg,
		DB:       pool,
		Jobs:     jobsSvc,
		Router:   router,
		objects:  objects,
		stopJobs: stopJobs,
	}, nil
}

func (a *App) Close() {
	a.stopJobs()
	if a.objects != nil {
		if err := a.objects.Close(); err != nil {
			slog.Warn("object store close failed", "error", err)
		}
	}
	a.DB.Close()
}

// Run blocks until SIGINT or SIGTERM, then drains in-flight requests.
func Run(cfg config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	slog.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
		}
	}
}

func newObjectStore(ctx context.Context, cfg config.Config) (objectstore.Store, error) {
	if cfg.S3Bucket == "" {
		slog.Info("S3_BUCKET not set, storing documents in memory")
		return objectstore.NewMemory(), nil
	}
	return s3store.New(ctx, s3store.Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		UsePathStyle:    cfg.S3UsePathStyle,
	})
}

// locateMigrations walks up from the working directory to the module
// root, so tests running from a package directory find the same files
// the server binary does.
func locateMigrations() string {
	dir, err := os.Getwd()
	if err != nil {
		return "migrations"
	}
	for {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "migrations"
		}
		dir = parent
	}
}
