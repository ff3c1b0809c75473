package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirk1998/secure-bank/internal/api"
	"github.com/amirk1998/secure-bank/internal/audit"
	"github.com/amirk1998/secure-bank/internal/backup"
	"github.com/amirk1998/secure-bank/internal/circuitbreaker"
	"github.com/amirk1998/secure-bank/internal/config"
	"github.com/amirk1998/secure-bank/internal/database"
	"github.com/amirk1998/secure-bank/internal/events"
	"github.com/amirk1998/secure-bank/internal/logging"
	"github.com/amirk1998/secure-bank/internal/metrics"
	"github.com/amirk1998/secure-bank/internal/oracle"
	"github.com/amirk1998/secure-bank/internal/ratelimit"
	"github.com/amirk1998/secure-bank/internal/realtime"
	"github.com/amirk1998/secure-bank/internal/repository"
	"github.com/amirk1998/secure-bank/internal/risk"
	"github.com/amirk1998/secure-bank/internal/scheduler"
	"github.com/amirk1998/secure-bank/internal/security"
	"github.com/amirk1998/secure-bank/internal/service"
	"github.com/amirk1998/secure-bank/internal/session"
	"github.com/amirk1998/secure-bank/pkg/geoip"
)

const (
	breakerThreshold = 5
	breakerOpenFor   = 30 * time.Second
	dbStatsSchedule  = "@every 15s"
	shutdownTimeout  = 15 * time.Second
)

type Application struct {
	config      *config.Config
	logger      *slog.Logger
	db          *sql.DB
	auditLogger *audit.Logger
	publisher   events.Publisher
	streamer    *realtime.Streamer
	scheduler   *scheduler.Scheduler
	server      *http.Server
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	app, err := initializeApplication(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer app.cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs := app.scheduler.Start()
	logger.Info("scheduler started", "jobs", jobs)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "env", cfg.Environment)
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server failed", "error", err)
		}
	}

	app.shutdown()
}

func initializeApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	keyManager, err := security.NewKeyManager(cfg.DBEncryptionKey, cfg.AppEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize key manager: %w", err)
	}

	db, err := database.Connect(database.DefaultConfig(cfg.DBPath, keyManager.DBKey()))
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	repos := repository.New(db)

	// Sessions live in memory, so none survive a restart.
	if n, err := repos.Sessions.EndOpen(ctx, repository.EndRestart); err != nil {
		logger.Warn("failed to close stale session records", "error", err)
	} else if n > 0 {
		logger.Info("closed stale session records", "count", n)
	}

	fieldEncryptor, err := security.NewFieldEncryptor(keyManager.FieldKey())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize field encryptor: %w", err)
	}

	publisher := events.Connect(cfg.RabbitMQURL, cfg.SecurityEventsExchange, logger)

	auditLogger, err := audit.NewLogger(db, cfg.AuditLogPath, cfg.AuditAsyncMode, publisher, logger)
	if err != nil {
		publisher.Close()
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit logger: %w", err)
	}
	auditMonitor := audit.NewMonitor(auditLogger, auditLogger, logger)

	backupMgr, err := backup.NewManager(db, cfg.BackupDir, cfg.BackupEncryptionKey, cfg.BackupRetentionDays, logger)
	if err != nil {
		auditLogger.Close()
		publisher.Close()
		db.Close()
		return nil, fmt.Errorf("failed to initialize backup manager: %w", err)
	}

	rateLimiter := ratelimit.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	hasher := security.NewPasswordHasher()
	sessions := session.NewManager(time.Now)

	breaker := circuitbreaker.New(breakerThreshold, breakerOpenFor)
	oracleClient := oracle.NewClient(cfg.OracleBaseURL, cfg.OracleAPIKey, cfg.OracleTimeout(), breaker, logger)
	riskGate := risk.NewGate(oracleClient, cfg.OracleTimeout(), logger)

	sessionService := service.NewSessionService(repos.Users, repos.Sessions, sessions, hasher, keyManager, rateLimiter, auditLogger, logger)
	services := api.Services{
		Auth: service.NewAuthService(service.AuthDependencies{
			Users:       repos.Users,
			Devices:     repos.Devices,
			SessionLog:  repos.Sessions,
			Sessions:    sessions,
			Hasher:      hasher,
			Tokens:      keyManager,
			Cipher:      fieldEncryptor,
			Voice:       oracleClient,
			Transcriber: oracleClient,
			Locator:     geoip.NewClient(cfg.GeoIPBaseURL),
			RateLimiter: rateLimiter,
			Audit:       auditLogger,
			Logger:      logger,
		}),
		Sessions:      sessionService,
		Profile:       service.NewProfileService(repos.Users, repos.Devices, auditLogger, logger),
		Transfers:     service.NewTransferService(riskGate, repos.Beneficiaries, auditLogger, logger),
		Beneficiaries: service.NewBeneficiaryService(repos.Beneficiaries, logger),
		Deposits:      service.NewDepositService(repos.Deposits, service.NewSQLLedger(database.NewTransactionManager(db), repos), auditLogger, logger),
		Support:       service.NewSupportService(repos.Complaints, oracleClient, logger),
		Verification:  service.NewVerificationService(oracleClient, oracleClient, auditLogger, logger),
	}

	streamer := realtime.NewStreamer(cfg.AllowedOrigins(), realtime.DefaultInterval, logger)
	handler := api.NewHandler(services, streamer, rateLimiter, logger)

	jobs := scheduler.NewJobs(sessionService, rateLimiter, auditMonitor, backupMgr,
		func() { metrics.CollectDBStats(db) }, logger)
	sched := scheduler.New(jobs, scheduler.Schedules{
		SessionSweep:   cfg.SessionSweepSchedule,
		LimiterCleanup: cfg.LimiterCleanupSchedule,
		AuditMonitor:   cfg.AuditMonitorSchedule,
		Backup:         cfg.BackupSchedule,
		DBStats:        dbStatsSchedule,
	}, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.WithCORS(handler.Router(), cfg.AllowedOrigins()),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	return &Application{
		config:      cfg,
		logger:      logger,
		db:          db,
		auditLogger: auditLogger,
		publisher:   publisher,
		streamer:    streamer,
		scheduler:   sched,
		server:      server,
	}, nil
}

// shutdown stops accepting work and waits for in-flight requests and jobs.
func (app *Application) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	app.streamer.Shutdown()
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("http server shutdown failed", "error", err)
	}

	select {
	case <-app.scheduler.Stop().Done():
	case <-ctx.Done():
		app.logger.Warn("scheduled jobs did not finish before shutdown timeout")
	}
}

func (app *Application) cleanup() {
	app.logger.Info("shutting down gracefully")

	if app.auditLogger != nil {
		app.auditLogger.Close()
	}
	if app.publisher != nil {
		app.publisher.Close()
	}
	if app.db != nil {
		app.db.Close()
	}

	app.logger.Info("shutdown complete")
}
