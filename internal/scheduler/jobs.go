package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// jobTimeout bounds any single run.
const jobTimeout = 5 * time.Minute

type SessionSweeper interface {
	SweepSessions(ctx context.Context) int
}

type LimiterCleaner interface {
	Cleanup() int
}

type ActivityMonitor interface {
	DetectSuspiciousActivity(ctx context.Context) error
}

type BackupRunner interface {
	Run(ctx context.Context) error
}

// Jobs holds the periodic maintenance tasks.
type Jobs struct {
	sessions SessionSweeper
	limiter  LimiterCleaner
	monitor  ActivityMonitor
	backups  BackupRunner
	dbStats  func()
	logger   *slog.Logger
}

func NewJobs(sessions SessionSweeper, limiter LimiterCleaner, monitor ActivityMonitor, backups BackupRunner, dbStats func(), logger *slog.Logger) *Jobs {
	return &Jobs{
		sessions: sessions,
		limiter:  limiter,
		monitor:  monitor,
		backups:  backups,
		dbStats:  dbStats,
		logger:   logger,
	}
}

// SweepIdleSessions ends sessions that idled out without another request.
func (j *Jobs) SweepIdleSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if n := j.sessions.SweepSessions(ctx); n > 0 {
		j.logger.Info("idle sessions ended", "count", n)
	}
}

func (j *Jobs) CleanupLimiters() {
	if n := j.limiter.Cleanup(); n > 0 {
		j.logger.Debug("stale rate limiters removed", "count", n)
	}
}

func (j *Jobs) MonitorAuditLog() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := j.monitor.DetectSuspiciousActivity(ctx); err != nil {
		j.logger.Error("audit monitor failed", "error", err)
	}
}

func (j *Jobs) BackupDatabase() {
	j.logger.Info("starting scheduled backup")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := j.backups.Run(ctx); err != nil {
		j.logger.Error("scheduled backup failed", "error", err)
		return
	}
	j.logger.Info("scheduled backup completed")
}

func (j *Jobs) CollectDBStats() {
	if j.dbStats != nil {
		j.dbStats()
	}
}
