// Package scheduler runs the periodic maintenance jobs on a cron.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Schedules are cron specs; "@every 30s" style descriptors are accepted.
type Schedules struct {
	SessionSweep   string
	LimiterCleanup string
	AuditMonitor   string
	Backup         string
	DBStats        string
}

type Scheduler struct {
	cron      *cron.Cron
	jobs      *Jobs
	schedules Schedules
	logger    *slog.Logger
}

func New(jobs *Jobs, schedules Schedules, logger *slog.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &Scheduler{
		cron:      c,
		jobs:      jobs,
		schedules: schedules,
		logger:    logger,
	}
}

// Start registers every job with a non-empty schedule and starts the cron.
// It reports how many jobs were scheduled.
func (s *Scheduler) Start() int {
	jobs := []struct {
		name     string
		schedule string
		run      func()
	}{
		{"session sweep", s.schedules.SessionSweep, s.jobs.SweepIdleSessions},
		{"rate limiter cleanup", s.schedules.LimiterCleanup, s.jobs.CleanupLimiters},
		{"audit monitor", s.schedules.AuditMonitor, s.jobs.MonitorAuditLog},
		{"database backup", s.schedules.Backup, s.jobs.BackupDatabase},
		{"db stats", s.schedules.DBStats, s.jobs.CollectDBStats},
	}

	scheduled := 0
	for _, job := range jobs {
		if job.schedule == "" {
			continue
		}
		if _, err := s.cron.AddFunc(job.schedule, job.run); err != nil {
			s.logger.Error("failed to schedule job", "job", job.name, "schedule", job.schedule, "error", err)
			continue
		}
		s.logger.Info("scheduled job", "job", job.name, "schedule", job.schedule)
		scheduled++
	}

	s.cron.Start()
	return scheduled
}

// Stop stops the cron; the returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
