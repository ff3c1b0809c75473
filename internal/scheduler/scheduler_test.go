package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingJobs struct {
	sweeps   atomic.Int32
	cleanups atomic.Int32
	monitors atomic.Int32
	backups  atomic.Int32
	fail     bool
}

func (c *countingJobs) SweepSessions(context.Context) int { c.sweeps.Add(1); return 2 }
func (c *countingJobs) Cleanup() int                      { c.cleanups.Add(1); return 0 }
func (c *countingJobs) DetectSuspiciousActivity(context.Context) error {
	c.monitors.Add(1)
	return nil
}
func (c *countingJobs) Run(context.Context) error {
	c.backups.Add(1)
	if c.fail {
		return errors.New("disk full")
	}
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestJobs_RunEachTask(t *testing.T) {
	c := &countingJobs{fail: true}
	var stats atomic.Int32
	jobs := NewJobs(c, c, c, c, func() { stats.Add(1) }, discard())

	jobs.SweepIdleSessions()
	jobs.CleanupLimiters()
	jobs.MonitorAuditLog()
	jobs.BackupDatabase()
	jobs.CollectDBStats()

	assert.Equal(t, int32(1), c.sweeps.Load())
	assert.Equal(t, int32(1), c.cleanups.Load())
	assert.Equal(t, int32(1), c.monitors.Load())
	assert.Equal(t, int32(1), c.backups.Load())
	assert.Equal(t, int32(1), stats.Load())
}

func TestScheduler_StartSkipsEmptyAndInvalid(t *testing.T) {
	c := &countingJobs{}
	s := New(NewJobs(c, c, c, c, nil, discard()), Schedules{
		SessionSweep:   "@every 1s",
		LimiterCleanup: "not a schedule",
		AuditMonitor:   "@every 1h",
	}, discard())

	assert.Equal(t, 2, s.Start())

	assert.Eventually(t, func() bool { return c.sweeps.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	<-s.Stop().Done()
	assert.Zero(t, c.cleanups.Load())
}
