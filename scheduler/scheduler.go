/*
Package scheduler runs the periodic back-office jobs.

JOBS:
  dashboard-snapshot  Computes the dashboard summary and stores it
                      (dashboard_snapshots), on SNAPSHOT_CRON in TIMEZONE.

MULTIPLE INSTANCES:
  Every run takes the locker key "job:dashboard-snapshot" without waiting
  long. With the Redis locker, instances sharing a database therefore never
  snapshot concurrently, and a run that finds a snapshot younger than
  MinInterval skips.

USAGE:
  s := scheduler.New(scheduler.Options{Spec: "0 23 * * *"}, dash, store, locker, logger)
  if err := s.Start(); err != nil { ... }
  defer s.Stop()
*/
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/roastsync/roastery/roastery"
)

// SnapshotLockKey guards the snapshot job across instances.
const SnapshotLockKey = "job:dashboard-snapshot"

// ErrSkipped is returned by RunSnapshot when another run got there first.
var ErrSkipped = errors.New("snapshot skipped")

type Options struct {
	// Spec is a standard 5-field cron expression or a descriptor (@daily).
	Spec     string
	Location *time.Location
	// MinInterval is the minimum age of the latest snapshot before a
	// scheduled run writes another. Defaults to one minute.
	MinInterval time.Duration
	// Timeout bounds one run. Defaults to two minutes.
	Timeout time.Duration
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	opts      Options
	dashboard *roastery.Dashboard
	snapshots roastery.SnapshotStore
	locker    roastery.Locker
	logger    *zap.Logger
	now       func() time.Time
}

func New(opts Options, dashboard *roastery.Dashboard, snapshots roastery.SnapshotStore, locker roastery.Locker, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = roastery.NopLocker{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = time.Minute
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(opts.Location)),
		opts:      opts,
		dashboard: dashboard,
		snapshots: snapshots,
		locker:    locker,
		logger:    logger,
		now:       time.Now,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.opts.Spec, s.snapshotJob); err != nil {
		return fmt.Errorf("failed to schedule dashboard snapshot %q: %w", s.opts.Spec, err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("snapshot_cron", s.opts.Spec), zap.String("tz", s.opts.Location.String()))
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Next reports when the snapshot job runs next. Zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) snapshotJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()

	snap, err := s.RunSnapshot(ctx, false)
	switch {
	case errors.Is(err, ErrSkipped):
		s.logger.Info("dashboard snapshot skipped", zap.Error(err))
	case err != nil:
		s.logger.Error("failed to take dashboard snapshot", zap.Error(err))
	default:
		s.logger.Info("dashboard snapshot taken", zap.Int64("snapshot_id", snap.ID))
	}
}

// RunSnapshot takes one snapshot now. Unless force is set, it skips when
// the latest snapshot is younger than MinInterval.
func (s *Scheduler) RunSnapshot(ctx context.Context, force bool) (roastery.DashboardSnapshot, error) {
	lockCtx, cancel := context.WithTimeout(ctx, time.Second)
	unlock, err := s.locker.Lock(lockCtx, SnapshotLockKey)
	cancel()
	if err != nil {
		return roastery.DashboardSnapshot{}, fmt.Errorf("%w: %v", ErrSkipped, err)
	}
	defer unlock()

	now := s.now()
	if !force {
		latest, err := s.snapshots.ListSnapshots(ctx, 1)
		if err != nil {
			return roastery.DashboardSnapshot{}, err
		}
		if len(latest) > 0 && now.Sub(latest[0].TakenAt) < s.opts.MinInterval {
			return roastery.DashboardSnapshot{}, fmt.Errorf("%w: latest snapshot %d taken at %s",
				ErrSkipped, latest[0].ID, latest[0].TakenAt.Format(time.RFC3339))
		}
	}

	return s.dashboard.Snapshot(ctx, s.snapshots, now)
}
