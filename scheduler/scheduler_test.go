package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roastsync/roastery/lock"
	"github.com/roastsync/roastery/roastery"
	"github.com/roastsync/roastery/roastery/store"
)

func newScheduler(t *testing.T, locker roastery.Locker) (*Scheduler, *store.Memory, *time.Time) {
	t.Helper()
	mem := store.NewMemory()
	s := New(Options{Spec: "0 23 * * *"}, roastery.NewDashboard(mem, 0), mem, locker, nil)
	clock := time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	return s, mem, &clock
}

func TestRunSnapshot(t *testing.T) {
	s, mem, clock := newScheduler(t, lock.NewLocal())
	ctx := context.Background()

	// WHEN: the job runs on an empty store
	first, err := s.RunSnapshot(ctx, false)

	// THEN: a snapshot stamped with the clock is stored
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, *clock, first.TakenAt)
	assert.True(t, first.Summary.RoastedAvailable == 0)

	// A second scheduled run right away is skipped
	_, err = s.RunSnapshot(ctx, false)
	assert.ErrorIs(t, err, ErrSkipped)

	// A forced run is not
	forced, err := s.RunSnapshot(ctx, true)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, forced.ID)

	// Nor is a scheduled run once the interval has passed
	*clock = clock.Add(24 * time.Hour)
	later, err := s.RunSnapshot(ctx, false)
	require.NoError(t, err)

	snaps, err := mem.ListSnapshots(ctx, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, later.ID, snaps[0].ID, "newest first")
}

func TestRunSnapshot_LockHeldElsewhere(t *testing.T) {
	locker := lock.NewLocal()
	s, mem, _ := newScheduler(t, locker)

	unlock, err := locker.Lock(context.Background(), SnapshotLockKey)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.RunSnapshot(ctx, true)
	assert.ErrorIs(t, err, ErrSkipped)

	snaps, err := mem.ListSnapshots(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestStart(t *testing.T) {
	mem := store.NewMemory()
	dash := roastery.NewDashboard(mem, 0)

	bad := New(Options{Spec: "every night"}, dash, mem, nil, nil)
	assert.Error(t, bad.Start())

	conakry, err := time.LoadLocation("Africa/Conakry")
	require.NoError(t, err)
	s := New(Options{Spec: "0 23 * * *", Location: conakry}, dash, mem, nil, nil)
	assert.True(t, s.Next().IsZero())

	require.NoError(t, s.Start())
	defer s.Stop()

	next := s.Next().In(conakry)
	assert.Equal(t, 23, next.Hour())
	assert.Equal(t, 0, next.Minute())
}
