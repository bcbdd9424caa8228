package cron

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRun(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

	t.Run("at schedule", func(t *testing.T) {
		next, err := NextRun(Schedule{Kind: ScheduleKindAt, At: "2025-06-02T08:00:00Z"}, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC), next.UTC())
	})

	t.Run("every schedule", func(t *testing.T) {
		next, err := NextRun(EverySchedule(15*time.Minute), now)
		require.NoError(t, err)
		assert.Equal(t, now.Add(15*time.Minute), next)
	})

	t.Run("cron expression", func(t *testing.T) {
		next, err := NextRun(CronSchedule("0 * * * *"), now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC), next.UTC())
	})

	t.Run("cron descriptor", func(t *testing.T) {
		next, err := NextRun(CronSchedule("@hourly"), now)
		require.NoError(t, err)
		assert.True(t, next.After(now))
	})

	t.Run("invalid inputs", func(t *testing.T) {
		tests := []Schedule{
			{Kind: ScheduleKindAt},
			{Kind: ScheduleKindAt, At: "not-a-timestamp"},
			{Kind: ScheduleKindEvery},
			{Kind: ScheduleKindCron},
			{Kind: ScheduleKindCron, Expr: "not a cron expr at all"},
			{Kind: "weekly"},
		}
		for _, schedule := range tests {
			_, err := NextRun(schedule, now)
			assert.Error(t, err, fmt.Sprintf("%+v", schedule))
		}
	})
}

func TestServiceRunsIntervalJob(t *testing.T) {
	s := NewService()
	defer s.Stop()

	var runs atomic.Int32
	_, err := s.AddJob("tick", EverySchedule(30*time.Millisecond), func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "tick", jobs[0].Name)
	assert.Equal(t, "ok", jobs[0].LastStatus)
}

func TestServiceOneShotJobRemovedAfterRun(t *testing.T) {
	s := NewService()
	defer s.Stop()

	ran := make(chan struct{})
	_, err := s.AddJob("once", Schedule{
		Kind: ScheduleKindAt,
		At:   time.Now().Add(20 * time.Millisecond).Format(time.RFC3339),
	}, func(ctx context.Context) error {
		close(ran)
		return nil
	})
	require.NoError(t, err)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("one-shot job never fired")
	}

	require.Eventually(t, func() bool {
		return len(s.Jobs()) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestServiceTracksFailures(t *testing.T) {
	s := NewService()
	defer s.Stop()

	var runs atomic.Int32
	_, err := s.AddJob("flaky", EverySchedule(20*time.Millisecond), func(ctx context.Context) error {
		runs.Add(1)
		return fmt.Errorf("backend down")
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "error", jobs[0].LastStatus)
	assert.Contains(t, jobs[0].LastError, "backend down")
	assert.GreaterOrEqual(t, jobs[0].ConsecutiveErrors, 1)
}

func TestServiceRemoveJob(t *testing.T) {
	s := NewService()
	defer s.Stop()

	job, err := s.AddJob("doomed", EverySchedule(time.Hour), func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	assert.True(t, s.RemoveJob(job.ID))
	assert.False(t, s.RemoveJob(job.ID))
	assert.Empty(t, s.Jobs())
}

func TestAddJobValidation(t *testing.T) {
	s := NewService()
	defer s.Stop()

	_, err := s.AddJob("", EverySchedule(time.Minute), func(ctx context.Context) error { return nil })
	assert.Error(t, err)

	_, err = s.AddJob("no-fn", EverySchedule(time.Minute), nil)
	assert.Error(t, err)

	_, err = s.AddJob("bad-schedule", Schedule{Kind: ScheduleKindCron}, func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}

func TestStopPreventsNewJobs(t *testing.T) {
	s := NewService()
	s.Stop()

	_, err := s.AddJob("late", EverySchedule(time.Minute), func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped")
}
