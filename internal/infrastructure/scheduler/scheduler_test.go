package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int64
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

type panicJob struct{}

func (panicJob) Name() string              { return "panics" }
func (panicJob) Run(context.Context) error { panic("boom") }

func TestEverySchedule(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(5*time.Minute), Every(5*time.Minute).Next(base))
}

func TestDailyAtSchedule(t *testing.T) {
	sched := DailyAt{Hour: 20, Minute: 30}

	morning := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 30, 20, 30, 0, 0, time.UTC), sched.Next(morning))

	evening := time.Date(2026, 8, 30, 21, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 31, 20, 30, 0, 0, time.UTC), sched.Next(evening))

	exact := time.Date(2026, 8, 30, 20, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 31, 20, 30, 0, 0, time.UTC), sched.Next(exact))
}

func TestSchedulerRunsJobs(t *testing.T) {
	s := New(nil)
	job := &countingJob{name: "ticker"}
	require.NoError(t, s.Register(job, Every(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	assert.GreaterOrEqual(t, job.runs.Load(), int64(2))

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "ticker", status[0].Name)
	assert.GreaterOrEqual(t, status[0].RunCount, int64(2))
	assert.NoError(t, status[0].LastErr)
}

func TestSchedulerRecordsJobFailure(t *testing.T) {
	s := New(nil)
	job := &countingJob{name: "failing", err: errors.New("no database")}
	require.NoError(t, s.Register(job, Every(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	status := s.Status()
	require.Len(t, status, 1)
	assert.Error(t, status[0].LastErr)
}

func TestSchedulerSurvivesPanickingJob(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Register(panicJob{}, Every(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	status := s.Status()
	require.Len(t, status, 1)
	assert.ErrorContains(t, status[0].LastErr, "panicked")
}

func TestSchedulerRejectsDuplicateJob(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Register(&countingJob{name: "sweep"}, Every(time.Hour)))

	err := s.Register(&countingJob{name: "sweep"}, Every(time.Hour))
	assert.ErrorContains(t, err, "already registered")
}

func TestSchedulerRejectsRegisterWhileRunning(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Register(&countingJob{name: "first"}, Every(time.Hour)))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	err := s.Register(&countingJob{name: "second"}, Every(time.Hour))
	assert.ErrorContains(t, err, "while running")
}
