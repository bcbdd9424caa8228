package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// JobFunc is the work a job performs. The context is cancelled when the
// service stops.
type JobFunc func(ctx context.Context) error

// Job is a scheduled unit of work.
type Job struct {
	ID       string
	Name     string
	Schedule Schedule

	run JobFunc

	// Runtime state, guarded by the service mutex.
	nextRunAt         time.Time
	lastRunAt         time.Time
	lastStatus        string
	lastError         string
	consecutiveErrors int
}

// JobStatus is a point-in-time view of a job's state.
type JobStatus struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	NextRunAt         time.Time `json:"next_run_at"`
	LastRunAt         time.Time `json:"last_run_at,omitempty"`
	LastStatus        string    `json:"last_status,omitempty"`
	LastError         string    `json:"last_error,omitempty"`
	ConsecutiveErrors int       `json:"consecutive_errors,omitempty"`
}

// Service schedules and executes jobs. One-shot jobs are removed after
// they fire; interval and cron jobs re-arm themselves.
type Service struct {
	jobs    map[string]*Job
	timers  map[string]*time.Timer
	mu      sync.Mutex
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates an empty scheduler.
func NewService() *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		jobs:   make(map[string]*Job),
		timers: make(map[string]*time.Timer),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers and arms a job. The schedule is validated up front.
func (s *Service) AddJob(name string, schedule Schedule, fn JobFunc) (*Job, error) {
	if name == "" {
		return nil, fmt.Errorf("job name is required")
	}
	if fn == nil {
		return nil, fmt.Errorf("job function is required")
	}

	nextRunAt, err := NextRun(schedule, time.Now())
	if err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, fmt.Errorf("service is stopped")
	}

	job := &Job{
		ID:        uuid.New().String(),
		Name:      name,
		Schedule:  schedule,
		run:       fn,
		nextRunAt: nextRunAt,
	}
	s.jobs[job.ID] = job
	s.armLocked(job)

	log.Debug().
		Str("jobId", job.ID).
		Str("name", name).
		Time("nextRunAt", nextRunAt).
		Msg("Cron job added")

	return job, nil
}

// RemoveJob cancels and removes a job.
func (s *Service) RemoveJob(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[jobID]; ok {
		timer.Stop()
		delete(s.timers, jobID)
	}
	if _, ok := s.jobs[jobID]; !ok {
		return false
	}
	delete(s.jobs, jobID)
	return true
}

// Jobs returns status snapshots for all registered jobs.
func (s *Service) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, JobStatus{
			ID:                job.ID,
			Name:              job.Name,
			NextRunAt:         job.nextRunAt,
			LastRunAt:         job.lastRunAt,
			LastStatus:        job.lastStatus,
			LastError:         job.lastError,
			ConsecutiveErrors: job.consecutiveErrors,
		})
	}
	return out
}

// Stop cancels all timers and waits for running jobs to return.
func (s *Service) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// armLocked schedules the job's next firing. Caller holds s.mu.
func (s *Service) armLocked(job *Job) {
	delay := time.Until(job.nextRunAt)
	if delay < 0 {
		delay = 0
	}
	s.timers[job.ID] = time.AfterFunc(delay, func() {
		s.fire(job.ID)
	})
}

func (s *Service) fire(jobID string) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok || s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.timers, jobID)
	s.mu.Unlock()

	s.wg.Add(1)
	defer s.wg.Done()

	startTime := time.Now()
	err := job.run(s.ctx)
	duration := time.Since(startTime)

	s.mu.Lock()
	defer s.mu.Unlock()

	job.lastRunAt = startTime
	if err != nil {
		job.lastStatus = "error"
		job.lastError = err.Error()
		job.consecutiveErrors++
		log.Error().
			Err(err).
			Str("name", job.Name).
			Dur("duration", duration).
			Int("consecutiveErrors", job.consecutiveErrors).
			Msg("Cron job failed")
	} else {
		job.lastStatus = "ok"
		job.lastError = ""
		job.consecutiveErrors = 0
		log.Debug().
			Str("name", job.Name).
			Dur("duration", duration).
			Msg("Cron job completed")
	}

	// One-shot jobs are done; recurring jobs re-arm.
	if job.Schedule.Kind == ScheduleKindAt {
		delete(s.jobs, jobID)
		return
	}
	if s.stopped {
		return
	}
	nextRunAt, nextErr := NextRun(job.Schedule, time.Now())
	if nextErr != nil {
		log.Error().Err(nextErr).Str("name", job.Name).Msg("Failed to reschedule cron job")
		delete(s.jobs, jobID)
		return
	}
	job.nextRunAt = nextRunAt
	s.armLocked(job)
}
