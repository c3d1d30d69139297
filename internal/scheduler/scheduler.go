package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scenario-advisor/internal/clock"
	"scenario-advisor/internal/logger"
)

// TimeOfDay is a daily wall-clock slot.
type TimeOfDay struct {
	Hour, Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Next returns the first occurrence of t strictly after now, in now's location.
func (t TimeOfDay) Next(now time.Time) time.Time {
	y, m, d := now.Date()
	candidate := time.Date(y, m, d, t.Hour, t.Minute, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = time.Date(y, m, d+1, t.Hour, t.Minute, 0, 0, now.Location())
	}
	return candidate
}

// Callback is the work bound to a job.
type Callback func(ctx context.Context) error

// Job is one daily recurring check for a scenario.
type Job struct {
	ScenarioID string
	At         TimeOfDay
	NextRunAt  time.Time
	callback   Callback
}

// Scheduler is a single recurring-job runner. It polls the job list and
// runs every job whose NextRunAt has elapsed.
type Scheduler struct {
	clock        clock.Clock
	pollInterval time.Duration
	jobTimeout   time.Duration

	mu   sync.Mutex
	jobs []*Job

	// serializes passes so a job is never claimed by two overlapping passes
	passMu sync.Mutex
}

// New creates a scheduler. Zero durations fall back to 1s polling and a 10s job timeout.
func New(clk clock.Clock, pollInterval, jobTimeout time.Duration) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Second
	}
	return &Scheduler{
		clock:        clk,
		pollInterval: pollInterval,
		jobTimeout:   jobTimeout,
	}
}

// AddDaily registers cb to run every day at at, first at the next occurrence after now.
func (s *Scheduler) AddDaily(scenarioID string, at TimeOfDay, cb Callback) Job {
	job := &Job{
		ScenarioID: scenarioID,
		At:         at,
		NextRunAt:  at.Next(s.clock.Now()),
		callback:   cb,
	}

	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()

	return *job
}

// Jobs returns a snapshot of registered jobs.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, len(s.jobs))
	for i, j := range s.jobs {
		out[i] = *j
	}
	return out
}

// RunPending invokes every due job once and returns how many ran.
// Due jobs are claimed (NextRunAt advanced to the next day) under the lock and
// run after it is released, so callbacks may add jobs without deadlocking and
// a job added during the pass waits for a later pass.
func (s *Scheduler) RunPending(ctx context.Context) int {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	now := s.clock.Now()

	s.mu.Lock()
	due := make([]Job, 0)
	for _, j := range s.jobs {
		if j.NextRunAt.After(now) {
			continue
		}
		due = append(due, *j)
		j.NextRunAt = j.At.Next(now)
	}
	s.mu.Unlock()

	for _, j := range due {
		s.runJob(ctx, j)
	}
	return len(due)
}

func (s *Scheduler) runJob(ctx context.Context, j Job) {
	ctx = logger.WithFields(ctx, "scenario_id", j.ScenarioID)
	jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "Scheduled job panicked", "panic", fmt.Sprint(r))
		}
	}()

	if err := j.callback(jobCtx); err != nil {
		logger.Warn(ctx, "Scheduled job failed", "error", err)
		return
	}
	logger.Debug(ctx, "Scheduled job completed")
}

// Run polls until ctx is cancelled. It is meant to run on its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	logger.Info(ctx, "Scheduler started", "poll_interval", s.pollInterval.String(), "job_timeout", s.jobTimeout.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Scheduler stopped")
			return
		case <-ticker.C:
			s.RunPending(ctx)
		}
	}
}
