package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// JobStatus is the outcome of the most recent run of a job.
type JobStatus struct {
	Runs     int
	Skipped  int
	LastRun  time.Time
	Duration time.Duration
	LastErr  error
}

// Scheduler runs jobs on cron schedules with a seconds field. A job is never
// run twice at once: a tick or RunNow arriving while it runs is skipped.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
	now  func() time.Time

	mu      sync.Mutex
	running map[string]bool
	status  map[string]JobStatus
}

func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		log:     log.With().Str("component", "scheduler").Logger(),
		now:     time.Now,
		running: make(map[string]bool),
		status:  make(map[string]JobStatus),
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

// AddJob registers job under schedule, e.g. "0 0 6 * * *" for 06:00 daily.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	if _, err := s.cron.AddFunc(schedule, func() { _ = s.run(job) }); err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("job registered")
	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("running job immediately")
	return s.run(job)
}

// Status reports the last run of the named job.
func (s *Scheduler) Status(name string) (JobStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[name]
	return st, ok
}

// ErrJobRunning is returned by RunNow when the job is already in progress.
var ErrJobRunning = errors.New("job already running")

func (s *Scheduler) run(job Job) error {
	name := job.Name()

	s.mu.Lock()
	if s.running[name] {
		st := s.status[name]
		st.Skipped++
		s.status[name] = st
		s.mu.Unlock()
		s.log.Warn().Str("job", name).Msg("previous run still in progress, skipping")
		return ErrJobRunning
	}
	s.running[name] = true
	s.mu.Unlock()

	start := s.now()
	s.log.Debug().Str("job", name).Msg("running job")
	err := job.Run()
	elapsed := s.now().Sub(start)

	s.mu.Lock()
	st := s.status[name]
	st.Runs++
	st.LastRun = start
	st.Duration = elapsed
	st.LastErr = err
	s.status[name] = st
	delete(s.running, name)
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Str("job", name).Dur("took", elapsed).Msg("job failed")
		return err
	}
	s.log.Debug().Str("job", name).Dur("took", elapsed).Msg("job completed")
	return nil
}
