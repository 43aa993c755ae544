package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

const DefaultShutdownTimeout = 2 * time.Minute

// RunFunc is one pipeline run
type RunFunc func(ctx context.Context) error

// Status is a snapshot of the scheduler state
type Status struct {
	Schedule     string
	Running      bool
	IsProcessing bool
	LastRun      *time.Time
	LastError    string
	NextRun      time.Time
	Skipped      int
}

// Service runs a RunFunc on a cron schedule. Runs never overlap: a tick that
// fires while a run is in progress is skipped.
type Service struct {
	schedule        string
	run             RunFunc
	cron            *cron.Cron
	logger          arbor.ILogger
	shutdownTimeout time.Duration
	wg              sync.WaitGroup // Tracks runs started outside cron

	mu           sync.Mutex // Protects the fields below
	entryID      cron.EntryID
	running      bool
	isProcessing bool
	lastRun      *time.Time
	lastError    string
	skipped      int
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewService creates a scheduler for a standard 5-field cron expression
func NewService(schedule string, run RunFunc, logger arbor.ILogger) *Service {
	return &Service{
		schedule:        schedule,
		run:             run,
		cron:            cron.New(),
		logger:          logger,
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// Start registers the schedule and starts the cron loop.
// With runOnStart a first run is triggered immediately in the background.
func (s *Service) Start(runOnStart bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, s.runScheduledTask)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", s.schedule).
		Str("next_run", s.cron.Entry(entryID).Next.Format(time.RFC3339)).
		Msg("Scheduler started")

	if runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runScheduledTask()
		}()
	}

	return nil
}

// Stop halts the cron loop and waits for an in-flight run to finish.
// If the run outlives the shutdown timeout its context is cancelled.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cron.Remove(s.entryID)
	cancel := s.cancel
	s.mu.Unlock()

	cronDone := s.cron.Stop().Done()
	done := make(chan struct{})
	go func() {
		<-cronDone
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.shutdownTimeout):
		s.logger.Warn().Dur("timeout", s.shutdownTimeout).Msg("Run did not finish before shutdown timeout, cancelling")
		cancel()
		<-done
	}
	cancel()

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// TriggerNow runs immediately on the calling goroutine.
// Returns false when a run was already in progress and this one was skipped.
func (s *Service) TriggerNow() bool {
	return s.execute()
}

// IsRunning reports whether the cron loop is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns a snapshot of the scheduler state
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Schedule:     s.schedule,
		Running:      s.running,
		IsProcessing: s.isProcessing,
		LastError:    s.lastError,
		Skipped:      s.skipped,
	}
	if s.lastRun != nil {
		lastRun := *s.lastRun
		status.LastRun = &lastRun
	}
	if s.running {
		status.NextRun = s.cron.Entry(s.entryID).Next
	}
	return status
}

// runScheduledTask is the cron callback
func (s *Service) runScheduledTask() {
	s.execute()
}

func (s *Service) execute() (ran bool) {
	s.mu.Lock()
	if s.isProcessing {
		s.skipped++
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous run still in progress, skipping this cycle")
		return false
	}
	s.isProcessing = true
	ctx := s.ctx
	s.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	var runErr error

	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("panic: %v", r)
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in scheduled run")
		}

		finished := time.Now()
		s.mu.Lock()
		s.isProcessing = false
		s.lastRun = &finished
		s.lastError = ""
		if runErr != nil {
			s.lastError = runErr.Error()
		}
		s.mu.Unlock()
		ran = true
	}()

	s.logger.Info().Msg("Scheduled run started")

	runErr = s.run(ctx)
	if runErr != nil {
		s.logger.Error().
			Err(runErr).
			Dur("duration", time.Since(start)).
			Msg("Scheduled run failed")
	} else {
		s.logger.Info().
			Dur("duration", time.Since(start)).
			Msg("Scheduled run completed")
	}

	return true
}
