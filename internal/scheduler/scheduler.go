package scheduler

import (
	"fmt"
	"log"
	"sync"

	"classifieds-portal/internal/config"
	"classifieds-portal/internal/purge"

	"github.com/robfig/cron/v3"
)

// Scheduler handles the scheduled purge run
type Scheduler struct {
	cron      *cron.Cron
	runner    *purge.Runner
	config    *config.Config
	isRunning bool

	mu         sync.Mutex
	lastResult *purge.Result
}

// NewScheduler creates a new scheduler
func NewScheduler(runner *purge.Runner, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		config: cfg,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	if !s.config.Purge.DailyRunEnabled {
		log.Println("Scheduler: Daily purge run is disabled in configuration")
		return nil
	}

	// Parse daily run time (HH:MM format in config)
	cronSpec := s.parseDailyRunTime(s.config.Purge.DailyRunTime)

	// Add daily purge job
	_, err := s.cron.AddFunc(cronSpec, func() {
		log.Println("Scheduler: Starting daily purge job...")
		if err := s.runPurge(); err != nil {
			log.Printf("Scheduler: Daily purge failed: %v", err)
		} else {
			log.Println("Scheduler: Daily purge completed successfully")
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Scheduler: Started with daily run at %s (cron: %s)", s.config.Purge.DailyRunTime, cronSpec)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if s.isRunning {
		s.cron.Stop()
		s.isRunning = false
		log.Println("Scheduler: Stopped")
	}
}

// runPurge executes the purge routine and records the result
func (s *Scheduler) runPurge() error {
	result, err := s.runner.Run()
	if err != nil {
		if err == purge.ErrLeaseHeld {
			log.Println("Scheduler: Purge already running elsewhere, skipping this run")
			return nil
		}
		return err
	}

	s.mu.Lock()
	s.lastResult = result
	s.mu.Unlock()

	log.Printf("Scheduler: Purge completed. Evaluated: %d, Archived: %d, Deleted: %d, Reminded: %d, Unfeatured: %d, Errors: %d",
		result.Evaluated, result.Archived, result.Deleted, result.Reminded, result.Unfeatured, result.Errors)

	return nil
}

// RunNow immediately executes the purge job (for manual trigger)
func (s *Scheduler) RunNow() error {
	log.Println("Scheduler: Manual trigger - starting purge job...")
	return s.runPurge()
}

// LastResult returns the result of the most recent purge run, or nil
// if no run has completed yet
func (s *Scheduler) LastResult() *purge.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

// parseDailyRunTime converts HH:MM format to cron specification
// Example: "03:00" -> "0 3 * * *" (run at 3:00 AM every day)
func (s *Scheduler) parseDailyRunTime(timeStr string) string {
	// timeStr is expected to be in "HH:MM" format
	// Convert to cron format: "minute hour * * *"
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	// Default to 3:00 AM if parsing fails
	log.Printf("Scheduler: Failed to parse time '%s', using default 03:00", timeStr)
	return "0 3 * * *"
}
