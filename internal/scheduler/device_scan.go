// Package scheduler runs periodic device rescans on a cron schedule,
// enqueueing unattended import tasks on the task queue.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/koimport/internal/config"
	"github.com/mrlokans/koimport/internal/tasks"
)

// DeviceScanScheduler manages periodic device rescans. Each tick enqueues one
// scan task; the task queue provides retries and overlap protection.
type DeviceScanScheduler struct {
	queue *tasks.Client
	cfg   config.Scan
	mount string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewDeviceScanScheduler creates a new scheduler instance
func NewDeviceScanScheduler(queue *tasks.Client, cfg config.Scan, mountPoint string) *DeviceScanScheduler {
	return &DeviceScanScheduler{
		queue: queue,
		cfg:   cfg,
		mount: mountPoint,
		cron:  cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if scanning is enabled
func (s *DeviceScanScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.Enabled {
		log.Printf("Scheduler: device scan disabled")
		return nil
	}

	if s.mount == "" {
		log.Printf("Scheduler: device mount point not configured, skipping")
		return nil
	}

	if err := ValidateCronSchedule(s.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.cfg.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.enqueueScan("scheduled")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule scan job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := GetNextRunTime(s.cfg.Schedule)
	log.Printf("Scheduler: device scan started with schedule '%s' (%s). Next run: %v",
		s.cfg.Schedule, GetCronDescription(s.cfg.Schedule), nextRun)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler
func (s *DeviceScanScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	if s.cancelFunc != nil {
		// Release the watchdog goroutine started in Start.
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("Scheduler: device scan stopped")
}

// RunNow enqueues an immediate scan
func (s *DeviceScanScheduler) RunNow() {
	s.enqueueScan("manual")
}

// IsRunning returns whether the scheduler is active
func (s *DeviceScanScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextScanTime returns when the next scan will occur
func (s *DeviceScanScheduler) GetNextScanTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *DeviceScanScheduler) enqueueScan(reason string) {
	task := tasks.ScanDeviceTask{MountPoint: s.mount, Reason: reason}
	if _, err := s.queue.Add(task).Save(); err != nil {
		log.Printf("Scheduler: failed to enqueue device scan: %v", err)
		return
	}
	log.Printf("Scheduler: device scan enqueued (%s)", reason)
}
