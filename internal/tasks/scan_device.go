package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/koimport/internal/entities"
)

// ScanDeviceTask runs one unattended import of the attached device. Scheduled
// runs use the auto-merge-only policy; anything needing a human decision is
// skipped and left for the next interactive import.
type ScanDeviceTask struct {
	MountPoint string `json:"mount_point"`
	Reason     string `json:"reason"` // "scheduled" or "manual"
}

// Config returns the queue configuration for device scan tasks.
func (t ScanDeviceTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "scan_device",
		MaxAttempts: 2,
		Backoff:     time.Minute,
		Timeout:     10 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// BatchRunner executes one unattended import batch against a mount point.
type BatchRunner func(ctx context.Context, mountPoint string) (entities.ImportSummary, error)

// ScanDeviceProcessor creates a processor function for ScanDeviceTask.
func ScanDeviceProcessor(run BatchRunner) backlite.QueueProcessor[ScanDeviceTask] {
	return func(ctx context.Context, task ScanDeviceTask) error {
		if run == nil {
			return fmt.Errorf("batch runner not configured")
		}

		summary, err := run(ctx, task.MountPoint)
		if err != nil {
			return fmt.Errorf("device scan (%s): %w", task.Reason, err)
		}

		log.Printf("[TASK] Device scan (%s): %d books, %d created, %d auto-merged, %d skipped, %d errors",
			task.Reason, summary.Total(), summary.Created, summary.AutoMerged, summary.Skipped, summary.Errors)
		return nil
	}
}

// NewScanDeviceQueue creates a backlite queue for device scan tasks.
func NewScanDeviceQueue(run BatchRunner) backlite.Queue {
	return backlite.NewQueue(ScanDeviceProcessor(run))
}
