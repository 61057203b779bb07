// Package entrypoint wires and runs the watch daemon: scheduled device
// scans through the task queue, plus a vault watcher keeping the candidate
// cache honest while documents are edited by hand.
package entrypoint

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mrlokans/koimport/internal/cli"
	"github.com/mrlokans/koimport/internal/config"
	"github.com/mrlokans/koimport/internal/device"
	"github.com/mrlokans/koimport/internal/entities"
	"github.com/mrlokans/koimport/internal/index"
	"github.com/mrlokans/koimport/internal/scheduler"
	"github.com/mrlokans/koimport/internal/tasks"
)

// Run starts the watch daemon and blocks until SIGINT/SIGTERM.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting koimport watch v%s", version)

	if err := checkVault(cfg.Vault.Dir); err != nil {
		log.Fatalf("%v", err)
	}

	engine, err := cli.NewEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize engine: %v", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Printf("Error closing index: %v", err)
		}
	}()

	// Unattended runs never prompt; the importer skips anything needing a
	// decision, so the prompter is never reached.
	imp := engine.NewImporter(unattendedPrompter{}, false)
	runBatch := func(ctx context.Context, mountPoint string) (entities.ImportSummary, error) {
		source := device.NewJSONSource(mountPoint)
		books, err := source.Books(ctx)
		if err != nil {
			return entities.ImportSummary{}, err
		}
		return imp.Run(ctx, books)
	}

	taskCfg := tasks.Config{
		Workers:           cfg.Tasks.Workers,
		MaxRetries:        cfg.Tasks.MaxRetries,
		RetryDelay:        cfg.Tasks.RetryDelay,
		TaskTimeout:       cfg.Tasks.TaskTimeout,
		ReleaseAfter:      cfg.Tasks.ReleaseAfter,
		CleanupInterval:   cfg.Tasks.CleanupInterval,
		RetentionDuration: cfg.Tasks.RetentionDuration,
	}
	taskClient, err := tasks.NewClient(cfg.Index.Path, taskCfg)
	if err != nil {
		log.Fatalf("Failed to initialize task queue: %v", err)
	}
	defer func() {
		if err := taskClient.Close(); err != nil {
			log.Printf("Error closing task client: %v", err)
		}
	}()

	taskClient.Register(tasks.NewScanDeviceQueue(runBatch))

	taskCtx, taskCancel := context.WithCancel(context.Background())
	go taskClient.Start(taskCtx)

	scanScheduler := scheduler.NewDeviceScanScheduler(taskClient, cfg.Scan, cfg.Device.MountPoint)
	if err := scanScheduler.Start(taskCtx); err != nil {
		log.Fatalf("Failed to start scan scheduler: %v", err)
	}

	watcher, err := index.NewWatcher(cfg.Vault.Dir, cfg.Vault.HighlightsDir, engine.Candidates)
	if err != nil {
		log.Fatalf("Failed to initialize vault watcher: %v", err)
	}
	go func() {
		if err := watcher.Run(taskCtx); err != nil && taskCtx.Err() == nil {
			log.Printf("Watcher: stopped: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second
	log.Printf("Shutting down, waiting up to %v for running tasks", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	scanScheduler.Stop()
	taskClient.Stop(ctx)
	taskCancel()

	log.Println("Watch exiting")
}

// checkVault verifies the vault directory exists and is writable, touching
// and removing a probe file.
func checkVault(dir string) error {
	if dir == "" {
		return fmt.Errorf("vault directory is not set (VAULT_DIR)")
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("vault directory %s does not exist", dir)
	}

	probe := filepath.Join(dir, ".koimport")
	if _, err := os.Create(probe); err != nil {
		return fmt.Errorf("vault directory %s is not writable", dir)
	}
	if err := os.Remove(probe); err != nil {
		return fmt.Errorf("could not remove probe file from %s: %w", dir, err)
	}
	return nil
}

// unattendedPrompter satisfies the prompt contract for runs where prompting
// is disabled. Reaching it means the auto-merge gate was bypassed.
type unattendedPrompter struct{}

func (unattendedPrompter) PromptDuplicate(ctx context.Context, match entities.DuplicateMatch, message string) (entities.PromptResponse, error) {
	return entities.PromptResponse{}, fmt.Errorf("no prompt surface in unattended mode")
}

func (unattendedPrompter) ConfirmTwoWay(ctx context.Context, match entities.DuplicateMatch) (bool, error) {
	return false, nil
}
