package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		Vault
		Device
		Import
		Snapshot
		Scan
		Index
		Tasks
		Global
	}

	Vault struct {
		Dir           string // Root of the note vault
		HighlightsDir string // Subdirectory receiving book documents
	}
	Device struct {
		MountPoint string // Where the e-reader is mounted when attached
	}
	Import struct {
		Workers          int  // Bounded worker pool size for batch imports
		AutoMergeEnabled bool // Allow the safe-by-policy automerge path
	}
	Snapshot struct {
		Dir           string
		BackupDir     string
		RetryMaxTries uint
		RetryInterval time.Duration
	}
	Scan struct {
		Enabled  bool
		Schedule string // Cron format: "0 * * * *" = hourly
	}
	Index struct {
		Path      string
		CacheSize int // LRU entries for candidate lookups
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("vault_dir", "")
	v.SetDefault("vault_highlights_dir", "highlights")
	v.SetDefault("device_mount_point", "")
	v.SetDefault("import_workers", 4)
	v.SetDefault("automerge_enabled", true)
	v.SetDefault("snapshot_dir", DefaultSnapshotDir)
	v.SetDefault("backup_dir", DefaultBackupDir)
	v.SetDefault("snapshot_retry_max_tries", 4)
	v.SetDefault("snapshot_retry_interval", "100ms")
	v.SetDefault("scan_enabled", false)
	v.SetDefault("scan_schedule", "0 * * * *") // Hourly at :00
	v.SetDefault("index_path", DefaultIndexPath)
	v.SetDefault("index_cache_size", 256)
	v.SetDefault("shutdown_timeout_in_seconds", 2)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "10m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		Vault: Vault{
			Dir:           v.GetString("VAULT_DIR"),
			HighlightsDir: v.GetString("VAULT_HIGHLIGHTS_DIR"),
		},
		Device: Device{
			MountPoint: v.GetString("DEVICE_MOUNT_POINT"),
		},
		Import: Import{
			Workers:          v.GetInt("IMPORT_WORKERS"),
			AutoMergeEnabled: v.GetBool("AUTOMERGE_ENABLED"),
		},
		Snapshot: Snapshot{
			Dir:           v.GetString("SNAPSHOT_DIR"),
			BackupDir:     v.GetString("BACKUP_DIR"),
			RetryMaxTries: v.GetUint("SNAPSHOT_RETRY_MAX_TRIES"),
			RetryInterval: v.GetDuration("SNAPSHOT_RETRY_INTERVAL"),
		},
		Scan: Scan{
			Enabled:  v.GetBool("SCAN_ENABLED"),
			Schedule: v.GetString("SCAN_SCHEDULE"),
		},
		Index: Index{
			Path:      v.GetString("INDEX_PATH"),
			CacheSize: v.GetInt("INDEX_CACHE_SIZE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
	}
}
