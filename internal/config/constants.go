package config

// Default paths for the vault layout and supporting databases
const (
	// DefaultIndexPath is the default path for the persisted book index
	DefaultIndexPath = "./koimport-index.db"

	// DefaultSnapshotDir is the plugin-private directory for merge snapshots
	DefaultSnapshotDir = "./.koimport/snapshots"

	// DefaultBackupDir holds timestamped disaster-recovery copies
	DefaultBackupDir = "./.koimport/backups"
)
