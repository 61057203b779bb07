// Package snapshot persists the exact content written at the end of the
// last successful import, one whole-file copy per document. Snapshots are
// the "base" side of three-way merges; a missing snapshot is a recognized
// state, not an error.
package snapshot

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Store struct {
	// Dir holds content-addressed snapshot copies; BackupDir holds
	// timestamped disaster-recovery copies with independent retention.
	Dir       string
	BackupDir string

	// Retry policy for transient I/O (locked or briefly missing files).
	MaxTries uint
	Interval time.Duration
}

func NewStore(dir, backupDir string) *Store {
	return &Store{
		Dir:       dir,
		BackupDir: backupDir,
		MaxTries:  4,
		Interval:  100 * time.Millisecond,
	}
}

// keyFor derives the content-addressed snapshot filename from a document's
// stable vault-relative path. A document is only ever merged against its own
// snapshot because the key is a pure function of its path.
func keyFor(docPath string) string {
	sum := sha1.Sum([]byte(docPath))
	return hex.EncodeToString(sum[:]) + ".md"
}

func (s *Store) snapshotPath(docPath string) string {
	return filepath.Join(s.Dir, keyFor(docPath))
}

func (s *Store) retryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.Interval
	b.RandomizationFactor = 0.3
	return backoff.WithMaxRetries(b, uint64(s.MaxTries))
}

// Get returns the snapshot content for a document, or ok=false when no
// snapshot exists. Transient read failures are retried; persistent failure
// also reports ok=false since callers must treat an unreadable snapshot as
// "no safe base available", never abort the batch over it.
func (s *Store) Get(docPath string) (content string, ok bool) {
	var data []byte
	err := backoff.Retry(func() error {
		var readErr error
		data, readErr = os.ReadFile(s.snapshotPath(docPath))
		if errors.Is(readErr, fs.ErrNotExist) {
			return backoff.Permanent(readErr)
		}
		return readErr
	}, s.retryPolicy())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Snapshot: read failed for %s: %v", docPath, err)
		}
		return "", false
	}
	return string(data), true
}

// Create stores content as the snapshot for a document, replacing any
// previous copy wholesale.
func (s *Store) Create(docPath, content string) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	err := backoff.Retry(func() error {
		return os.WriteFile(s.snapshotPath(docPath), []byte(content), 0644)
	}, s.retryPolicy())
	if err != nil {
		return fmt.Errorf("failed to write snapshot for %s: %w", docPath, err)
	}
	return nil
}

// Exists reports whether a snapshot is present for a document.
func (s *Store) Exists(docPath string) bool {
	_, err := os.Stat(s.snapshotPath(docPath))
	return err == nil
}

// Delete removes a document's snapshot. Orphaned snapshots of documents
// deleted outside an import are not collected automatically; this is only
// called when the engine itself removes a document.
func (s *Store) Delete(docPath string) error {
	err := os.Remove(s.snapshotPath(docPath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// CreateBackup stores a timestamped, human-readable copy of a document for
// disaster recovery. Backups are never consulted by merges.
func (s *Store) CreateBackup(docPath, content string) error {
	if err := os.MkdirAll(s.BackupDir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	stamp := time.Now().Format("2006-01-02T15-04-05")
	base := filepath.Base(docPath)
	name := fmt.Sprintf("%s.%s.bak", base, stamp)
	if err := os.WriteFile(filepath.Join(s.BackupDir, name), []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write backup for %s: %w", docPath, err)
	}
	return nil
}
