// Package device loads annotation exports from a mounted e-reader. The
// device-side exporter writes one JSON record per book into an exports
// directory; this package only loads those records, it does not parse the
// reader's native serialization.
package device

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrlokans/koimport/internal/entities"
)

const exportsDir = "koimport-exports"

// JSONSource reads book records from <mount>/koimport-exports/*.json.
type JSONSource struct {
	MountPoint string
}

func NewJSONSource(mountPoint string) *JSONSource {
	return &JSONSource{MountPoint: mountPoint}
}

// Books loads every export record found on the device. A single malformed
// record is logged and skipped; an unreadable or missing exports directory is
// an error since it usually means the device is not attached.
func (s *JSONSource) Books(ctx context.Context) ([]entities.BookMetadata, error) {
	dir := filepath.Join(s.MountPoint, exportsDir)
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no exports directory at %s, is the device attached?", dir)
		}
		return nil, fmt.Errorf("failed to read exports directory: %w", err)
	}

	var books []entities.BookMetadata
	for _, entry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		book, err := s.loadRecord(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Printf("Device: skipping %s: %v", entry.Name(), err)
			continue
		}
		books = append(books, book)
	}

	log.Printf("Device: found %d book exports at %s", len(books), dir)
	return books, nil
}

func (s *JSONSource) loadRecord(path string) (entities.BookMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entities.BookMetadata{}, fmt.Errorf("unreadable export: %w", err)
	}

	var book entities.BookMetadata
	if err := json.Unmarshal(data, &book); err != nil {
		return entities.BookMetadata{}, fmt.Errorf("malformed export: %w", err)
	}
	if book.Props.Title == "" {
		return entities.BookMetadata{}, fmt.Errorf("export has no title")
	}
	return book, nil
}
