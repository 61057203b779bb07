// Package index persists the book index that maps normalized
// (authors, title) keys to vault documents, and layers an in-process cache
// with per-key invalidation on top.
package index

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Book is one indexed book document.
type Book struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"index;size:512" json:"key"` // normalized authors|title
	Title     string    `gorm:"size:512" json:"title"`
	Authors   string    `gorm:"size:512" json:"authors"` // comma-joined
	Path      string    `gorm:"uniqueIndex;size:1024" json:"path"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// Index is the persisted book index. All writes are serialized through a
// single mutex and run inside named savepoint transactions so a failed
// multi-step update rolls back without corrupting concurrent readers.
type Index struct {
	db      *gorm.DB
	writeMu sync.Mutex
}

func NewIndex(dbPath string) (*Index, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to index database: %w", err)
	}

	if err := db.AutoMigrate(&Book{}); err != nil {
		return nil, fmt.Errorf("failed to migrate index database: %w", err)
	}

	log.Printf("Index: initialized at %s", dbPath)
	return &Index{db: db}, nil
}

func (i *Index) Close() error {
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithWrite runs fn inside the writer lock and a transaction carrying a
// named savepoint. On error everything past the savepoint is rolled back
// atomically. The savepoint name identifies the logical write in SQLite's
// journal for debugging.
func (i *Index) WithWrite(name string, fn func(tx *gorm.DB) error) error {
	i.writeMu.Lock()
	defer i.writeMu.Unlock()

	return i.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.SavePoint(name).Error; err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			if rbErr := tx.RollbackTo(name).Error; rbErr != nil {
				return fmt.Errorf("%w (savepoint rollback failed: %v)", err, rbErr)
			}
			return err
		}
		return nil
	})
}

// UpsertBook records or updates the index entry for a document. Matching is
// by path; key, title and authors are refreshed on every write.
func (i *Index) UpsertBook(key, title string, authors []string, path string) (uint, error) {
	joined := strings.Join(authors, ", ")
	var id uint
	err := i.WithWrite("upsert_book", func(tx *gorm.DB) error {
		var existing Book
		result := tx.Where("path = ?", path).First(&existing)
		if result.Error == nil {
			existing.Key = key
			existing.Title = title
			existing.Authors = joined
			id = existing.ID
			return tx.Save(&existing).Error
		}
		if result.Error != gorm.ErrRecordNotFound {
			return result.Error
		}
		book := Book{Key: key, Title: title, Authors: joined, Path: path}
		if err := tx.Create(&book).Error; err != nil {
			return err
		}
		id = book.ID
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upsert book %q: %w", title, err)
	}
	return id, nil
}

// FindExistingBookFiles returns the paths of all indexed documents for a
// lookup key.
func (i *Index) FindExistingBookFiles(key string) ([]string, error) {
	var books []Book
	if err := i.db.Where("key = ?", key).Order("path ASC").Find(&books).Error; err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(books))
	for _, b := range books {
		paths = append(paths, b.Path)
	}
	return paths, nil
}

// KeyForPath returns the lookup key currently recorded for a document path,
// or "" when the path is not indexed.
func (i *Index) KeyForPath(path string) (string, error) {
	var book Book
	err := i.db.Where("path = ?", path).First(&book).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return book.Key, nil
}

// RemoveByPath drops a document from the index after an external deletion
// or rename. Renamed documents are re-indexed under their new path on the
// next write to them.
func (i *Index) RemoveByPath(path string) error {
	return i.WithWrite("remove_book", func(tx *gorm.DB) error {
		return tx.Where("path = ?", path).Delete(&Book{}).Error
	})
}
