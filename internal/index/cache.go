package index

import (
	"fmt"
	"log"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mrlokans/koimport/internal/entities"
	"github.com/mrlokans/koimport/internal/vault"
)

// CandidateIndex answers "which existing documents could this book be?"
// lookups. Storage is the persisted Index; a bounded LRU keeps recently used
// keys hot during large batch imports. Invalidation removes only the
// affected key so one external edit does not defeat the whole cache.
type CandidateIndex struct {
	index *Index
	cache *lru.Cache[string, []entities.DocumentRef]
}

func NewCandidateIndex(idx *Index, cacheSize int) (*CandidateIndex, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, []entities.DocumentRef](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidate cache: %w", err)
	}
	return &CandidateIndex{index: idx, cache: cache}, nil
}

// Key exposes the normalized lookup key used for both cache and storage.
func (c *CandidateIndex) Key(authors []string, title string) string {
	return vault.LookupKey(authors, title)
}

// Find returns all existing documents matching the normalized
// (authors, title) key, cached.
func (c *CandidateIndex) Find(authors []string, title string) ([]entities.DocumentRef, error) {
	key := c.Key(authors, title)
	if refs, ok := c.cache.Get(key); ok {
		return refs, nil
	}

	paths, err := c.index.FindExistingBookFiles(key)
	if err != nil {
		return nil, fmt.Errorf("candidate lookup failed for %q: %w", key, err)
	}
	refs := make([]entities.DocumentRef, 0, len(paths))
	for _, p := range paths {
		refs = append(refs, entities.DocumentRef{Path: p})
	}
	c.cache.Add(key, refs)
	return refs, nil
}

// Invalidate drops one key's cache entry.
func (c *CandidateIndex) Invalidate(key string) {
	if c.cache.Remove(key) {
		log.Printf("Index: invalidated cached lookups for %q", key)
	}
}

// InvalidatePath drops the cache entry for whatever key the given document
// is indexed under. Used when a watched document changes, is renamed or
// deleted.
func (c *CandidateIndex) InvalidatePath(path string) {
	key, err := c.index.KeyForPath(path)
	if err != nil {
		log.Printf("Index: key lookup failed for %s: %v", path, err)
		return
	}
	if key != "" {
		c.Invalidate(key)
	}
}

// ForgetPath drops a document from both the persisted index and the cache.
// Used when a watched document disappears; without the row removal,
// candidate lookups would keep returning the dead path until an import
// stumbled over it.
func (c *CandidateIndex) ForgetPath(path string) error {
	key, err := c.index.KeyForPath(path)
	if err != nil {
		return fmt.Errorf("key lookup failed for %s: %w", path, err)
	}
	if key == "" {
		return nil
	}
	if err := c.index.RemoveByPath(path); err != nil {
		return fmt.Errorf("failed to drop %s from index: %w", path, err)
	}
	c.Invalidate(key)
	return nil
}

// RecordWrite upserts a document into the persisted index and refreshes the
// key's cache entry.
func (c *CandidateIndex) RecordWrite(title string, authors []string, path string) (uint, error) {
	key := c.Key(authors, title)
	id, err := c.index.UpsertBook(key, title, authors, path)
	if err != nil {
		return 0, err
	}
	c.Invalidate(key)
	return id, nil
}
