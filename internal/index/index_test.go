package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestUpsertAndFind(t *testing.T) {
	idx := newTestIndex(t)

	id, err := idx.UpsertBook("le guin|the dispossessed", "The Dispossessed", []string{"Le Guin"}, "highlights/The Dispossessed.md")
	require.NoError(t, err)
	assert.NotZero(t, id)

	paths, err := idx.FindExistingBookFiles("le guin|the dispossessed")
	require.NoError(t, err)
	assert.Equal(t, []string{"highlights/The Dispossessed.md"}, paths)
}

func TestUpsertSamePathUpdates(t *testing.T) {
	idx := newTestIndex(t)
	path := "highlights/Book.md"

	first, err := idx.UpsertBook("old|key", "Old Title", nil, path)
	require.NoError(t, err)
	second, err := idx.UpsertBook("new|key", "New Title", []string{"Author"}, path)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same path must update, not duplicate")

	paths, err := idx.FindExistingBookFiles("old|key")
	require.NoError(t, err)
	assert.Empty(t, paths)

	paths, err = idx.FindExistingBookFiles("new|key")
	require.NoError(t, err)
	assert.Equal(t, []string{path}, paths)
}

func TestFindMultipleCandidates(t *testing.T) {
	idx := newTestIndex(t)
	key := "author|title"

	_, err := idx.UpsertBook(key, "Title", []string{"Author"}, "highlights/Title.md")
	require.NoError(t, err)
	_, err = idx.UpsertBook(key, "Title", []string{"Author"}, "highlights/Title (1).md")
	require.NoError(t, err)

	paths, err := idx.FindExistingBookFiles(key)
	require.NoError(t, err)
	assert.Equal(t, []string{"highlights/Title (1).md", "highlights/Title.md"}, paths)
}

func TestKeyForPath(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.UpsertBook("some|key", "Title", nil, "highlights/Title.md")
	require.NoError(t, err)

	key, err := idx.KeyForPath("highlights/Title.md")
	require.NoError(t, err)
	assert.Equal(t, "some|key", key)

	key, err = idx.KeyForPath("highlights/Unknown.md")
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestRemoveByPath(t *testing.T) {
	idx := newTestIndex(t)
	key := "some|key"

	_, err := idx.UpsertBook(key, "Title", nil, "highlights/Title.md")
	require.NoError(t, err)

	require.NoError(t, idx.RemoveByPath("highlights/Title.md"))
	paths, err := idx.FindExistingBookFiles(key)
	require.NoError(t, err)
	assert.Empty(t, paths)

	// Removing an unknown path is a no-op.
	require.NoError(t, idx.RemoveByPath("highlights/Unknown.md"))
}

func TestWithWriteRollsBackOnError(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.UpsertBook("some|key", "Title", nil, "highlights/Title.md")
	require.NoError(t, err)

	err = idx.WithWrite("failing_write", func(tx *gorm.DB) error {
		if err := tx.Where("path = ?", "highlights/Title.md").Delete(&Book{}).Error; err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	paths, err := idx.FindExistingBookFiles("some|key")
	require.NoError(t, err)
	assert.Len(t, paths, 1, "failed write must roll back its own changes")
}
