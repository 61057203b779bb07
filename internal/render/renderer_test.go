package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/koimport/internal/entities"
	"github.com/mrlokans/koimport/internal/vault"
)

func sampleBook() entities.BookMetadata {
	return entities.BookMetadata{
		Props: entities.DocProps{
			Title:   "The Dispossessed",
			Authors: []string{"Ursula K. Le Guin"},
		},
		Annotations: []entities.Annotation{
			{
				Chapter:  "Chapter Two",
				Datetime: "2024-01-16 08:00:00",
				PageNo:   40,
				Pos0:     "/body/div[7]",
				Text:     "second passage",
			},
			{
				Chapter:  "Chapter One",
				Datetime: "2024-01-15 10:03:12",
				PageNo:   12,
				Pos0:     "/body/div[2]",
				Text:     "first passage",
				Note:     "a thought",
			},
		},
		Stats: entities.Statistics{
			Pages:    387,
			Progress: 0.75,
			Status:   "reading",
		},
	}
}

func TestGenerate(t *testing.T) {
	r := NewRenderer()

	out, err := r.Generate(sampleBook())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "---\n"))
	assert.Contains(t, out, "title: The Dispossessed")
	assert.Contains(t, out, "# The Dispossessed")
	assert.Contains(t, out, "*by Ursula K. Le Guin*")
}

func TestGenerateRequiresTitle(t *testing.T) {
	r := NewRenderer()
	_, err := r.Generate(entities.BookMetadata{})
	assert.Error(t, err)
}

func TestGenerateDeterministic(t *testing.T) {
	r := NewRenderer()
	meta := sampleBook()

	first, err := r.Generate(meta)
	require.NoError(t, err)
	second, err := r.Generate(meta)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBodyOrdersByPageAndGroupsByChapter(t *testing.T) {
	r := NewRenderer()

	body := r.Body(sampleBook())

	// Page 12 must come before page 40 regardless of input order.
	first := strings.Index(body, "first passage")
	second := strings.Index(body, "second passage")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)

	assert.Contains(t, body, "## Chapter One")
	assert.Contains(t, body, "## Chapter Two")

	// Rendered annotations must parse back with identity intact.
	parsed := vault.ParseAnnotations(body)
	require.Len(t, parsed, 2)
	assert.Equal(t, 12, parsed[0].PageNo)
	assert.Equal(t, "a thought", parsed[0].Note)
}

func TestFrontmatterCountsAndTags(t *testing.T) {
	r := NewRenderer()

	fm := r.Frontmatter(sampleBook())

	highlights, ok := fm.Get("highlights_count")
	require.True(t, ok)
	assert.Equal(t, 2.0, highlights.Num)

	notes, ok := fm.Get("notes_count")
	require.True(t, ok)
	assert.Equal(t, 1.0, notes.Num)

	tags, ok := fm.Get("tags")
	require.True(t, ok)
	assert.Equal(t, []string{"highlights", "books", "ursula-k.-le-guin"}, tags.List)

	pages, ok := fm.Get("pages")
	require.True(t, ok)
	assert.Equal(t, 387.0, pages.Num)

	assert.False(t, fm.Has("series"), "unset optional fields are omitted")
}
