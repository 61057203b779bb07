package vault

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "removes invalid characters",
			input:    `file<>:"/\|?*name`,
			expected: "filename",
		},
		{
			name:     "replaces newlines and tabs with spaces",
			input:    "file\nname\twith\rspaces",
			expected: "file name with spaces",
		},
		{
			name:     "collapses multiple spaces",
			input:    "file   name  with    spaces",
			expected: "file name with spaces",
		},
		{
			name:     "removes hashtags",
			input:    "#hashtag #title",
			expected: "hashtag title",
		},
		{
			name:     "replaces square brackets",
			input:    "title [subtitle]",
			expected: "title (subtitle)",
		},
		{
			name:     "trims whitespace",
			input:    "  filename  ",
			expected: "filename",
		},
		{
			name:     "returns Untitled for empty",
			input:    "",
			expected: "Untitled",
		},
		{
			name:     "returns Untitled for only special chars",
			input:    "<>:?*",
			expected: "Untitled",
		},
		{
			name:     "truncates long names",
			input:    strings.Repeat("a", 250),
			expected: strings.Repeat("a", 200),
		},
		{
			name:     "handles unicode",
			input:    "Pamiętnik znaleziony w wannie",
			expected: "Pamiętnik znaleziony w wannie",
		},
		{
			name:     "complex case",
			input:    `Book: "The Title" [Vol. 1] #Series`,
			expected: "Book The Title (Vol. 1) Series",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeFilename(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLookupKey(t *testing.T) {
	tests := []struct {
		name     string
		authors  []string
		title    string
		expected string
	}{
		{
			name:     "basic",
			authors:  []string{"Ursula K. Le Guin"},
			title:    "The Dispossessed",
			expected: "ursula k. le guin|the dispossessed",
		},
		{
			name:     "multiple authors joined",
			authors:  []string{"A. Strugatsky", "B. Strugatsky"},
			title:    "Roadside Picnic",
			expected: "a. strugatsky, b. strugatsky|roadside picnic",
		},
		{
			name:     "strips unsafe characters and case-folds",
			authors:  []string{"Some/Author"},
			title:    `A "Title": Subtitle`,
			expected: "someauthor|a title subtitle",
		},
		{
			name:     "no authors",
			authors:  nil,
			title:    "Anonymous Work",
			expected: "untitled|anonymous work",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LookupKey(tt.authors, tt.title))
		})
	}
}
