// Package render produces the freshly generated document text for a parsed
// book: frontmatter followed by a rendered annotation body.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mrlokans/koimport/internal/entities"
	"github.com/mrlokans/koimport/internal/vault"
)

// Renderer builds vault documents from parsed book metadata.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Generate renders the complete document (frontmatter + body) for a book.
func (r *Renderer) Generate(meta entities.BookMetadata) (string, error) {
	if meta.Props.Title == "" {
		return "", fmt.Errorf("cannot render book without a title")
	}

	var sb strings.Builder
	sb.WriteString(r.Frontmatter(meta).Render())
	sb.WriteString("\n")
	sb.WriteString(r.Body(meta))
	return sb.String(), nil
}

// Frontmatter emits the generated frontmatter for a book. Field order is
// fixed so repeated imports produce byte-identical output for unchanged
// input.
func (r *Renderer) Frontmatter(meta entities.BookMetadata) *vault.Frontmatter {
	fm := vault.NewFrontmatter()
	fm.Set("title", vault.String(meta.Props.Title))
	fm.Set("authors", vault.StringList(meta.Props.Authors))

	stats := meta.Stats
	if stats.Pages > 0 {
		fm.Set("pages", vault.Number(float64(stats.Pages)))
	}
	fm.Set("highlights_count", vault.Number(float64(len(meta.Annotations))))
	fm.Set("notes_count", vault.Number(float64(countNotes(meta.Annotations))))
	if stats.FirstReadDate != "" {
		fm.Set("first_read_date", vault.String(stats.FirstReadDate))
	}
	if stats.LastReadDate != "" {
		fm.Set("last_read_date", vault.String(stats.LastReadDate))
	}
	if stats.TotalReadTime > 0 {
		fm.Set("total_read_time", vault.Number(float64(stats.TotalReadTime)))
	}
	if stats.Progress > 0 {
		fm.Set("progress", vault.Number(stats.Progress))
	}
	if stats.Status != "" {
		fm.Set("status", vault.String(stats.Status))
	}
	if stats.AvgTimePerPage > 0 {
		fm.Set("avg_time_per_page", vault.Number(stats.AvgTimePerPage))
	}
	if meta.Props.Series != "" {
		fm.Set("series", vault.String(meta.Props.Series))
	}
	if meta.Props.Language != "" {
		fm.Set("language", vault.String(meta.Props.Language))
	}

	tags := []string{"highlights", "books"}
	if len(meta.Props.Authors) > 0 {
		tags = append(tags, authorTag(meta.Props.Authors[0]))
	}
	fm.Set("tags", vault.StringList(tags))

	return fm
}

// Body renders the book header and all annotation blocks, ordered by page
// then position so output is stable across imports.
func (r *Renderer) Body(meta entities.BookMetadata) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n", meta.Props.Title))
	if len(meta.Props.Authors) > 0 {
		sb.WriteString(fmt.Sprintf("*by %s*\n", strings.Join(meta.Props.Authors, ", ")))
	}
	sb.WriteString("\n")

	annotations := make([]entities.Annotation, len(meta.Annotations))
	copy(annotations, meta.Annotations)
	sort.SliceStable(annotations, func(i, j int) bool {
		if annotations[i].PageNo != annotations[j].PageNo {
			return annotations[i].PageNo < annotations[j].PageNo
		}
		return annotations[i].Pos0 < annotations[j].Pos0
	})

	var lastChapter string
	for _, a := range annotations {
		if a.Chapter != "" && a.Chapter != lastChapter {
			sb.WriteString(fmt.Sprintf("## %s\n\n", a.Chapter))
			lastChapter = a.Chapter
		}
		sb.WriteString(vault.RenderAnnotation(a))
	}

	return sb.String()
}

func countNotes(annotations []entities.Annotation) int {
	n := 0
	for _, a := range annotations {
		if strings.TrimSpace(a.Note) != "" {
			n++
		}
	}
	return n
}

func authorTag(author string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(author), " ", "-"))
}
