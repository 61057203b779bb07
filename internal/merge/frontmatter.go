package merge

import (
	"github.com/mrlokans/koimport/internal/vault"
)

// volatileFields are always overwritten from the fresh import's generated
// frontmatter; the device is authoritative for them. Everything else in the
// existing document, user-added custom fields included, survives untouched.
var volatileFields = []string{
	"last_read_date",
	"first_read_date",
	"total_read_time",
	"progress",
	"status",
	"avg_time_per_page",
	"highlights_count",
	"notes_count",
	"pages",
	"title",
	"authors",
}

var volatileSet = func() map[string]bool {
	m := make(map[string]bool, len(volatileFields))
	for _, f := range volatileFields {
		m[f] = true
	}
	return m
}()

// MergeFrontmatter applies the field-merge rule: volatile fields come from
// theirs, existing fields win otherwise, and fields present only in theirs
// are appended. Merging the same theirs twice is idempotent.
func MergeFrontmatter(existing, theirs *vault.Frontmatter) *vault.Frontmatter {
	out := vault.NewFrontmatter()

	for _, key := range existing.Keys() {
		if volatileSet[key] {
			if v, ok := theirs.Get(key); ok {
				out.Set(key, v)
				continue
			}
		}
		v, _ := existing.Get(key)
		out.Set(key, v)
	}

	for _, key := range theirs.Keys() {
		if !out.Has(key) {
			v, _ := theirs.Get(key)
			out.Set(key, v)
		}
	}

	return out
}
