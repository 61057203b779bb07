// Package dedupe classifies how a candidate vault document differs from a
// freshly parsed device import of the same book.
package dedupe

import (
	"github.com/mrlokans/koimport/internal/entities"
)

// Analyze compares the fresh import against a candidate document's existing
// annotation set. Single pass, O(existing + new). Annotations are matched by
// position so a passage whose text or note was edited in place counts as
// modified; one that moved position looks like an unrelated removal plus
// addition.
func Analyze(doc entities.DocumentRef, existing []entities.Annotation, meta entities.BookMetadata, snapshotExists bool) entities.DuplicateMatch {
	byPos := make(map[string]entities.Annotation, len(existing))
	for _, a := range existing {
		byPos[a.PositionKey()] = a
	}

	match := entities.DuplicateMatch{
		Document:       doc,
		Metadata:       meta,
		CanMergeSafely: snapshotExists,
	}

	for _, fresh := range meta.Annotations {
		prev, ok := byPos[fresh.PositionKey()]
		if !ok {
			match.NewHighlights++
			continue
		}
		if !fresh.TextEquals(prev) || !fresh.NoteEquals(prev) {
			match.ModifiedHighlights++
		}
	}

	match.Type = classify(match.NewHighlights, match.ModifiedHighlights)
	return match
}

// classify maps the counters to a match type. Modifications take precedence
// over pure additions.
func classify(newCount, modifiedCount int) entities.MatchType {
	switch {
	case modifiedCount > 0:
		return entities.MatchDivergent
	case newCount > 0:
		return entities.MatchUpdated
	default:
		return entities.MatchExact
	}
}
