package entities

type MatchType string

const (
	MatchExact     MatchType = "exact"     // no new or modified highlights
	MatchUpdated   MatchType = "updated"   // only additions
	MatchDivergent MatchType = "divergent" // at least one highlight changed text or note
)

// DuplicateMatch is the analyzer's verdict on how a candidate document
// relates to a freshly parsed import of the same book.
type DuplicateMatch struct {
	Document           DocumentRef
	Type               MatchType
	NewHighlights      int
	ModifiedHighlights int
	Metadata           BookMetadata
	// CanMergeSafely is true iff a snapshot exists for the candidate, i.e.
	// a three-way merge has a known-good base.
	CanMergeSafely bool
}

type Choice string

const (
	ChoiceReplace   Choice = "replace"
	ChoiceMerge     Choice = "merge"
	ChoiceAutoMerge Choice = "automerge"
	ChoiceKeepBoth  Choice = "keep-both"
	ChoiceSkip      Choice = "skip"
)

// PromptResponse is what the UI layer returns from a duplicate prompt.
type PromptResponse struct {
	Choice     Choice
	ApplyToAll bool
}

// ImportSummary aggregates per-book outcomes across one batch run.
type ImportSummary struct {
	Created    int
	Merged     int
	AutoMerged int
	Skipped    int
	Errors     int
}

func (s ImportSummary) Total() int {
	return s.Created + s.Merged + s.AutoMerged + s.Skipped + s.Errors
}
