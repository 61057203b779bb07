// Package merge turns a duplicate-resolution choice into final document
// content: verbatim replacement, annotation-union two-way merge, or a
// snapshot-based three-way merge with conflict markers.
package merge

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/mrlokans/koimport/internal/entities"
	"github.com/mrlokans/koimport/internal/snapshot"
	"github.com/mrlokans/koimport/internal/vault"
)

const (
	conflictBegin     = "<<<<<<< vault"
	conflictSeparator = "======="
	conflictEnd       = ">>>>>>> import"
)

const conflictCallout = `> [!warning] Merge conflict
> Parts of this document changed both in the vault and on the device since
> the last import. Both versions are kept between the conflict markers
> below; resolve them manually and remove this callout.`

// GenerateFunc lazily produces the freshly generated document text
// (frontmatter + rendered body) for the book being imported. It is only
// invoked when the chosen action actually needs new content.
type GenerateFunc func() (string, error)

// ConfirmFunc asks for explicit approval of a lossy two-way merge when no
// snapshot base exists. Must respect ctx cancellation.
type ConfirmFunc func(ctx context.Context) (bool, error)

// Result reports what a resolution actually did. Choice is the effective
// choice after fallbacks: a merge refused for want of a base comes back as
// skip.
type Result struct {
	Choice       entities.Choice
	Document     *entities.DocumentRef // nil when nothing was written
	HasConflicts bool
}

// Resolver executes resolution choices against the vault.
type Resolver struct {
	Vault     *vault.Vault
	Snapshots *snapshot.Store
	DocDir    string // vault-relative directory receiving new documents
}

func NewResolver(v *vault.Vault, snapshots *snapshot.Store, docDir string) *Resolver {
	return &Resolver{Vault: v, Snapshots: snapshots, DocDir: docDir}
}

// DocumentPath returns the canonical vault-relative path for a book.
func (r *Resolver) DocumentPath(props entities.DocProps) string {
	return filepath.Join(r.DocDir, vault.SanitizeFilename(props.Title)+".md")
}

// Apply dispatches one resolved choice. Unexpected I/O errors are returned
// to the caller as terminal for this document only.
func (r *Resolver) Apply(ctx context.Context, choice entities.Choice, match entities.DuplicateMatch, generate GenerateFunc, confirm ConfirmFunc) (Result, error) {
	switch choice {
	case entities.ChoiceSkip:
		return Result{Choice: entities.ChoiceSkip}, nil
	case entities.ChoiceReplace:
		return r.applyReplace(match, generate)
	case entities.ChoiceKeepBoth:
		return r.applyKeepBoth(match, generate)
	case entities.ChoiceMerge, entities.ChoiceAutoMerge:
		return r.applyMerge(ctx, choice, match, generate, confirm)
	default:
		return Result{}, fmt.Errorf("unknown resolution choice %q", choice)
	}
}

// applyReplace overwrites the candidate with freshly generated content
// verbatim. A timestamped backup of the previous content is kept for
// disaster recovery.
func (r *Resolver) applyReplace(match entities.DuplicateMatch, generate GenerateFunc) (Result, error) {
	path := match.Document.Path
	if current, err := r.Vault.Read(path); err == nil {
		if err := r.Snapshots.CreateBackup(path, current); err != nil {
			log.Printf("Merge: backup before replace failed for %s: %v", path, err)
		}
	}

	content, err := generate()
	if err != nil {
		return Result{}, fmt.Errorf("failed to generate content: %w", err)
	}
	if err := r.writeWithSnapshot(path, content); err != nil {
		return Result{}, err
	}
	return Result{Choice: entities.ChoiceReplace, Document: &entities.DocumentRef{Path: path}}, nil
}

// applyKeepBoth leaves the candidate untouched and writes the new import to
// a uniquely named sibling document.
func (r *Resolver) applyKeepBoth(match entities.DuplicateMatch, generate GenerateFunc) (Result, error) {
	result, err := r.CreateNew(match.Metadata, generate)
	if err != nil {
		return Result{}, err
	}
	result.Choice = entities.ChoiceKeepBoth
	return result, nil
}

// CreateNew writes a freshly generated document at an unused path and
// records its snapshot. Also serves books with no duplicate candidates.
func (r *Resolver) CreateNew(meta entities.BookMetadata, generate GenerateFunc) (Result, error) {
	content, err := generate()
	if err != nil {
		return Result{}, fmt.Errorf("failed to generate content: %w", err)
	}
	path := r.Vault.UniquePath(r.DocumentPath(meta.Props))
	if err := r.writeWithSnapshot(path, content); err != nil {
		return Result{}, err
	}
	return Result{Document: &entities.DocumentRef{Path: path}}, nil
}

func (r *Resolver) applyMerge(ctx context.Context, choice entities.Choice, match entities.DuplicateMatch, generate GenerateFunc, confirm ConfirmFunc) (Result, error) {
	path := match.Document.Path

	ours, err := r.Vault.Read(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read merge target: %w", err)
	}

	base, ok := r.Snapshots.Get(path)
	if !ok {
		// On-the-fly snapshot from current content, then one retry. Leaves
		// base == ours, which degrades the three-way merge to "take theirs"
		// for this run while establishing a real base for the next one.
		if err := r.Snapshots.Create(path, ours); err != nil {
			log.Printf("Merge: on-the-fly snapshot failed for %s: %v", path, err)
		}
		base, ok = r.Snapshots.Get(path)
	}

	if !ok {
		if choice == entities.ChoiceAutoMerge {
			// Merging without a known-good base means guessing at a diff;
			// the automated path must never do that.
			log.Printf("Merge: refusing automerge without snapshot for %s", path)
			return Result{Choice: entities.ChoiceSkip}, nil
		}
		confirmed, err := confirm(ctx)
		if err != nil {
			return Result{}, err
		}
		if !confirmed {
			return Result{Choice: entities.ChoiceSkip}, nil
		}
		return r.twoWayMerge(path, ours, match, generate)
	}

	return r.threeWayMerge(choice, path, base, ours, generate)
}

// twoWayMerge unions the annotation arrays of both versions (existing wins
// on key collision, new entries appended) and re-renders the body. Free-text
// body edits that are not annotations are lost; only reachable after
// explicit confirmation.
func (r *Resolver) twoWayMerge(path, ours string, match entities.DuplicateMatch, generate GenerateFunc) (Result, error) {
	theirs, err := generate()
	if err != nil {
		return Result{}, fmt.Errorf("failed to generate content: %w", err)
	}

	oursFront, oursBody := vault.SplitDocument(ours)
	theirsFront, theirsBody := vault.SplitDocument(theirs)

	oursFM, err := vault.ParseFrontmatter(oursFront)
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse existing frontmatter: %w", err)
	}
	theirsFM, err := vault.ParseFrontmatter(theirsFront)
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse generated frontmatter: %w", err)
	}

	existing := vault.ParseAnnotations(oursBody)
	fresh := vault.ParseAnnotations(theirsBody)

	seen := make(map[string]bool, len(existing))
	merged := make([]entities.Annotation, 0, len(existing)+len(fresh))
	for _, a := range existing {
		seen[a.Key()] = true
		merged = append(merged, a)
	}
	for _, a := range fresh {
		if !seen[a.Key()] {
			merged = append(merged, a)
		}
	}

	var body strings.Builder
	for _, a := range merged {
		body.WriteString(vault.RenderAnnotation(a))
	}

	content := MergeFrontmatter(oursFM, theirsFM).Render() + "\n" + body.String()
	if err := r.writeWithSnapshot(path, content); err != nil {
		return Result{}, err
	}
	return Result{Choice: entities.ChoiceMerge, Document: &entities.DocumentRef{Path: path}}, nil
}

// threeWayMerge reconciles base/ours/theirs bodies line by line. Conflicting
// regions keep both sides between markers; the document is always written,
// conflicts never block the import.
func (r *Resolver) threeWayMerge(choice entities.Choice, path, base, ours string, generate GenerateFunc) (Result, error) {
	theirs, err := generate()
	if err != nil {
		return Result{}, fmt.Errorf("failed to generate content: %w", err)
	}

	_, baseBody := vault.SplitDocument(base)
	oursFront, oursBody := vault.SplitDocument(ours)
	theirsFront, theirsBody := vault.SplitDocument(theirs)

	oursFM, err := vault.ParseFrontmatter(oursFront)
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse existing frontmatter: %w", err)
	}
	theirsFM, err := vault.ParseFrontmatter(theirsFront)
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse generated frontmatter: %w", err)
	}

	regions := Merge3(splitLines(baseBody), splitLines(oursBody), splitLines(theirsBody))
	conflicted := HasConflicts(regions)

	var body strings.Builder
	if conflicted {
		body.WriteString(conflictCallout)
		body.WriteString("\n\n")
	}
	for _, region := range regions {
		if region.Kind == RegionStable {
			writeLines(&body, region.Lines)
			continue
		}
		body.WriteString(conflictBegin + "\n")
		writeLines(&body, region.Ours)
		body.WriteString(conflictSeparator + "\n")
		writeLines(&body, region.Theirs)
		body.WriteString(conflictEnd + "\n")
	}

	content := MergeFrontmatter(oursFM, theirsFM).Render() + "\n" + body.String()
	if err := r.writeWithSnapshot(path, content); err != nil {
		return Result{}, err
	}
	if conflicted {
		log.Printf("Merge: %s merged with conflicts, manual resolution required", path)
	}
	return Result{
		Choice:       choice,
		Document:     &entities.DocumentRef{Path: path},
		HasConflicts: conflicted,
	}, nil
}

// writeWithSnapshot writes a document and records the written content as the
// new snapshot base for the next import.
func (r *Resolver) writeWithSnapshot(path, content string) error {
	if err := r.Vault.Write(path, content); err != nil {
		return err
	}
	if err := r.Snapshots.Create(path, content); err != nil {
		// A failed snapshot is not fatal; the next merge simply has no base.
		log.Printf("Merge: snapshot update failed for %s: %v", path, err)
	}
	return nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func writeLines(sb *strings.Builder, lines []string) {
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
}
