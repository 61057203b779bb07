// Package importer orchestrates one batch import: candidate lookup,
// duplicate analysis, decision resolution and index bookkeeping across a
// bounded worker pool.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/koimport/internal/decision"
	"github.com/mrlokans/koimport/internal/dedupe"
	"github.com/mrlokans/koimport/internal/entities"
	"github.com/mrlokans/koimport/internal/index"
	"github.com/mrlokans/koimport/internal/merge"
	"github.com/mrlokans/koimport/internal/snapshot"
	"github.com/mrlokans/koimport/internal/vault"
)

// Generator produces the full document text for a parsed book. Invoked
// lazily so a skipped book never pays for rendering.
type Generator interface {
	Generate(meta entities.BookMetadata) (string, error)
}

// Source is the device metadata parser contract: it yields one fully parsed
// record per book found on the device.
type Source interface {
	Books(ctx context.Context) ([]entities.BookMetadata, error)
}

// Options tunes one batch run.
type Options struct {
	// Workers bounds the worker pool; a small multiple of the hardware
	// parallelism works well since workers mostly wait on I/O and prompts.
	Workers int
	// AutoMerge enables the safe-by-policy automated path for candidates
	// classified updated with zero modifications and an existing snapshot.
	AutoMerge bool
	// Interactive routes other duplicates through the decision prompt; when
	// false they are skipped instead (watch-mode behavior).
	Interactive bool
}

// Importer runs batch imports against one vault.
type Importer struct {
	vault      *vault.Vault
	snapshots  *snapshot.Store
	candidates *index.CandidateIndex
	resolver   *merge.Resolver
	controller *decision.Controller
	generator  Generator
	opts       Options
}

func New(v *vault.Vault, snapshots *snapshot.Store, candidates *index.CandidateIndex, resolver *merge.Resolver, controller *decision.Controller, generator Generator, opts Options) *Importer {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Importer{
		vault:      v,
		snapshots:  snapshots,
		candidates: candidates,
		resolver:   resolver,
		controller: controller,
		generator:  generator,
		opts:       opts,
	}
}

// Run imports every book in the batch. Per-book failures are counted and
// logged without stopping the rest; only cancellation aborts the batch, and
// even then the summary reflects everything processed so far.
func (imp *Importer) Run(ctx context.Context, books []entities.BookMetadata) (entities.ImportSummary, error) {
	var (
		mu      sync.Mutex
		summary entities.ImportSummary
	)
	sess := decision.NewSession()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(imp.opts.Workers)

	for _, book := range books {
		book := book
		g.Go(func() error {
			outcome, err := imp.importOne(ctx, sess, book)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				summary.Skipped++
				return err
			case err != nil:
				summary.Errors++
				log.Printf("Import: %q failed: %v", book.Props.Title, err)
				return nil
			}
			switch outcome {
			case outcomeCreated:
				summary.Created++
			case outcomeMerged:
				summary.Merged++
			case outcomeAutoMerged:
				summary.AutoMerged++
			default:
				summary.Skipped++
			}
			return nil
		})
	}

	err := g.Wait()
	log.Printf("Import: finished: %d created, %d merged, %d auto-merged, %d skipped, %d errors",
		summary.Created, summary.Merged, summary.AutoMerged, summary.Skipped, summary.Errors)
	return summary, err
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeCreated
	outcomeMerged
	outcomeAutoMerged
)

func (imp *Importer) importOne(ctx context.Context, sess *decision.Session, book entities.BookMetadata) (outcome, error) {
	if err := ctx.Err(); err != nil {
		return outcomeSkipped, err
	}
	if book.Props.Title == "" {
		return outcomeSkipped, fmt.Errorf("book record has no title")
	}

	generate := imp.lazyGenerate(book)

	refs, err := imp.candidates.Find(book.Props.Authors, book.Props.Title)
	if err != nil {
		return outcomeSkipped, err
	}

	if len(refs) == 0 {
		result, err := imp.resolver.CreateNew(book, generate)
		if err != nil {
			return outcomeSkipped, err
		}
		if err := imp.recordDocument(book, result.Document); err != nil {
			return outcomeSkipped, err
		}
		return outcomeCreated, nil
	}

	match, err := imp.bestMatch(ctx, refs, book)
	if err != nil {
		return outcomeSkipped, err
	}

	if match.Type == entities.MatchExact {
		// Nothing new on the device for this book.
		return outcomeSkipped, nil
	}

	isAuto := imp.opts.AutoMerge &&
		match.Type == entities.MatchUpdated &&
		match.ModifiedHighlights == 0 &&
		match.CanMergeSafely
	if !isAuto && !imp.opts.Interactive {
		log.Printf("Import: %q needs a decision, skipped in non-interactive mode", book.Props.Title)
		return outcomeSkipped, nil
	}

	result, err := imp.controller.Resolve(ctx, sess, match, promptMessage(match), generate, isAuto)
	if err != nil {
		return outcomeSkipped, err
	}

	if result.Document != nil {
		if err := imp.recordDocument(book, result.Document); err != nil {
			return outcomeSkipped, err
		}
	}

	switch result.Choice {
	case entities.ChoiceAutoMerge:
		return outcomeAutoMerged, nil
	case entities.ChoiceMerge, entities.ChoiceReplace:
		return outcomeMerged, nil
	case entities.ChoiceKeepBoth:
		return outcomeCreated, nil
	default:
		return outcomeSkipped, nil
	}
}

// bestMatch analyzes every candidate and keeps the closest one: fewest
// divergences first, modifications weighing heavier than additions.
func (imp *Importer) bestMatch(ctx context.Context, refs []entities.DocumentRef, book entities.BookMetadata) (entities.DuplicateMatch, error) {
	var (
		best      entities.DuplicateMatch
		bestScore = -1
	)
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return entities.DuplicateMatch{}, err
		}
		content, err := imp.vault.Read(ref.Path)
		if err != nil {
			// A candidate the index knows about but the vault lost; treat
			// as not a candidate rather than failing the book.
			log.Printf("Import: candidate %s unreadable: %v", ref.Path, err)
			imp.candidates.InvalidatePath(ref.Path)
			continue
		}
		_, body := vault.SplitDocument(content)
		existing := vault.ParseAnnotations(body)
		match := dedupe.Analyze(ref, existing, book, imp.snapshots.Exists(ref.Path))

		score := match.ModifiedHighlights*1000 + match.NewHighlights
		if bestScore == -1 || score < bestScore {
			best = match
			bestScore = score
		}
	}
	if bestScore == -1 {
		return entities.DuplicateMatch{}, fmt.Errorf("no readable duplicate candidate")
	}
	return best, nil
}

// recordDocument upserts the written document into the persisted index.
func (imp *Importer) recordDocument(book entities.BookMetadata, doc *entities.DocumentRef) error {
	if doc == nil {
		return nil
	}
	if _, err := imp.candidates.RecordWrite(book.Props.Title, book.Props.Authors, doc.Path); err != nil {
		return fmt.Errorf("failed to index %s: %w", doc.Path, err)
	}
	return nil
}

// lazyGenerate memoizes rendering so it runs at most once per book and only
// when a chosen action needs the content.
func (imp *Importer) lazyGenerate(book entities.BookMetadata) merge.GenerateFunc {
	var (
		once    sync.Once
		content string
		err     error
	)
	return func() (string, error) {
		once.Do(func() {
			content, err = imp.generator.Generate(book)
		})
		return content, err
	}
}

func promptMessage(match entities.DuplicateMatch) string {
	return fmt.Sprintf("%q already exists in the vault (%s): %d new, %d modified highlights",
		match.Metadata.Props.Title, match.Type, match.NewHighlights, match.ModifiedHighlights)
}
