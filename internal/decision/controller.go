// Package decision serializes interactive duplicate prompts across a
// concurrently processed batch and dispatches resolved choices to the merge
// resolver.
package decision

import (
	"context"
	"errors"
	"log"

	"golang.org/x/sync/semaphore"

	"github.com/mrlokans/koimport/internal/entities"
	"github.com/mrlokans/koimport/internal/merge"
)

// Prompter is the contract with the UI layer. The engine never renders
// prompts itself; both calls block until the user answers or ctx is
// cancelled.
type Prompter interface {
	// PromptDuplicate presents a duplicate match and returns the user's
	// choice, optionally flagged to apply to the whole batch.
	PromptDuplicate(ctx context.Context, match entities.DuplicateMatch, message string) (entities.PromptResponse, error)

	// ConfirmTwoWay asks for explicit approval of a lossy two-way merge
	// when no snapshot base is available.
	ConfirmTwoWay(ctx context.Context, match entities.DuplicateMatch) (bool, error)
}

// Controller owns the single decision lock. Only one prompt is in flight at
// a time; the lock spans both the prompt and the execution of its choice, so
// a user's answer is fully applied before the next prompt appears.
type Controller struct {
	resolver *merge.Resolver
	prompter Prompter
	lock     *semaphore.Weighted // FIFO-fair, context-aware
}

func NewController(resolver *merge.Resolver, prompter Prompter) *Controller {
	return &Controller{
		resolver: resolver,
		prompter: prompter,
		lock:     semaphore.NewWeighted(1),
	}
}

// Resolve obtains a choice for one duplicate and executes it. When
// isAutoMerge is set the lock and prompt are bypassed entirely and the
// automerge path runs directly; the caller is responsible for only setting
// the flag on matches that are safe by policy.
//
// Cancellation while queued or mid-prompt resolves the decision as skip and
// returns the context error; the lock is released on every exit path.
func (c *Controller) Resolve(ctx context.Context, sess *Session, match entities.DuplicateMatch, message string, generate merge.GenerateFunc, isAutoMerge bool) (merge.Result, error) {
	if isAutoMerge {
		return c.resolver.Apply(ctx, entities.ChoiceAutoMerge, match, generate, c.confirmFunc(match))
	}

	// Decisions arriving after apply-to-all was set use the cached choice
	// with no ordering constraints.
	if choice, ok := sess.Cached(); ok {
		return c.resolver.Apply(ctx, choice, match, generate, c.confirmFunc(match))
	}

	if err := c.lock.Acquire(ctx, 1); err != nil {
		return merge.Result{Choice: entities.ChoiceSkip}, err
	}
	defer c.lock.Release(1)

	// Re-check: apply-to-all may have been set while this decision queued.
	if choice, ok := sess.Cached(); ok {
		return c.resolver.Apply(ctx, choice, match, generate, c.confirmFunc(match))
	}

	resp, err := c.prompter.PromptDuplicate(ctx, match, message)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Printf("Decision: prompt cancelled for %s, skipping", match.Document.Path)
			return merge.Result{Choice: entities.ChoiceSkip}, err
		}
		return merge.Result{}, err
	}

	if resp.ApplyToAll {
		sess.SetAll(resp.Choice)
	}

	return c.resolver.Apply(ctx, resp.Choice, match, generate, c.confirmFunc(match))
}

func (c *Controller) confirmFunc(match entities.DuplicateMatch) merge.ConfirmFunc {
	return func(ctx context.Context) (bool, error) {
		return c.prompter.ConfirmTwoWay(ctx, match)
	}
}
