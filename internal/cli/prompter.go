package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mrlokans/koimport/internal/entities"
)

// TerminalPrompter asks duplicate-resolution questions on the terminal.
// Reads happen on a single goroutine so concurrent workers cannot interleave
// on stdin; the decision lock already serializes the prompts themselves.
type TerminalPrompter struct {
	in  *bufio.Scanner
	out io.Writer
	mu  sync.Mutex
}

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{
		in:  bufio.NewScanner(in),
		out: out,
	}
}

// PromptDuplicate presents a duplicate match and reads the user's choice.
func (p *TerminalPrompter) PromptDuplicate(ctx context.Context, match entities.DuplicateMatch, message string) (entities.PromptResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\n%s\n", message)
	fmt.Fprintf(p.out, "  existing: %s\n", match.Document.Path)
	if !match.CanMergeSafely {
		fmt.Fprintf(p.out, "  (no snapshot of the last import; merging needs confirmation)\n")
	}

	for {
		fmt.Fprintf(p.out, "[r]eplace, [m]erge, [k]eep both, [s]kip? ")
		line, err := p.readLine(ctx)
		if err != nil {
			return entities.PromptResponse{}, err
		}

		var choice entities.Choice
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "r", "replace":
			choice = entities.ChoiceReplace
		case "m", "merge":
			choice = entities.ChoiceMerge
		case "k", "keep", "keep both":
			choice = entities.ChoiceKeepBoth
		case "s", "skip", "":
			choice = entities.ChoiceSkip
		default:
			fmt.Fprintf(p.out, "Unrecognized answer %q\n", line)
			continue
		}

		fmt.Fprintf(p.out, "Apply to all remaining books? [y/N] ")
		all, err := p.readLine(ctx)
		if err != nil {
			return entities.PromptResponse{}, err
		}

		return entities.PromptResponse{
			Choice:     choice,
			ApplyToAll: strings.EqualFold(strings.TrimSpace(all), "y"),
		}, nil
	}
}

// ConfirmTwoWay warns that a merge without a snapshot base discards free-form
// body edits and asks for explicit approval.
func (p *TerminalPrompter) ConfirmTwoWay(ctx context.Context, match entities.DuplicateMatch) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\nNo snapshot exists for %s.\n", match.Document.Path)
	fmt.Fprintf(p.out, "A merge will keep all annotations from both versions but drop any free-form\n")
	fmt.Fprintf(p.out, "edits made to the document body. Continue? [y/N] ")

	line, err := p.readLine(ctx)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(line), "y"), nil
}

// readLine reads one line, abandoning the wait when ctx is cancelled.
// Cancellation aborts the whole batch, so an abandoned read is never raced
// against a later one.
func (p *TerminalPrompter) readLine(ctx context.Context) (string, error) {
	lines := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		if p.in.Scan() {
			lines <- p.in.Text()
			return
		}
		if err := p.in.Err(); err != nil {
			errs <- err
			return
		}
		errs <- io.EOF
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errs:
		return "", err
	case line := <-lines:
		return line, nil
	}
}
