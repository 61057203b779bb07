package index

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/mrlokans/koimport/internal/vault"
)

// Watcher observes the vault's highlights directory and invalidates
// candidate cache entries when documents are edited, renamed or deleted
// outside an import run.
type Watcher struct {
	vaultRoot  string
	dir        string // vault-relative directory to watch
	candidates *CandidateIndex
	watcher    *fsnotify.Watcher
}

func NewWatcher(vaultRoot, dir string, candidates *CandidateIndex) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create vault watcher: %w", err)
	}
	return &Watcher{
		vaultRoot:  vaultRoot,
		dir:        dir,
		candidates: candidates,
		watcher:    fw,
	}, nil
}

// Run watches until ctx is cancelled. It is safe to call when the watched
// directory does not exist yet; watching starts once it appears on the next
// Run call.
func (w *Watcher) Run(ctx context.Context) error {
	abs := filepath.Join(w.vaultRoot, w.dir)
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("watch directory unavailable: %w", err)
	}
	if err := w.watcher.Add(abs); err != nil {
		return fmt.Errorf("failed to watch %s: %w", abs, err)
	}
	log.Printf("Watcher: observing %s", abs)

	for {
		select {
		case <-ctx.Done():
			return w.watcher.Close()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watcher: error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if filepath.Ext(event.Name) != ".md" {
		return
	}
	rel, err := filepath.Rel(w.vaultRoot, event.Name)
	if err != nil {
		return
	}

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// A rename event carries the old name. The row is dropped here and
		// the new name is indexed when its own Create event arrives.
		if err := w.candidates.ForgetPath(rel); err != nil {
			log.Printf("Watcher: %v", err)
		}
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		// Drop whatever key the document was indexed under, then refresh
		// the row from the frontmatter it carries now, in case authors or
		// title were edited.
		w.candidates.InvalidatePath(rel)
		if title, authors, ok := w.frontmatterIdentity(event.Name); ok {
			if _, err := w.candidates.RecordWrite(title, authors, rel); err != nil {
				log.Printf("Watcher: failed to reindex %s: %v", rel, err)
			}
		}
	}
}

// frontmatterIdentity reads a document's current frontmatter and returns the
// title/authors fields its lookup key derives from.
func (w *Watcher) frontmatterIdentity(absPath string) (title string, authors []string, ok bool) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", nil, false
	}
	front, _ := vault.SplitDocument(string(data))
	fm, err := vault.ParseFrontmatter(front)
	if err != nil {
		return "", nil, false
	}
	titleVal, ok := fm.Get("title")
	if !ok || titleVal.Str == "" {
		return "", nil, false
	}
	if v, ok := fm.Get("authors"); ok {
		switch v.Kind {
		case vault.KindStringList:
			authors = v.List
		case vault.KindString:
			for _, a := range strings.Split(v.Str, ",") {
				authors = append(authors, strings.TrimSpace(a))
			}
		}
	}
	return titleVal.Str, authors, true
}
