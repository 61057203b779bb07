package decision

import (
	"sync"

	"github.com/mrlokans/koimport/internal/entities"
)

// Session holds the transient apply-to-all state for one batch import. A new
// session is created per run so batches never leak choices into one another.
type Session struct {
	mu         sync.Mutex
	applyToAll bool
	choice     entities.Choice
}

func NewSession() *Session {
	return &Session{}
}

// Cached returns the batch-wide choice when apply-to-all was selected.
func (s *Session) Cached() (entities.Choice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.choice, s.applyToAll
}

// SetAll records a choice for the remainder of the batch.
func (s *Session) SetAll(choice entities.Choice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyToAll = true
	s.choice = choice
}
