package models

import (
	"context"
	"log"
	"sync"
	"time"
)

// WorkflowStore keeps one Workflow per browser session in memory.
// Nothing is persisted; a restart starts every session from Idle.
type WorkflowStore struct {
	mu        sync.Mutex
	workflows map[string]*Workflow
	ttl       time.Duration
	now       func() time.Time
}

func NewWorkflowStore(ttl time.Duration) *WorkflowStore {
	return &WorkflowStore{
		workflows: make(map[string]*Workflow),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Get returns the workflow for sessionID, creating an Idle one if needed.
func (s *WorkflowStore) Get(sessionID string) *Workflow {
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, ok := s.workflows[sessionID]
	if !ok {
		wf = newWorkflow(s.now)
		s.workflows[sessionID] = wf
		return wf
	}
	wf.touch()
	return wf
}

// Lookup returns the workflow for sessionID without creating one.
func (s *WorkflowStore) Lookup(sessionID string) (*Workflow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, ok := s.workflows[sessionID]
	return wf, ok
}

// Len returns the number of live sessions.
func (s *WorkflowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workflows)
}

// Prune drops sessions untouched for longer than the TTL. Workflows with an
// analysis in flight are kept.
func (s *WorkflowStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, wf := range s.workflows {
		last, evictable := wf.idleSince()
		if evictable && last.Before(cutoff) {
			wf.Reset()
			delete(s.workflows, id)
			removed++
		}
	}
	return removed
}

// RunJanitor prunes expired sessions every interval until ctx is done.
func (s *WorkflowStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Prune(); n > 0 {
				log.Printf("Pruned %d expired sessions, %d active", n, s.Len())
			}
		}
	}
}
