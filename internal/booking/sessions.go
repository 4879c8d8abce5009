package booking

import (
	"sync"
	"time"
)

// Sessions keeps exactly one Flow per session id. Drafts live only in
// memory; nothing is persisted until a submit.
type Sessions struct {
	newFlow func() *Flow

	mu    sync.Mutex
	flows map[string]*Flow
}

func NewSessions(newFlow func() *Flow) *Sessions {
	return &Sessions{newFlow: newFlow, flows: make(map[string]*Flow)}
}

// Flow returns the session's flow, creating it on first use.
func (s *Sessions) Flow(sessionID string) *Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[sessionID]
	if !ok {
		f = s.newFlow()
		s.flows[sessionID] = f
	}
	return f
}

// Lookup returns the session's flow without creating one.
func (s *Sessions) Lookup(sessionID string) (*Flow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[sessionID]
	return f, ok
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flows)
}

// Sweep forgets flows untouched since before cutoff and returns how many
// were dropped. Flows with a submit in flight are kept.
func (s *Sessions) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for id, f := range s.flows {
		if f.busy() || !f.idleSince().Before(cutoff) {
			continue
		}
		delete(s.flows, id)
		dropped++
	}
	return dropped
}
