package ada

import "sync"

// Sessions tracks skip requests per active request. A session is registered
// when a request starts, flipped by the out-of-band skip endpoint, polled by
// the engine at its checkpoints, and released when the request completes
// (including error paths) so the table never grows unbounded.
//
// This is the only mutable state shared across concurrent requests.
type Sessions struct {
	mu   sync.Mutex
	skip map[string]bool
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{skip: make(map[string]bool)}
}

// Register adds a session with the skip flag cleared. Re-registering an
// existing session resets its flag.
func (s *Sessions) Register(id string) {
	s.mu.Lock()
	s.skip[id] = false
	s.mu.Unlock()
}

// Skip sets the skip flag for id. Returns false when the session is not
// registered (request already finished or never existed).
func (s *Sessions) Skip(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.skip[id]; !ok {
		return false
	}
	s.skip[id] = true
	return true
}

// Skipped reports whether a skip was requested for id.
func (s *Sessions) Skipped(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skip[id]
}

// Release removes the session from the registry.
func (s *Sessions) Release(id string) {
	s.mu.Lock()
	delete(s.skip, id)
	s.mu.Unlock()
}

// Len returns the number of registered sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.skip)
}
