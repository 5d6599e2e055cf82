package dialog

import "sync"

// Sessions is the table of live dialogs keyed by session id. A missing entry
// means the session is idle. Reads and writes for one key are ordered by the
// Dispatcher; the mutex only protects the map itself.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[int64]Session)}
}

// Get returns the session of id, or an idle session and false.
func (s *Sessions) Get(id int64) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{Step: StepIdle}, false
	}
	return sess, true
}

// Put stores sess, replacing any previous dialog of id. Idle sessions are
// removed instead of stored.
func (s *Sessions) Put(id int64, sess Session) {
	if sess.Step == StepIdle {
		s.Delete(id)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sess
}

func (s *Sessions) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
