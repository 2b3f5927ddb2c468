package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sessions maps session ids to their history buffers. Sessions unused for longer than the idle
// timeout are dropped by Sweep.
type Sessions struct {
	capacity int
	idle     time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	buffer   *Buffer
	lastSeen time.Time
}

// NewSessions creates an empty store whose buffers hold capacity results.
// idle <= 0 keeps sessions forever.
func NewSessions(capacity int, idle time.Duration) *Sessions {
	return &Sessions{
		capacity: capacity,
		idle:     idle,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Get returns the buffer for id, creating the session if needed. An empty or malformed id
// gets a new random id. The returned id is the one to use in later calls.
func (s *Sessions) Get(id string) (string, *Buffer) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{buffer: NewBuffer(s.capacity)}
		s.sessions[id] = sess
	}
	sess.lastSeen = s.now()
	return id, sess.buffer
}

// Lookup returns the buffer for an existing session without creating one.
func (s *Sessions) Lookup(id string) (*Buffer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.buffer, true
}

// Sweep drops idle sessions and returns how many were dropped.
func (s *Sessions) Sweep() int {
	if s.idle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idle)
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Run sweeps every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
