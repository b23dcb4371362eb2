package server

import "sync"

type SessionState int

const (
	SessionIdle SessionState = iota
	SessionStarting
	SessionStreaming
)

func (s SessionState) String() string {
	switch s {
	case SessionStarting:
		return "starting"
	case SessionStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

// Session is the capture-session flag of one connection. The dispatcher and
// the pump both change it, so every transition happens under mu.
//
// A pump owns the session through a Lease. Deactivate bumps the generation,
// which invalidates the outstanding lease; the pump sees that on its next
// Active check and exits.
type Session struct {
	mu    sync.Mutex
	state SessionState
	gen   uint64
	last  chan struct{}
}

type Lease struct {
	gen  uint64
	prev <-chan struct{} // closed when the previous pump has fully exited
	done chan struct{}
}

func NewSession() *Session {
	return &Session{}
}

// TryActivate moves Idle to Starting and hands out a lease. It fails while
// another pump is starting or streaming.
func (s *Session) TryActivate() (*Lease, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionIdle {
		return nil, false
	}
	s.gen++
	s.state = SessionStarting
	lease := &Lease{gen: s.gen, prev: s.last, done: make(chan struct{})}
	s.last = lease.done
	return lease, true
}

// MarkStreaming is called once the device is open. It fails if the stream
// was stopped while the device was being acquired.
func (s *Session) MarkStreaming(l *Lease) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != l.gen || s.state != SessionStarting {
		return false
	}
	s.state = SessionStreaming
	return true
}

func (s *Session) Active(l *Lease) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == l.gen && s.state != SessionIdle
}

// Deactivate stops whatever stream is running. Calling it while idle does nothing.
func (s *Session) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionIdle {
		return
	}
	s.state = SessionIdle
	s.gen++
}

// Release is the pump's exit. The flag is cleared only if the lease is still
// current, so a late exit never clobbers a newer stream.
func (s *Session) Release(l *Lease) {
	s.mu.Lock()
	if s.gen == l.gen {
		s.state = SessionIdle
	}
	s.mu.Unlock()
	close(l.done)
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Streaming() bool {
	return s.State() == SessionStreaming
}

// WaitPrevious blocks until the pump that held the session before l is gone.
func (l *Lease) WaitPrevious(stop <-chan struct{}) bool {
	if l.prev == nil {
		return true
	}
	select {
	case <-l.prev:
		return true
	case <-stop:
		return false
	}
}

// Done is closed when the pump holding l has released it.
func (l *Lease) Done() <-chan struct{} {
	return l.done
}
