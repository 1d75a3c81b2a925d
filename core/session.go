package core

import (
	"fmt"
	"sync"
	"time"
)

// Session is one application connection context. It is registered in the
// handle registry the moment it exists, before any network I/O, and owns
// zero or one live network session. Auth state only ever moves forward:
// once authenticated, a session never downgrades within a process lifetime.
type Session struct {
	mu sync.Mutex

	handle    Handle
	app       AppInfo
	createdAt time.Time

	connection ConnectionState
	auth       AuthState
	registered bool
	native     NetworkSession
	pending    int
	freed      bool
}

func NewSession(app AppInfo) *Session {
	return &Session{
		app:        app,
		createdAt:  time.Now().UTC(),
		connection: ConnectionStateDisconnected,
		auth:       AuthStateUnauthenticated,
	}
}

func (s *Session) Handle() Handle {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

func (s *Session) App() AppInfo {
	if s == nil {
		return AppInfo{}
	}
	return s.app
}

func (s *Session) setHandle(handle Handle) {
	s.mu.Lock()
	s.handle = handle
	s.mu.Unlock()
}

func (s *Session) State() NetworkStateInfo {
	if s == nil {
		return NetworkStateInfo{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return NetworkStateInfo{
		Connection: s.connection,
		Auth:       s.auth,
		Registered: s.registered,
	}
}

func (s *Session) Phase() SessionPhase {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.freed:
		return SessionPhaseFreed
	case s.connection == ConnectionStateConnected && s.registered:
		return SessionPhaseConnectedRegistered
	case s.connection == ConnectionStateConnected:
		return SessionPhaseConnectedUnregistered
	case s.pending > 0:
		return SessionPhaseAwaitingAuthorization
	default:
		return SessionPhaseCreated
	}
}

// attachAnonymous installs a read-only network session. Rejected once the
// session is authenticated: auth state never moves backward.
func (s *Session) attachAnonymous(native NetworkSession) error {
	if s == nil || native == nil {
		return fmt.Errorf("%w: no session", ErrInvalidSession)
	}
	s.mu.Lock()
	if s.freed {
		s.mu.Unlock()
		return fmt.Errorf("%w: session is freed", ErrInvalidSession)
	}
	if s.auth == AuthStateAuthenticated {
		s.mu.Unlock()
		return fmt.Errorf("%w: session is already authenticated", ErrInvalidSession)
	}
	previous := s.native
	s.native = native
	s.connection = ConnectionStateConnected
	s.registered = false
	s.mu.Unlock()

	if previous != nil {
		previous.Release()
	}
	return nil
}

// attachRegistered installs an authenticated network session, replacing and
// releasing any previous one. Calling it again with a different valid URI's
// session re-authenticates.
func (s *Session) attachRegistered(native NetworkSession) error {
	if s == nil || native == nil {
		return fmt.Errorf("%w: no session", ErrInvalidSession)
	}
	s.mu.Lock()
	if s.freed {
		s.mu.Unlock()
		return fmt.Errorf("%w: session is freed", ErrInvalidSession)
	}
	previous := s.native
	s.native = native
	s.connection = ConnectionStateConnected
	s.auth = AuthStateAuthenticated
	s.registered = true
	s.mu.Unlock()

	if previous != nil {
		previous.Release()
	}
	return nil
}

func (s *Session) beginAuthorization() {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
}

func (s *Session) endAuthorization() {
	s.mu.Lock()
	if s.pending > 0 {
		s.pending--
	}
	s.mu.Unlock()
}

// activeSession returns the live network session, failing when the session
// has no connection yet.
func (s *Session) activeSession() (NetworkSession, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: no session", ErrInvalidSession)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.freed {
		return nil, fmt.Errorf("%w: session is freed", ErrInvalidSession)
	}
	if s.connection != ConnectionStateConnected || s.native == nil {
		return nil, fmt.Errorf("%w: session is not connected", ErrInvalidSession)
	}
	return s.native, nil
}

// Release frees the session's network connection. Handles owned by this
// session are not cascade-freed; the caller owns those frees.
func (s *Session) Release() {
	if s == nil {
		return
	}
	s.mu.Lock()
	native := s.native
	s.native = nil
	s.connection = ConnectionStateDisconnected
	s.freed = true
	s.mu.Unlock()

	if native != nil {
		native.Release()
	}
}

var _ Releaser = (*Session)(nil)
