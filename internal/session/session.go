package session

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// AuthTimeout is the default time a connection has to authenticate.
const AuthTimeout = 15 * time.Second

// State is a session's position in the handshake.
type State int

// Session states.
const (
	StateNone State = iota
	StateAuthenticated
	StateSubscribed
)

// String returns the state's wire-style name.
func (s State) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateSubscribed:
		return "SUBSCRIBED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is one live client connection's protocol state.
type Session struct {
	id         uuid.UUID
	state      State
	registryID uuid.UUID
	expireAt   time.Time
	deadline   *Deadline
}

// New creates a session in StateNone whose authentication deadline is
// now+timeout. onExpire runs on the timer goroutine if the deadline passes
// before CommitAuthenticated.
func New(now time.Time, timeout time.Duration, onExpire func()) *Session {
	if timeout <= 0 {
		timeout = AuthTimeout
	}
	return &Session{
		id:       uuid.New(),
		state:    StateNone,
		expireAt: now.Add(timeout).UTC(),
		deadline: NewDeadline(timeout, onExpire),
	}
}

// ID returns the socket id announced in WELCOME.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the current state.
func (s *Session) State() State { return s.state }

// ExpireAt returns the authentication deadline announced in WELCOME.
func (s *Session) ExpireAt() time.Time { return s.expireAt }

// SubscribedRegistry returns the registry the session is bound to.
func (s *Session) SubscribedRegistry() (uuid.UUID, bool) {
	return s.registryID, s.state == StateSubscribed
}

// CommitAuthenticated moves NONE to AUTHENTICATED and then cancels the
// deadline. The order matters: an expiry that fires in between finds the
// session already authenticated.
func (s *Session) CommitAuthenticated() error {
	if s.state != StateNone {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, StateAuthenticated)
	}
	s.state = StateAuthenticated
	s.deadline.Stop()
	return nil
}

// Subscribe binds an authenticated session to registryID. A subscribed
// session must Unsubscribe first.
func (s *Session) Subscribe(registryID uuid.UUID) error {
	if s.state != StateAuthenticated {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, StateSubscribed)
	}
	s.state = StateSubscribed
	s.registryID = registryID
	return nil
}

// Unsubscribe releases the subscription and returns the registry it held.
func (s *Session) Unsubscribe() (uuid.UUID, bool) {
	if s.state != StateSubscribed {
		return uuid.Nil, false
	}
	id := s.registryID
	s.state = StateAuthenticated
	s.registryID = uuid.Nil
	return id, true
}

// Expired reports whether an expiry should close the session, that is
// whether it is still unauthenticated.
func (s *Session) Expired() bool { return s.state == StateNone }

// Close cancels any pending deadline.
func (s *Session) Close() { s.deadline.Stop() }

// Deadline is a one-shot timer that can be stopped exactly once.
// Stop after the timer fired, or a second Stop, is a no-op.
type Deadline struct {
	timer   *time.Timer
	stopped atomic.Bool
}

// NewDeadline arms a deadline that calls fn after d unless stopped first.
func NewDeadline(d time.Duration, fn func()) *Deadline {
	dl := &Deadline{}
	dl.timer = time.AfterFunc(d, func() {
		if !dl.stopped.CompareAndSwap(false, true) {
			return
		}
		if fn != nil {
			fn()
		}
	})
	return dl
}

// Stop cancels the deadline. It reports whether this call did the
// cancelling.
func (dl *Deadline) Stop() bool {
	if !dl.stopped.CompareAndSwap(false, true) {
		return false
	}
	dl.timer.Stop()
	return true
}
