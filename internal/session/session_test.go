package session

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSession_Handshake(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New(now, 15*time.Second, nil)
	defer s.Close()

	if s.State() != StateNone {
		t.Fatalf("initial state = %s", s.State())
	}
	if want := now.Add(15 * time.Second); !s.ExpireAt().Equal(want) {
		t.Errorf("ExpireAt() = %v, want %v", s.ExpireAt(), want)
	}

	reg := uuid.New()
	if err := s.Subscribe(reg); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Subscribe() before auth error = %v, want ErrInvalidTransition", err)
	}

	if err := s.CommitAuthenticated(); err != nil {
		t.Fatalf("CommitAuthenticated() error = %v", err)
	}
	if err := s.CommitAuthenticated(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second CommitAuthenticated() error = %v", err)
	}

	if err := s.Subscribe(reg); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if got, ok := s.SubscribedRegistry(); !ok || got != reg {
		t.Errorf("SubscribedRegistry() = %v, %v", got, ok)
	}
	if err := s.Subscribe(uuid.New()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Subscribe() while subscribed error = %v", err)
	}

	if got, ok := s.Unsubscribe(); !ok || got != reg {
		t.Errorf("Unsubscribe() = %v, %v", got, ok)
	}
	if s.State() != StateAuthenticated {
		t.Errorf("state after unsubscribe = %s", s.State())
	}
	if _, ok := s.Unsubscribe(); ok {
		t.Error("second Unsubscribe() should report false")
	}
}

func TestSession_DeadlineFires(t *testing.T) {
	fired := make(chan struct{})
	s := New(time.Now(), 10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("deadline did not fire")
	}
	if !s.Expired() {
		t.Error("unauthenticated session should report expired")
	}
	s.Close()
}

func TestSession_AuthenticationCancelsDeadline(t *testing.T) {
	var fired atomic.Bool
	s := New(time.Now(), 30*time.Millisecond, func() { fired.Store(true) })

	if err := s.CommitAuthenticated(); err != nil {
		t.Fatalf("CommitAuthenticated() error = %v", err)
	}
	time.Sleep(80 * time.Millisecond)

	if fired.Load() {
		t.Error("deadline fired after authentication")
	}
	if s.Expired() {
		t.Error("authenticated session should not report expired")
	}
}

func TestDeadline_StopExactlyOnce(t *testing.T) {
	var calls atomic.Int32
	dl := NewDeadline(time.Hour, func() { calls.Add(1) })

	if !dl.Stop() {
		t.Error("first Stop() should report true")
	}
	if dl.Stop() {
		t.Error("second Stop() should report false")
	}

	fired := make(chan struct{})
	dl = NewDeadline(time.Millisecond, func() { close(fired) })
	<-fired
	if dl.Stop() {
		t.Error("Stop() after firing should report false")
	}
	if calls.Load() != 0 {
		t.Errorf("stopped deadline ran %d times", calls.Load())
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateNone:          "NONE",
		StateAuthenticated: "AUTHENTICATED",
		StateSubscribed:    "SUBSCRIBED",
		State(9):           "State(9)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(s), got, want)
		}
	}
}
