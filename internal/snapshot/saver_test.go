package snapshot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/webstone-core/internal/loop"
	"github.com/nerrad567/webstone-core/internal/registry"
)

// memStore is an in-memory Store that can be told to fail.
type memStore struct {
	mu    sync.Mutex
	saved []registry.State
	fail  error
}

func (m *memStore) Save(_ context.Context, s registry.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.saved = append(m.saved, s)
	return nil
}

func (m *memStore) Load(context.Context) (registry.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return registry.State{}, nil
	}
	return m.saved[len(m.saved)-1], nil
}

func (m *memStore) saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func startLoop(t *testing.T) *loop.Loop {
	t.Helper()
	l := loop.New(16)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l
}

func TestSaver_FlushOnlyWhenDirty(t *testing.T) {
	l := startLoop(t)
	dir := registry.NewDirectory()
	store := &memStore{}
	s := NewSaver(l, dir, store, time.Hour)
	ctx := context.Background()

	if saved, err := s.Flush(ctx); err != nil || saved {
		t.Fatalf("Flush() on clean directory = %v, %v", saved, err)
	}

	if err := l.Do(ctx, func() { dir.GetOrCreate(uuid.New()) }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if saved, err := s.Flush(ctx); err != nil || !saved {
		t.Fatalf("Flush() on dirty directory = %v, %v", saved, err)
	}
	if dir.Dirty() {
		t.Error("directory still dirty after a successful save")
	}
	if got := len(store.saved[0].Registries); got != 2 {
		t.Errorf("saved %d registries, want 2", got)
	}
}

func TestSaver_FailedSaveRemarksDirty(t *testing.T) {
	l := startLoop(t)
	dir := registry.NewDirectory()
	dir.MarkDirty()
	store := &memStore{fail: errors.New("disk full")}
	s := NewSaver(l, dir, store, time.Hour)

	if _, err := s.Flush(context.Background()); err == nil {
		t.Fatal("Flush() should report the store error")
	}
	if !dir.Dirty() {
		t.Error("failed save should leave the directory dirty")
	}

	store.fail = nil
	if saved, err := s.Flush(context.Background()); err != nil || !saved {
		t.Errorf("retry Flush() = %v, %v", saved, err)
	}
}

func TestSaver_RunSavesOnInterval(t *testing.T) {
	l := startLoop(t)
	dir := registry.NewDirectory()
	dir.MarkDirty()
	store := &memStore{}
	s := NewSaver(l, dir, store, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for store.saves() == 0 {
		select {
		case <-deadline:
			t.Fatal("Run did not save a dirty directory")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if n := store.saves(); n != 1 {
		t.Errorf("saves = %d, want 1 (clean ticks must not save)", n)
	}
}

func TestSaver_ClosedLoop(t *testing.T) {
	l := loop.New(1)
	l.Close()
	dir := registry.NewDirectory()
	dir.MarkDirty()

	s := NewSaver(l, dir, &memStore{}, 0)
	if _, err := s.Flush(context.Background()); !errors.Is(err, loop.ErrClosed) {
		t.Errorf("Flush() error = %v, want loop.ErrClosed", err)
	}
	if !dir.Dirty() {
		t.Error("directory should stay dirty when the capture failed")
	}
}
