package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/webstone-core/internal/registry"
)

// DefaultInterval is the save interval used when none is configured.
const DefaultInterval = 30 * time.Second

// Executor runs fn on the execution loop and waits for it.
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

// Logger defines the logging interface used by the saver.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Saver writes the directory to a Store whenever it is dirty.
type Saver struct {
	exec     Executor
	dir      *registry.Directory
	store    Store
	interval time.Duration
	logger   Logger
}

// NewSaver creates a saver. A non-positive interval uses DefaultInterval.
func NewSaver(exec Executor, dir *registry.Directory, store Store, interval time.Duration) *Saver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Saver{
		exec:     exec,
		dir:      dir,
		store:    store,
		interval: interval,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the saver.
func (s *Saver) SetLogger(logger Logger) {
	s.logger = logger
}

// Run saves every interval until ctx is cancelled. It does not perform the
// final save; call Flush for that once the connections are gone.
func (s *Saver) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Flush(ctx); err != nil {
				s.logger.Error("snapshot save failed", "error", err)
			}
		}
	}
}

// Flush saves the directory if it is dirty and reports whether a save was
// written. A failed write marks the directory dirty again.
func (s *Saver) Flush(ctx context.Context) (bool, error) {
	var (
		state registry.State
		dirty bool
	)
	if err := s.exec.Do(ctx, func() {
		if dirty = s.dir.TakeDirty(); dirty {
			state = s.dir.State()
		}
	}); err != nil {
		return false, fmt.Errorf("capturing snapshot: %w", err)
	}
	if !dirty {
		return false, nil
	}

	start := time.Now()
	if err := s.store.Save(ctx, state); err != nil {
		if markErr := s.exec.Do(context.WithoutCancel(ctx), s.dir.MarkDirty); markErr != nil {
			s.logger.Warn("could not re-mark directory dirty", "error", markErr)
		}
		return false, fmt.Errorf("saving snapshot: %w", err)
	}
	s.logger.Debug("snapshot saved",
		"registries", len(state.Registries),
		"duration", time.Since(start),
	)
	return true, nil
}

// Load restores the directory from store. It must run before the execution
// loop starts, or on it.
func Load(ctx context.Context, store Store, dir *registry.Directory) error {
	state, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if err := dir.Restore(state); err != nil {
		return fmt.Errorf("restoring snapshot: %w", err)
	}
	return nil
}
