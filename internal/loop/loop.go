package loop

import (
	"context"
	"fmt"
	"sync"
)

// DefaultQueueSize is the task queue capacity used when New is given zero.
const DefaultQueueSize = 256

// Logger defines the logging interface used by the loop.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Loop runs submitted tasks one at a time, in submission order.
//
// Thread Safety: Submit, Do and Close are safe for concurrent use.
// Run must be called exactly once.
type Loop struct {
	tasks chan func()

	// closing is closed when the loop stops accepting work.
	closing   chan struct{}
	closeOnce sync.Once
	done      chan struct{}

	logger Logger
}

// New creates a loop with a bounded task queue.
func New(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Loop{
		tasks:   make(chan func(), queueSize),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the loop.
func (l *Loop) SetLogger(logger Logger) {
	l.logger = logger
}

// Run executes tasks until ctx is cancelled or Close is called.
// Tasks still queued at that point are run before Run returns, so shutdown
// work submitted before Close is not lost.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	l.logger.Debug("execution loop started", "queue_size", cap(l.tasks))

	for {
		select {
		case task := <-l.tasks:
			l.run(task)
		case <-ctx.Done():
			l.Close()
			l.drain()
			return
		case <-l.closing:
			l.drain()
			return
		}
	}
}

// drain runs whatever is already queued.
func (l *Loop) drain() {
	for {
		select {
		case task := <-l.tasks:
			l.run(task)
		default:
			l.logger.Debug("execution loop stopped")
			return
		}
	}
}

func (l *Loop) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop task panicked", "panic", fmt.Sprint(r))
		}
	}()
	task()
}

// Submit queues fn and returns without waiting for it to run.
// It blocks while the queue is full and fails with ErrClosed once the loop
// has stopped.
func (l *Loop) Submit(fn func()) error {
	select {
	case <-l.closing:
		return ErrClosed
	default:
	}

	select {
	case l.tasks <- fn:
		return nil
	case <-l.closing:
		return ErrClosed
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Submit(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		// The task may have been drained just before the loop exited.
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop from accepting new work. Safe to call more than once.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.closing)
	})
}

// Done is closed after Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
