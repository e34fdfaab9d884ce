package control

import (
	"github.com/google/uuid"

	"github.com/nerrad567/webstone-core/internal/registry"
)

// Broadcaster pushes state to the sessions subscribed to a registry.
// Implementations must not block on slow sessions.
type Broadcaster interface {
	// BlockList sends the full block list of r.
	BlockList(r *registry.Registry)
	// GroupList sends the full group list of r.
	GroupList(r *registry.Registry)
	// BlockUpdated sends a single block of r.
	BlockUpdated(r *registry.Registry, b *registry.Block)
	// GroupUpdated sends a single group of r.
	GroupUpdated(r *registry.Registry, g *registry.Group)
	// RegistryList sends the registry list to every authenticated session.
	RegistryList(d *registry.Directory)
	// Retain drops subscriptions to registries d no longer holds.
	Retain(d *registry.Directory)
}

// Sink forwards client-originated changes to the host's physical blocks.
type Sink interface {
	ApplyPowerChange(blockID uuid.UUID, powered bool)
	ApplyLevelChange(blockID uuid.UUID, power int)
}

// Recorder receives every committed power or state change.
type Recorder interface {
	RecordBlockState(registryID, blockID uuid.UUID, powered bool, power int)
}

// Logger defines the logging interface used by the service.
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

// NopSink discards host-bound changes. Used when no host bridge is running.
type NopSink struct{}

func (NopSink) ApplyPowerChange(uuid.UUID, bool) {}
func (NopSink) ApplyLevelChange(uuid.UUID, int)  {}

type nopRecorder struct{}

func (nopRecorder) RecordBlockState(uuid.UUID, uuid.UUID, bool, int) {}

type nopBroadcaster struct{}

func (nopBroadcaster) BlockList(*registry.Registry)                     {}
func (nopBroadcaster) GroupList(*registry.Registry)                     {}
func (nopBroadcaster) BlockUpdated(*registry.Registry, *registry.Block) {}
func (nopBroadcaster) GroupUpdated(*registry.Registry, *registry.Group) {}
func (nopBroadcaster) RegistryList(*registry.Directory)                 {}
func (nopBroadcaster) Retain(*registry.Directory)                       {}
