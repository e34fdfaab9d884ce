package registry

import (
	"strings"

	"github.com/google/uuid"
)

// Limits applied to block attributes.
const (
	// MaxNameLength is the maximum length of a block or group name, in characters.
	MaxNameLength = 64

	// MinPower and MaxPower bound a block's power level.
	MinPower = 0
	MaxPower = 15

	// DefaultBlockName is given to newly registered blocks.
	DefaultBlockName = "Example"
)

// Block is a single addressable switch.
//
// The id is immutable. registryID and groupID are only changed by Registry
// and Group methods so that both sides of each relationship stay in step.
type Block struct {
	id         uuid.UUID
	name       string
	powered    bool
	power      int
	registryID uuid.UUID
	registered bool
	groupID    uuid.UUID // uuid.Nil when ungrouped
}

// NewBlock creates an unregistered, ungrouped block.
// The name is normalised and the power clamped.
func NewBlock(id uuid.UUID, name string, powered bool, power int) *Block {
	return &Block{
		id:      id,
		name:    NormalizeName(name),
		powered: powered,
		power:   ClampPower(power),
	}
}

// ID returns the block's identifier.
func (b *Block) ID() uuid.UUID { return b.id }

// Name returns the display name.
func (b *Block) Name() string { return b.name }

// Powered reports whether the switch is on.
func (b *Block) Powered() bool { return b.powered }

// Power returns the level in [MinPower, MaxPower].
func (b *Block) Power() int { return b.power }

// RegistryID returns the owning registry and whether the block is registered at all.
func (b *Block) RegistryID() (uuid.UUID, bool) { return b.registryID, b.registered }

// GroupID returns the owning group and whether the block is grouped.
func (b *Block) GroupID() (uuid.UUID, bool) { return b.groupID, b.groupID != uuid.Nil }

// SetName normalises and stores name. Reports whether the name changed.
func (b *Block) SetName(name string) bool {
	name = NormalizeName(name)
	if name == b.name {
		return false
	}
	b.name = name
	return true
}

// SetPowered reports whether the state changed.
func (b *Block) SetPowered(powered bool) bool {
	if powered == b.powered {
		return false
	}
	b.powered = powered
	return true
}

// SetPower clamps power into range and reports whether the level changed.
func (b *Block) SetPower(power int) bool {
	power = ClampPower(power)
	if power == b.power {
		return false
	}
	b.power = power
	return true
}

// ClampPower limits power to [MinPower, MaxPower].
func ClampPower(power int) int {
	return min(max(power, MinPower), MaxPower)
}

// NormalizeName truncates name to MaxNameLength characters and then trims
// surrounding whitespace.
func NormalizeName(name string) string {
	if r := []rune(name); len(r) > MaxNameLength {
		name = string(r[:MaxNameLength])
	}
	return strings.TrimSpace(name)
}
