package registry

import (
	"slices"

	"github.com/google/uuid"
)

// Group is an ordered, named set of block ids within one registry.
type Group struct {
	id      uuid.UUID
	name    string
	members []uuid.UUID
}

// NewGroup creates an empty group with a fresh random id.
func NewGroup(name string) *Group {
	return &Group{
		id:   uuid.New(),
		name: NormalizeName(name),
	}
}

// ID returns the group's identifier.
func (g *Group) ID() uuid.UUID { return g.id }

// Name returns the display name.
func (g *Group) Name() string { return g.name }

// SetName normalises and stores name. Reports whether the name changed.
func (g *Group) SetName(name string) bool {
	name = NormalizeName(name)
	if name == g.name {
		return false
	}
	g.name = name
	return true
}

// MemberIDs returns a copy of the ordered member list.
func (g *Group) MemberIDs() []uuid.UUID {
	return slices.Clone(g.members)
}

// Len returns the number of members.
func (g *Group) Len() int { return len(g.members) }

// Contains reports whether id is a member.
func (g *Group) Contains(id uuid.UUID) bool {
	return slices.Contains(g.members, id)
}

// AddBlock appends b to the group.
// It fails when b already belongs to any group.
func (g *Group) AddBlock(b *Block) bool {
	return g.InsertBlock(b, len(g.members))
}

// InsertBlock adds b at index, clamped to [0, Len()].
// It fails when b already belongs to any group.
func (g *Group) InsertBlock(b *Block, index int) bool {
	if b == nil || b.groupID != uuid.Nil || g.Contains(b.id) {
		return false
	}
	index = clampIndex(index, len(g.members))
	g.members = slices.Insert(g.members, index, b.id)
	b.groupID = g.id
	return true
}

// RemoveBlock detaches b from the group.
// It fails when b is not a member or b records a different group.
func (g *Group) RemoveBlock(b *Block) bool {
	if b == nil || b.groupID != g.id {
		return false
	}
	i := slices.Index(g.members, b.id)
	if i < 0 {
		return false
	}
	g.members = slices.Delete(g.members, i, i+1)
	b.groupID = uuid.Nil
	return true
}

// MoveBlock re-positions b within the group. When b is not a member the
// group is left untouched and false is returned.
func (g *Group) MoveBlock(b *Block, index int) bool {
	if !g.RemoveBlock(b) {
		return false
	}
	return g.InsertBlock(b, index)
}

// detachAll removes every member, given a lookup for the member blocks.
// Members that cannot be resolved are dropped from the list as well.
func (g *Group) detachAll(lookup func(uuid.UUID) *Block) []*Block {
	detached := make([]*Block, 0, len(g.members))
	for _, id := range g.MemberIDs() {
		b := lookup(id)
		if b != nil && g.RemoveBlock(b) {
			detached = append(detached, b)
		}
	}
	g.members = nil
	return detached
}

func clampIndex(index, n int) int {
	return min(max(index, 0), n)
}
