package registry

import (
	"slices"

	"github.com/google/uuid"

	"github.com/nerrad567/webstone-core/internal/auth"
)

// PublicID is the id of the public registry shared by every user.
var PublicID = uuid.Nil

// Display names used in the registry list.
const (
	PublicName  = "Public Blocks"
	UnknownName = "Unknown Block List"
)

// dirtyMarker is notified whenever a registry mutates.
type dirtyMarker interface {
	MarkDirty()
}

// Registry is one ownership scope holding an ordered set of blocks and
// groups, optionally protected by a passphrase.
type Registry struct {
	id             uuid.UUID
	ownerName      string
	blocks         []*Block
	groups         []*Group
	passphraseHash string
	dirty          dirtyMarker
}

func newRegistry(id uuid.UUID, dirty dirtyMarker) *Registry {
	return &Registry{id: id, dirty: dirty}
}

// ID returns the registry id (the owner's id, or PublicID).
func (r *Registry) ID() uuid.UUID { return r.id }

// IsPublic reports whether this is the public registry.
func (r *Registry) IsPublic() bool { return r.id == PublicID }

// DisplayName returns the label shown to clients in the registry list.
func (r *Registry) DisplayName() string {
	switch {
	case r.IsPublic():
		return PublicName
	case r.ownerName != "":
		return r.ownerName
	default:
		return UnknownName
	}
}

// OwnerName returns the stored owner name, which may be empty.
func (r *Registry) OwnerName() string { return r.ownerName }

// SetOwnerName records the owner's display name.
func (r *Registry) SetOwnerName(name string) bool {
	name = NormalizeName(name)
	if name == r.ownerName {
		return false
	}
	r.ownerName = name
	r.touch()
	return true
}

// Blocks returns the ordered block list. The slice is a copy; the blocks are not.
func (r *Registry) Blocks() []*Block { return slices.Clone(r.blocks) }

// Groups returns the ordered group list. The slice is a copy; the groups are not.
func (r *Registry) Groups() []*Group { return slices.Clone(r.groups) }

// BlockByID returns the block with id, or nil.
func (r *Registry) BlockByID(id uuid.UUID) *Block {
	for _, b := range r.blocks {
		if b.id == id {
			return b
		}
	}
	return nil
}

// GroupByID returns the group with id, or nil.
func (r *Registry) GroupByID(id uuid.UUID) *Group {
	for _, g := range r.groups {
		if g.id == id {
			return g
		}
	}
	return nil
}

// GroupOf returns the group b belongs to within this registry, or nil.
func (r *Registry) GroupOf(b *Block) *Group {
	gid, ok := b.GroupID()
	if !ok {
		return nil
	}
	return r.GroupByID(gid)
}

// AddBlock appends b. It fails when b is already registered anywhere.
func (r *Registry) AddBlock(b *Block) bool {
	if b == nil || b.registered || r.BlockByID(b.id) != nil {
		return false
	}
	b.registryID = r.id
	b.registered = true
	r.blocks = append(r.blocks, b)
	r.touch()
	return true
}

// RemoveBlock removes b, detaching it from its group first if needed.
func (r *Registry) RemoveBlock(b *Block) bool {
	if b == nil {
		return false
	}
	i := slices.Index(r.blocks, b)
	if i < 0 {
		return false
	}
	if g := r.GroupOf(b); g != nil {
		g.RemoveBlock(b)
	}
	r.blocks = slices.Delete(r.blocks, i, i+1)
	b.registered = false
	b.registryID = uuid.Nil
	r.touch()
	return true
}

// MoveBlock re-positions b within the registry's block order.
func (r *Registry) MoveBlock(b *Block, index int) bool {
	i := slices.Index(r.blocks, b)
	if i < 0 {
		return false
	}
	index = clampIndex(index, len(r.blocks)-1)
	if index == i {
		return false
	}
	r.blocks = slices.Delete(r.blocks, i, i+1)
	r.blocks = slices.Insert(r.blocks, index, b)
	r.touch()
	return true
}

// AddGroup appends g. It fails on a duplicate id.
func (r *Registry) AddGroup(g *Group) bool {
	if g == nil || r.GroupByID(g.id) != nil {
		return false
	}
	r.groups = append(r.groups, g)
	r.touch()
	return true
}

// RemoveGroup detaches every member of g and then removes g.
// It returns the blocks that were detached.
func (r *Registry) RemoveGroup(g *Group) ([]*Block, bool) {
	i := slices.Index(r.groups, g)
	if i < 0 {
		return nil, false
	}
	detached := g.detachAll(r.BlockByID)
	r.groups = slices.Delete(r.groups, i, i+1)
	r.touch()
	return detached, true
}

// MoveGroup re-positions g within the registry's group order.
func (r *Registry) MoveGroup(g *Group, index int) bool {
	i := slices.Index(r.groups, g)
	if i < 0 {
		return false
	}
	index = clampIndex(index, len(r.groups)-1)
	if index == i {
		return false
	}
	r.groups = slices.Delete(r.groups, i, i+1)
	r.groups = slices.Insert(r.groups, index, g)
	r.touch()
	return true
}

// SetPassphrase hashes plaintext and stores the hash. The plaintext is not kept.
func (r *Registry) SetPassphrase(plaintext string) error {
	hash, err := auth.HashPassphrase(plaintext)
	if err != nil {
		return err
	}
	r.passphraseHash = hash
	r.touch()
	return nil
}

// SetPassphraseHash stores an already-hashed passphrase. An empty hash opens the registry.
func (r *Registry) SetPassphraseHash(hash string) {
	r.passphraseHash = hash
	r.touch()
}

// PassphraseHash returns the stored hash, which may be empty.
func (r *Registry) PassphraseHash() string { return r.passphraseHash }

// ComparePassphrase reports whether candidate unlocks the registry.
// An open registry accepts any candidate.
func (r *Registry) ComparePassphrase(candidate string) bool {
	if r.passphraseHash == "" {
		return true
	}
	return auth.VerifyPassphrase(candidate, r.passphraseHash)
}

func (r *Registry) touch() {
	if r.dirty != nil {
		r.dirty.MarkDirty()
	}
}
