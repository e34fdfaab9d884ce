package registry

import (
	"fmt"
	"maps"

	"github.com/google/uuid"
)

// State is a self-contained copy of a Directory, suitable for persistence.
type State struct {
	Registries []RegistryState       `json:"registries"`
	Contexts   map[uuid.UUID]Context `json:"contexts"`
}

// RegistryState is the persisted form of a Registry.
type RegistryState struct {
	ID             uuid.UUID    `json:"id"`
	OwnerName      string       `json:"ownerName,omitempty"`
	PassphraseHash string       `json:"passphraseHash,omitempty"`
	Blocks         []BlockState `json:"blocks"`
	Groups         []GroupState `json:"groups"`
}

// BlockState is the persisted form of a Block. GroupID is uuid.Nil when ungrouped.
type BlockState struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Powered bool      `json:"powered"`
	Power   int       `json:"power"`
	GroupID uuid.UUID `json:"groupId"`
}

// GroupState is the persisted form of a Group.
type GroupState struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	MemberIDs []uuid.UUID `json:"memberIds"`
}

// State copies the directory. It does not mutate anything, including the dirty flag.
func (d *Directory) State() State {
	s := State{
		Registries: make([]RegistryState, 0, len(d.order)),
		Contexts:   maps.Clone(d.contexts),
	}
	for _, r := range d.Registries() {
		rs := RegistryState{
			ID:             r.id,
			OwnerName:      r.ownerName,
			PassphraseHash: r.passphraseHash,
			Blocks:         make([]BlockState, 0, len(r.blocks)),
			Groups:         make([]GroupState, 0, len(r.groups)),
		}
		for _, b := range r.blocks {
			rs.Blocks = append(rs.Blocks, BlockState{
				ID:      b.id,
				Name:    b.name,
				Powered: b.powered,
				Power:   b.power,
				GroupID: b.groupID,
			})
		}
		for _, g := range r.groups {
			rs.Groups = append(rs.Groups, GroupState{
				ID:        g.id,
				Name:      g.name,
				MemberIDs: append(make([]uuid.UUID, 0, len(g.members)), g.members...),
			})
		}
		s.Registries = append(s.Registries, rs)
	}
	return s
}

// Restore replaces the directory's contents with s.
//
// Membership is rebuilt so both sides agree: a group keeps a member only when
// the block exists in the same registry and records that group, and a block
// recording an existing group but missing from its list is appended to it.
// Group ids that do not exist are dropped. The public registry is always
// present afterwards. On error the directory is left unchanged.
func (d *Directory) Restore(s State) error {
	next := &Directory{}
	next.reset()

	seenBlocks := make(map[uuid.UUID]bool)
	seenGroups := make(map[uuid.UUID]bool)

	for _, rs := range s.Registries {
		r, ok := next.registries[rs.ID]
		if !ok {
			r = newRegistry(rs.ID, d)
			next.insert(r)
		}
		r.dirty = d
		r.ownerName = rs.OwnerName
		r.passphraseHash = rs.PassphraseHash

		for _, gs := range rs.Groups {
			if seenGroups[gs.ID] {
				return fmt.Errorf("%w: %s", ErrDuplicateGroup, gs.ID)
			}
			seenGroups[gs.ID] = true
			r.groups = append(r.groups, &Group{id: gs.ID, name: NormalizeName(gs.Name)})
		}

		wanted := make(map[uuid.UUID]uuid.UUID, len(rs.Blocks))
		for _, bs := range rs.Blocks {
			if seenBlocks[bs.ID] {
				return fmt.Errorf("%w: %s", ErrDuplicateBlock, bs.ID)
			}
			seenBlocks[bs.ID] = true
			b := NewBlock(bs.ID, bs.Name, bs.Powered, bs.Power)
			b.registryID = r.id
			b.registered = true
			r.blocks = append(r.blocks, b)
			if bs.GroupID != uuid.Nil {
				wanted[bs.ID] = bs.GroupID
			}
		}

		for _, gs := range rs.Groups {
			g := r.GroupByID(gs.ID)
			for _, id := range gs.MemberIDs {
				if wanted[id] == g.id {
					g.AddBlock(r.BlockByID(id))
				}
			}
		}
		for _, b := range r.blocks {
			gid, ok := wanted[b.id]
			if !ok || b.groupID != uuid.Nil {
				continue
			}
			if g := r.GroupByID(gid); g != nil {
				g.AddBlock(b)
			}
		}
	}

	// reset bound the public registry to next; rebind it to d.
	next.registries[PublicID].dirty = d

	for owner, c := range s.Contexts {
		next.contexts[owner] = c
	}

	d.registries = next.registries
	d.order = next.order
	d.contexts = next.contexts
	d.dirty.Store(false)
	return nil
}
