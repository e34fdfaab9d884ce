package registry

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// Context selects which registry a user's newly registered blocks land in.
type Context string

// Registration contexts.
const (
	ContextPublic  Context = "PUBLIC"
	ContextPrivate Context = "PRIVATE"
)

// ParseContext accepts "public"/"private" in any case, plus the aliases
// "server" and "player".
func ParseContext(s string) (Context, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public", "server":
		return ContextPublic, nil
	case "private", "player":
		return ContextPrivate, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidContext, s)
	}
}

// Directory is the process-wide table of registries and per-user contexts.
//
// It is owned by the execution loop; see the package documentation. The
// dirty flag is the only field safe to read from other goroutines.
type Directory struct {
	registries map[uuid.UUID]*Registry
	order      []uuid.UUID
	contexts   map[uuid.UUID]Context
	dirty      atomic.Bool
}

// NewDirectory returns a directory holding only the public registry.
func NewDirectory() *Directory {
	d := &Directory{}
	d.reset()
	return d
}

func (d *Directory) reset() {
	d.registries = make(map[uuid.UUID]*Registry)
	d.order = nil
	d.contexts = make(map[uuid.UUID]Context)
	d.insert(newRegistry(PublicID, d))
}

func (d *Directory) insert(r *Registry) {
	d.registries[r.id] = r
	d.order = append(d.order, r.id)
}

// Public returns the public registry.
func (d *Directory) Public() *Registry {
	return d.registries[PublicID]
}

// Registry returns the registry for owner, or nil.
func (d *Directory) Registry(owner uuid.UUID) *Registry {
	return d.registries[owner]
}

// GetOrCreate returns the registry for owner, creating it when absent.
// created reports whether a new registry was made.
func (d *Directory) GetOrCreate(owner uuid.UUID) (reg *Registry, created bool) {
	if r, ok := d.registries[owner]; ok {
		return r, false
	}
	r := newRegistry(owner, d)
	d.insert(r)
	d.MarkDirty()
	return r, true
}

// Registries returns every registry in creation order, public first.
func (d *Directory) Registries() []*Registry {
	out := make([]*Registry, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.registries[id])
	}
	return out
}

// DisplayNames maps every registry id to its display name.
func (d *Directory) DisplayNames() map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(d.registries))
	for id, r := range d.registries {
		names[id] = r.DisplayName()
	}
	return names
}

// RegistryForBlock scans every registry for the block. Returns nil if not found.
func (d *Directory) RegistryForBlock(id uuid.UUID) *Registry {
	for _, rid := range d.order {
		if r := d.registries[rid]; r.BlockByID(id) != nil {
			return r
		}
	}
	return nil
}

// RegistryForGroup scans every registry for the group. Returns nil if not found.
func (d *Directory) RegistryForGroup(id uuid.UUID) *Registry {
	for _, rid := range d.order {
		if r := d.registries[rid]; r.GroupByID(id) != nil {
			return r
		}
	}
	return nil
}

// ContainsBlock reports whether any registry holds the block.
func (d *Directory) ContainsBlock(id uuid.UUID) bool {
	return d.RegistryForBlock(id) != nil
}

// UserContext returns the owner's registration context, PRIVATE when unset.
func (d *Directory) UserContext(owner uuid.UUID) Context {
	if c, ok := d.contexts[owner]; ok {
		return c
	}
	return ContextPrivate
}

// SetUserContext records the owner's registration context.
func (d *Directory) SetUserContext(owner uuid.UUID, c Context) {
	d.contexts[owner] = c
	d.MarkDirty()
}

// Clear drops every user registry and context, keeping an empty public registry.
func (d *Directory) Clear() {
	d.reset()
	d.MarkDirty()
}

// MarkDirty flags the directory as needing a save.
func (d *Directory) MarkDirty() { d.dirty.Store(true) }

// Dirty reports whether a save is pending.
func (d *Directory) Dirty() bool { return d.dirty.Load() }

// TakeDirty clears the dirty flag and reports whether it was set.
func (d *Directory) TakeDirty() bool { return d.dirty.Swap(false) }
