package control

import (
	"github.com/google/uuid"

	"github.com/nerrad567/webstone-core/internal/registry"
)

// Scope limits which registry a mutation may touch.
type Scope struct {
	registryID uuid.UUID
	host       bool
}

// Within returns the scope of a client subscribed to registryID.
func Within(registryID uuid.UUID) Scope {
	return Scope{registryID: registryID}
}

// HostScope returns the unrestricted scope used by host calls.
func HostScope() Scope {
	return Scope{host: true}
}

func (s Scope) allows(r *registry.Registry) bool {
	return r != nil && (s.host || r.ID() == s.registryID)
}
