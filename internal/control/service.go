package control

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/nerrad567/webstone-core/internal/auth"
	"github.com/nerrad567/webstone-core/internal/registry"
)

// Advisory messages returned to the host when a registration is refused.
const (
	AdvisoryAlreadyRegistered = "Block is already registered."
	AdvisoryNoRegistry        = "Your personal block registry has not been set up."
	AdvisorySetUpRegistry     = `Use "genpass" or "setpass" to set it up.`
	AdvisoryUsePublic         = `Use "context public" to register public blocks instead.`
)

// Service is the single entry point for registry mutations.
//
// Thread Safety: none. All methods run on the execution loop.
type Service struct {
	dir      *registry.Directory
	bus      Broadcaster
	sink     Sink
	recorder Recorder
	logger   Logger
}

// New creates a service over dir. A nil bus discards broadcasts.
func New(dir *registry.Directory, bus Broadcaster) *Service {
	if bus == nil {
		bus = nopBroadcaster{}
	}
	return &Service{
		dir:      dir,
		bus:      bus,
		sink:     NopSink{},
		recorder: nopRecorder{},
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetSink sets the host sink that receives client-originated changes.
func (s *Service) SetSink(sink Sink) {
	s.sink = sink
}

// SetRecorder sets the telemetry recorder.
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// Directory returns the directory the service mutates.
func (s *Service) Directory() *registry.Directory {
	return s.dir
}

// block resolves blockID to its registry and block, enforcing scope.
func (s *Service) block(scope Scope, blockID uuid.UUID) (*registry.Registry, *registry.Block) {
	r := s.dir.RegistryForBlock(blockID)
	if r == nil {
		return nil, nil
	}
	if !scope.allows(r) {
		s.logger.Debug("mutation outside subscribed registry ignored",
			"block_id", blockID, "registry_id", r.ID())
		return nil, nil
	}
	return r, r.BlockByID(blockID)
}

// group resolves groupID to its registry and group, enforcing scope.
func (s *Service) group(scope Scope, groupID uuid.UUID) (*registry.Registry, *registry.Group) {
	r := s.dir.RegistryForGroup(groupID)
	if r == nil {
		return nil, nil
	}
	if !scope.allows(r) {
		s.logger.Debug("mutation outside subscribed registry ignored",
			"group_id", groupID, "registry_id", r.ID())
		return nil, nil
	}
	return r, r.GroupByID(groupID)
}

// SetBlockState toggles a block from a client and forwards it to the host.
func (s *Service) SetBlockState(scope Scope, blockID uuid.UUID, powered bool) bool {
	r, b := s.block(scope, blockID)
	if b == nil || !b.SetPowered(powered) {
		return false
	}
	s.sink.ApplyPowerChange(b.ID(), b.Powered())
	s.committed(r, b)
	return true
}

// SetBlockPower sets a block's level from a client and forwards it to the
// host. power is clamped to [MinPower, MaxPower].
func (s *Service) SetBlockPower(scope Scope, blockID uuid.UUID, power int) bool {
	r, b := s.block(scope, blockID)
	if b == nil || !b.SetPower(power) {
		return false
	}
	s.sink.ApplyLevelChange(b.ID(), b.Power())
	s.committed(r, b)
	return true
}

// NotifyBlockState applies a state change reported by the host.
// The sink is not called back.
func (s *Service) NotifyBlockState(blockID uuid.UUID, powered bool) bool {
	r, b := s.block(HostScope(), blockID)
	if b == nil || !b.SetPowered(powered) {
		return false
	}
	s.committed(r, b)
	return true
}

// NotifyBlockPower applies a level change reported by the host.
func (s *Service) NotifyBlockPower(blockID uuid.UUID, power int) bool {
	r, b := s.block(HostScope(), blockID)
	if b == nil || !b.SetPower(power) {
		return false
	}
	s.committed(r, b)
	return true
}

// committed finishes a power or state change.
func (s *Service) committed(r *registry.Registry, b *registry.Block) {
	s.dir.MarkDirty()
	s.recorder.RecordBlockState(r.ID(), b.ID(), b.Powered(), b.Power())
	s.bus.BlockUpdated(r, b)
}

// RenameBlock renames a block. The name is truncated and trimmed.
func (s *Service) RenameBlock(scope Scope, blockID uuid.UUID, name string) bool {
	r, b := s.block(scope, blockID)
	if b == nil || !b.SetName(name) {
		return false
	}
	s.dir.MarkDirty()
	s.bus.BlockUpdated(r, b)
	return true
}

// UnregisterBlock detaches a block from its group, then removes it from
// its registry.
func (s *Service) UnregisterBlock(scope Scope, blockID uuid.UUID) bool {
	r, b := s.block(scope, blockID)
	if b == nil {
		return false
	}
	if g := r.GroupOf(b); g != nil && g.RemoveBlock(b) {
		s.bus.GroupUpdated(r, g)
	}
	if !r.RemoveBlock(b) {
		return false
	}
	s.dir.MarkDirty()
	s.bus.BlockList(r)
	s.logger.Info("block unregistered", "block_id", blockID, "registry_id", r.ID())
	return true
}

// ChangeBlockGroup moves a block into groupID, or out of any group when
// groupID is uuid.Nil. The target group must be in the block's registry.
func (s *Service) ChangeBlockGroup(scope Scope, blockID, groupID uuid.UUID) bool {
	r, b := s.block(scope, blockID)
	if b == nil {
		return false
	}
	current := r.GroupOf(b)

	if groupID == uuid.Nil {
		if current == nil || !current.RemoveBlock(b) {
			return false
		}
		s.dir.MarkDirty()
		s.bus.GroupUpdated(r, current)
		s.bus.BlockUpdated(r, b)
		return true
	}

	target := r.GroupByID(groupID)
	if target == nil || target == current {
		return false
	}
	if current != nil && !current.RemoveBlock(b) {
		return false
	}
	if !target.AddBlock(b) {
		return false
	}

	s.dir.MarkDirty()
	if current != nil {
		s.bus.GroupUpdated(r, current)
	}
	s.bus.GroupUpdated(r, target)
	s.bus.BlockUpdated(r, b)
	return true
}

// ChangeBlockIndex re-orders a block: within its group when grouped,
// otherwise within the registry's block list. index is clamped.
func (s *Service) ChangeBlockIndex(scope Scope, blockID uuid.UUID, index int) bool {
	r, b := s.block(scope, blockID)
	if b == nil {
		return false
	}

	if g := r.GroupOf(b); g != nil {
		before := g.MemberIDs()
		if !g.MoveBlock(b, index) {
			return false
		}
		if slices.Equal(before, g.MemberIDs()) {
			return false
		}
		s.dir.MarkDirty()
		s.bus.GroupUpdated(r, g)
		return true
	}

	if !r.MoveBlock(b, index) {
		return false
	}
	s.bus.BlockList(r)
	return true
}

// CreateGroup adds an empty group to registryID.
func (s *Service) CreateGroup(registryID uuid.UUID, name string) *registry.Group {
	r := s.dir.Registry(registryID)
	if r == nil {
		return nil
	}
	g := registry.NewGroup(name)
	if !r.AddGroup(g) {
		return nil
	}
	s.bus.GroupList(r)
	return g
}

// RenameGroup renames a group. The name is truncated and trimmed.
func (s *Service) RenameGroup(scope Scope, groupID uuid.UUID, name string) bool {
	r, g := s.group(scope, groupID)
	if g == nil || !g.SetName(name) {
		return false
	}
	s.dir.MarkDirty()
	s.bus.GroupUpdated(r, g)
	return true
}

// DeleteGroup detaches every member and removes the group.
func (s *Service) DeleteGroup(scope Scope, groupID uuid.UUID) bool {
	r, g := s.group(scope, groupID)
	if g == nil {
		return false
	}
	if _, ok := r.RemoveGroup(g); !ok {
		return false
	}
	s.bus.GroupList(r)
	s.bus.BlockList(r)
	return true
}

// ChangeGroupIndex re-orders a group within its registry. index is clamped.
func (s *Service) ChangeGroupIndex(scope Scope, groupID uuid.UUID, index int) bool {
	r, g := s.group(scope, groupID)
	if g == nil || !r.MoveGroup(g, index) {
		return false
	}
	s.bus.GroupList(r)
	return true
}

// RegisterBlock places a new block for ownerID according to the owner's
// registration context. When the block is refused the returned advisories
// explain why.
func (s *Service) RegisterBlock(blockID, ownerID uuid.UUID, ownerName string, powered bool, power int) (advisories []string, ok bool) {
	if s.dir.ContainsBlock(blockID) {
		return []string{AdvisoryAlreadyRegistered}, false
	}

	var r *registry.Registry
	switch s.dir.UserContext(ownerID) {
	case registry.ContextPublic:
		r = s.dir.Public()
	default:
		r = s.dir.Registry(ownerID)
		if r == nil {
			return []string{AdvisoryNoRegistry, AdvisorySetUpRegistry, AdvisoryUsePublic}, false
		}
	}

	b := registry.NewBlock(blockID, registry.DefaultBlockName, powered, power)
	if !r.AddBlock(b) {
		return []string{AdvisoryAlreadyRegistered}, false
	}
	s.dir.MarkDirty()

	if !r.IsPublic() && ownerName != "" && r.SetOwnerName(ownerName) {
		s.bus.RegistryList(s.dir)
	}
	s.bus.BlockList(r)

	s.logger.Info("block registered", "block_id", blockID, "registry_id", r.ID())
	return nil, true
}

// SetUserContext records where ownerID's new blocks are registered.
func (s *Service) SetUserContext(ownerID uuid.UUID, c registry.Context) {
	s.dir.SetUserContext(ownerID, c)
}

// SetPassphrase creates ownerID's registry if needed and protects it with
// plaintext.
func (s *Service) SetPassphrase(ownerID uuid.UUID, plaintext string) error {
	hash, err := auth.HashPassphrase(plaintext)
	if err != nil {
		return fmt.Errorf("setting passphrase: %w", err)
	}
	s.SetPassphraseHash(ownerID, hash)
	return nil
}

// SetPassphraseHash is SetPassphrase for a hash computed off the loop.
// A new registry re-broadcasts the registry list.
func (s *Service) SetPassphraseHash(ownerID uuid.UUID, hash string) {
	r, created := s.dir.GetOrCreate(ownerID)
	r.SetPassphraseHash(hash)
	if created {
		s.bus.RegistryList(s.dir)
	}
	s.logger.Info("registry passphrase set", "registry_id", ownerID)
}

// GeneratePassphrase sets a random passphrase for ownerID's registry and
// returns the plaintext. It is not stored anywhere else.
func (s *Service) GeneratePassphrase(ownerID uuid.UUID) (string, error) {
	plaintext, err := auth.GeneratePassphrase()
	if err != nil {
		return "", err
	}
	if err := s.SetPassphrase(ownerID, plaintext); err != nil {
		return "", err
	}
	return plaintext, nil
}

// Clear drops every user registry and context and empties the public
// registry. Sessions bound to a dropped registry lose their subscription;
// public subscribers receive the now empty lists.
func (s *Service) Clear() {
	s.dir.Clear()
	s.bus.Retain(s.dir)
	s.bus.RegistryList(s.dir)
	s.bus.BlockList(s.dir.Public())
	s.bus.GroupList(s.dir.Public())
	s.logger.Info("registries cleared")
}
