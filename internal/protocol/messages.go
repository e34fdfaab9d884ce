package protocol

import (
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/webstone-core/internal/registry"
)

// Welcome is sent on connect.
type Welcome struct {
	SocketID uuid.UUID `json:"socketId"`
	ExpireAt time.Time `json:"expireAt"`
}

// AuthRequest carries the global passphrase.
type AuthRequest struct {
	Passphrase string `json:"passphrase"`
}

// AuthResponse reports the outcome of AUTH_REQ.
type AuthResponse struct {
	Authorized bool   `json:"authorized"`
	Message    string `json:"message"`
}

// SubscribeRequest asks to bind the session to a registry.
// RegistryID is kept as text so a bad id is a subscribe failure, not a
// protocol error.
type SubscribeRequest struct {
	RegistryID string `json:"registryId"`
	Passphrase string `json:"passphrase"`
}

// SubscribeResponse reports the outcome of SUBSCRIBE.
type SubscribeResponse struct {
	Subscribed bool   `json:"subscribed"`
	Message    string `json:"message"`
	RegistryID string `json:"registryId,omitempty"`
}

// UnsubscribeRequest releases the current subscription.
type UnsubscribeRequest struct {
	RegistryID string `json:"registryId"`
}

// BlockLists maps registry ids to display names.
type BlockLists struct {
	AvailableRegistries map[uuid.UUID]string `json:"availableRegistries"`
}

// Block is the wire form of a block. GroupID is null when ungrouped.
type Block struct {
	BlockID uuid.UUID  `json:"blockId"`
	Name    string     `json:"name"`
	Powered bool       `json:"powered"`
	Power   int        `json:"power"`
	GroupID *uuid.UUID `json:"groupId"`
}

// Group is the wire form of a block group.
type Group struct {
	GroupID   uuid.UUID   `json:"groupId"`
	Name      string      `json:"name"`
	MemberIDs []uuid.UUID `json:"memberIds"`
}

// Blocks is the full block list of one registry.
type Blocks struct {
	Blocks []Block `json:"blocks"`
}

// BlockGroups is the full group list of one registry.
type BlockGroups struct {
	Groups []Group `json:"groups"`
}

// BlockEvent is the payload of every block mutation request.
// Only the fields relevant to the request type are read.
type BlockEvent struct {
	BlockID uuid.UUID `json:"blockId"`
	Name    *string   `json:"name,omitempty"`
	Powered *bool     `json:"powered,omitempty"`
	Power   *int      `json:"power,omitempty"`
	GroupID *string   `json:"groupId,omitempty"`
}

// TargetGroup parses GroupID. A missing, empty or unparsable id means
// "no group".
func (e BlockEvent) TargetGroup() (uuid.UUID, bool) {
	if e.GroupID == nil || *e.GroupID == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(*e.GroupID)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// GroupEvent is the payload of every group mutation request.
type GroupEvent struct {
	GroupID uuid.UUID `json:"groupId"`
	Name    string    `json:"name"`
}

// ChangeIndex re-orders a block or group.
type ChangeIndex struct {
	ID       uuid.UUID `json:"id"`
	NewIndex int       `json:"newIndex"`
}

// ServerError is sent before the server closes a connection on a protocol error.
type ServerError struct {
	Message string   `json:"message"`
	Trace   []string `json:"trace"`
}

// BlockFrom converts a registry block to its wire form.
func BlockFrom(b *registry.Block) Block {
	out := Block{
		BlockID: b.ID(),
		Name:    b.Name(),
		Powered: b.Powered(),
		Power:   b.Power(),
	}
	if gid, ok := b.GroupID(); ok {
		out.GroupID = &gid
	}
	return out
}

// GroupFrom converts a registry group to its wire form.
func GroupFrom(g *registry.Group) Group {
	members := g.MemberIDs()
	if members == nil {
		members = []uuid.UUID{}
	}
	return Group{
		GroupID:   g.ID(),
		Name:      g.Name(),
		MemberIDs: members,
	}
}

// BlocksFrom returns the BLOCKS payload for r.
func BlocksFrom(r *registry.Registry) Blocks {
	blocks := r.Blocks()
	out := Blocks{Blocks: make([]Block, 0, len(blocks))}
	for _, b := range blocks {
		out.Blocks = append(out.Blocks, BlockFrom(b))
	}
	return out
}

// GroupsFrom returns the BLOCK_GROUPS payload for r.
func GroupsFrom(r *registry.Registry) BlockGroups {
	groups := r.Groups()
	out := BlockGroups{Groups: make([]Group, 0, len(groups))}
	for _, g := range groups {
		out.Groups = append(out.Groups, GroupFrom(g))
	}
	return out
}
