package hostlink

import "github.com/google/uuid"

// CommandMessage is published on {prefix}/command/{blockId}. Exactly one of
// Powered and Power is set.
type CommandMessage struct {
	BlockID uuid.UUID `json:"blockId"`
	Powered *bool     `json:"powered,omitempty"`
	Power   *int      `json:"power,omitempty"`
}

// StateMessage is received on {prefix}/state/{blockId}. Either field may
// be omitted.
type StateMessage struct {
	Powered *bool `json:"powered,omitempty"`
	Power   *int  `json:"power,omitempty"`
}

// RegisterMessage is received on {prefix}/register/{blockId}.
type RegisterMessage struct {
	OwnerID   uuid.UUID `json:"ownerId"`
	OwnerName string    `json:"ownerName"`
	Powered   bool      `json:"powered"`
	Power     int       `json:"power"`
}

// AdvisoryMessage is published on {prefix}/advisory/{ownerId} when a
// registration is refused.
type AdvisoryMessage struct {
	BlockID  uuid.UUID `json:"blockId"`
	Messages []string  `json:"messages"`
}

// SetPassphraseMessage is received on {prefix}/admin/{ownerId}/setpass.
type SetPassphraseMessage struct {
	Passphrase string `json:"passphrase"`
}

// ContextMessage is received on {prefix}/admin/{ownerId}/context. Context
// is "public" or "private".
type ContextMessage struct {
	Context string `json:"context"`
}

// AdminReplyMessage answers an owner's admin action on
// {prefix}/advisory/{ownerId}. Passphrase is only set for genpass.
type AdminReplyMessage struct {
	Action     string   `json:"action"`
	Messages   []string `json:"messages"`
	Passphrase string   `json:"passphrase,omitempty"`
}
