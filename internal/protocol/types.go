package protocol

// Type names a message kind on the wire.
type Type string

// Message kinds.
const (
	TypeServerError Type = "SERVER_ERROR"
	TypeWelcome     Type = "WELCOME"
	TypeAuthReq     Type = "AUTH_REQ"
	TypeAuthRes     Type = "AUTH_RES"
	TypeSubscribe   Type = "SUBSCRIBE"
	TypeUnsubscribe Type = "UNSUBSCRIBE"

	TypeBlockLists       Type = "BLOCK_LISTS"
	TypeBlocks           Type = "BLOCKS"
	TypeBlockGroups      Type = "BLOCK_GROUPS"
	TypeBlockUpdate      Type = "BLOCK_UPDATE"
	TypeBlockGroupUpdate Type = "BLOCK_GROUP_UPDATE"

	TypeBlockState       Type = "BLOCK_STATE"
	TypeBlockPower       Type = "BLOCK_POWER"
	TypeRenameBlock      Type = "RENAME_BLOCK"
	TypeUnregisterBlock  Type = "UNREGISTER_BLOCK"
	TypeChangeBlockGroup Type = "CHANGE_BLOCK_GROUP"

	TypeCreateGroup Type = "CREATE_GROUP"
	TypeRenameGroup Type = "RENAME_GROUP"
	TypeDeleteGroup Type = "DELETE_GROUP"

	TypeChangeBlockIndex Type = "CHANGE_BLOCK_INDEX"
	TypeChangeGroupIndex Type = "CHANGE_GROUP_INDEX"
)

// IsMutation reports whether t is a request that changes blocks or groups.
// These are only honoured once a session is subscribed.
func (t Type) IsMutation() bool {
	switch t {
	case TypeBlockState, TypeBlockPower, TypeRenameBlock, TypeUnregisterBlock, TypeChangeBlockGroup,
		TypeCreateGroup, TypeRenameGroup, TypeDeleteGroup,
		TypeChangeBlockIndex, TypeChangeGroupIndex:
		return true
	}
	return false
}
