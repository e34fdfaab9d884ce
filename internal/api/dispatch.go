package api

import (
	"github.com/nerrad567/webstone-core/internal/control"
	"github.com/nerrad567/webstone-core/internal/protocol"
)

// dispatch runs a decoded client message on the loop. Mutations are only
// accepted from a subscribed session and only act on its own registry.
func (s *Server) dispatch(c *Client, msg protocol.Message) {
	if c.isClosed() {
		return
	}

	if msg.Type == protocol.TypeUnsubscribe {
		if registryID, ok := c.session.Unsubscribe(); ok {
			s.hub.Unsubscribe(c, registryID)
			s.logger.Debug("websocket session unsubscribed", "socket_id", c.id, "registry_id", registryID)
		}
		return
	}

	registryID, subscribed := c.session.SubscribedRegistry()
	if !msg.Type.IsMutation() || !subscribed {
		s.logger.Debug("ignoring message", "socket_id", c.id, "type", msg.Type, "state", c.session.State())
		return
	}
	scope := control.Within(registryID)

	switch p := msg.Payload.(type) {
	case protocol.BlockEvent:
		s.dispatchBlock(scope, msg.Type, p)
	case protocol.GroupEvent:
		switch msg.Type {
		case protocol.TypeCreateGroup:
			s.svc.CreateGroup(registryID, p.Name)
		case protocol.TypeRenameGroup:
			s.svc.RenameGroup(scope, p.GroupID, p.Name)
		case protocol.TypeDeleteGroup:
			s.svc.DeleteGroup(scope, p.GroupID)
		}
	case protocol.ChangeIndex:
		switch msg.Type {
		case protocol.TypeChangeBlockIndex:
			s.svc.ChangeBlockIndex(scope, p.ID, p.NewIndex)
		case protocol.TypeChangeGroupIndex:
			s.svc.ChangeGroupIndex(scope, p.ID, p.NewIndex)
		}
	}
}

// dispatchBlock handles block requests. A request missing the field it is
// about is ignored.
func (s *Server) dispatchBlock(scope control.Scope, t protocol.Type, ev protocol.BlockEvent) {
	switch t {
	case protocol.TypeBlockState:
		if ev.Powered != nil {
			s.svc.SetBlockState(scope, ev.BlockID, *ev.Powered)
		}
	case protocol.TypeBlockPower:
		if ev.Power != nil {
			s.svc.SetBlockPower(scope, ev.BlockID, *ev.Power)
		}
	case protocol.TypeRenameBlock:
		if ev.Name != nil {
			s.svc.RenameBlock(scope, ev.BlockID, *ev.Name)
		}
	case protocol.TypeUnregisterBlock:
		s.svc.UnregisterBlock(scope, ev.BlockID)
	case protocol.TypeChangeBlockGroup:
		groupID, _ := ev.TargetGroup()
		s.svc.ChangeBlockGroup(scope, ev.BlockID, groupID)
	}
}
