package api

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/webstone-core/internal/auth"
	"github.com/nerrad567/webstone-core/internal/protocol"
	"github.com/nerrad567/webstone-core/internal/session"
)

// DefaultLoopTimeout bounds how long a connection goroutine waits on the
// loop when Deps.LoopTimeout is unset.
const DefaultLoopTimeout = 5 * time.Second

// Messages carried by AUTH_RES and SUBSCRIBE responses.
const (
	MessageAuthenticated     = "Authenticated."
	MessageInvalidPassphrase = "Invalid passphrase."
	MessageSubscribed        = "Subscribed."
	MessageRegistryNotFound  = "Registry not found."
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Clients authenticate in-band; any origin may connect.
		return true
	},
}

// handleWebSocket upgrades the connection, creates its session on the loop
// and sends WELCOME.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(s.hub, conn, s.wsCfg.SendBuffer)
	timeout := time.Duration(s.wsCfg.AuthTimeout) * time.Second

	// The task stays queued if Do gives up waiting. claimed decides whether
	// it or the rejection below owns the client.
	var claimed atomic.Bool
	ctx, cancel := context.WithTimeout(context.Background(), s.loopWait)
	defer cancel()
	err = s.loop.Do(ctx, func() {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		c.session = session.New(time.Now(), timeout, func() { s.expire(c) })
		c.id = c.session.ID()
		s.hub.Register(c)
		c.sendMessage(protocol.TypeWelcome, protocol.Welcome{
			SocketID: c.session.ID(),
			ExpireAt: c.session.ExpireAt(),
		})
	})
	if err != nil {
		s.logger.Warn("rejecting websocket connection", "remote", r.RemoteAddr, "error", err)
		if !claimed.CompareAndSwap(false, true) {
			// Registered after the wait gave up.
			s.abandon(c)
		}
		//nolint:errcheck // Best-effort close frame
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server unavailable"))
		conn.Close()
		return
	}

	s.logger.Info("websocket session opened", "socket_id", c.id, "remote", r.RemoteAddr)

	go c.writePump(s.wsCfg)
	go c.readPump(s.wsCfg, func(data []byte) bool {
		return s.handleFrame(c, data)
	}, func() {
		s.disconnect(c)
	})
}

// abandon releases a client whose pumps never started.
func (s *Server) abandon(c *Client) {
	err := s.loop.Submit(func() {
		c.session.Close()
		s.hub.Unregister(c)
	})
	if err != nil {
		s.hub.Unregister(c)
	}
}

// expire runs when the authentication deadline passes. The check happens on
// the loop, after any AUTH_REQ queued before it.
func (s *Server) expire(c *Client) {
	//nolint:errcheck // A closed loop means the server is stopping anyway
	s.loop.Submit(func() {
		if c.session.Expired() {
			s.logger.Info("websocket session authentication timed out", "socket_id", c.id)
			c.close(websocket.CloseNormalClosure, "authentication timeout")
		}
	})
}

// disconnect releases the session once its read pump has exited.
func (s *Server) disconnect(c *Client) {
	err := s.loop.Submit(func() {
		c.session.Unsubscribe()
		c.session.Close()
		s.hub.Unregister(c)
		s.logger.Info("websocket session closed", "socket_id", c.id)
	})
	if err != nil {
		s.hub.Unregister(c)
	}
}

// handleFrame decodes one frame and routes it. It runs on the connection's
// read goroutine; registry state is only touched inside loop tasks. It
// reports false when the connection must stop reading.
func (s *Server) handleFrame(c *Client, data []byte) bool {
	msg, err := protocol.Decode(data)
	if err != nil {
		s.logger.Debug("protocol error", "socket_id", c.id, "error", err)
		c.sendMessage(protocol.TypeServerError, protocol.NewServerError(err))
		c.close(websocket.CloseUnsupportedData, "protocol error")
		return false
	}

	switch msg.Type {
	case protocol.TypeAuthReq:
		req, _ := msg.Payload.(protocol.AuthRequest)
		// bcrypt is slow; verify here rather than on the loop.
		ok := s.verifyGlobalPassphrase(req.Passphrase)
		s.submit(c, func() { s.completeAuth(c, ok) })
	case protocol.TypeSubscribe:
		req, _ := msg.Payload.(protocol.SubscribeRequest)
		s.handleSubscribe(c, req)
	default:
		s.submit(c, func() { s.dispatch(c, msg) })
	}
	return !c.isClosed()
}

func (s *Server) submit(c *Client, fn func()) {
	if err := s.loop.Submit(fn); err != nil {
		s.logger.Debug("dropping message, loop stopped", "socket_id", c.id, "error", err)
	}
}

func (s *Server) verifyGlobalPassphrase(passphrase string) bool {
	if s.secCfg.PassphraseHash == "" {
		return true
	}
	return auth.VerifyPassphrase(passphrase, s.secCfg.PassphraseHash)
}

// completeAuth runs on the loop. AUTH_REQ outside NONE is ignored.
func (s *Server) completeAuth(c *Client, verified bool) {
	if c.isClosed() || c.session.State() != session.StateNone {
		return
	}
	if !verified {
		c.sendMessage(protocol.TypeAuthRes, protocol.AuthResponse{Authorized: false, Message: MessageInvalidPassphrase})
		c.close(websocket.ClosePolicyViolation, "authentication failed")
		s.logger.Info("websocket authentication failed", "socket_id", c.id)
		return
	}

	//nolint:errcheck // State was checked above
	c.session.CommitAuthenticated()
	c.sendMessage(protocol.TypeAuthRes, protocol.AuthResponse{Authorized: true, Message: MessageAuthenticated})
	c.sendMessage(protocol.TypeBlockLists, protocol.BlockLists{
		AvailableRegistries: s.svc.Directory().DisplayNames(),
	})
}

// handleSubscribe reads the registry's hash on the loop, verifies the
// passphrase here, then commits on the loop if the hash is still the same.
func (s *Server) handleSubscribe(c *Client, req protocol.SubscribeRequest) {
	registryID, err := uuid.Parse(req.RegistryID)
	if err != nil {
		s.submit(c, func() {
			if !c.isClosed() && c.session.State() == session.StateAuthenticated {
				c.sendMessage(protocol.TypeSubscribe, protocol.SubscribeResponse{Subscribed: false, Message: MessageRegistryNotFound})
			}
		})
		return
	}

	hash, exists, allowed, err := s.lookupSubscription(c, registryID)
	if err != nil {
		s.logger.Debug("subscribe lookup failed", "socket_id", c.id, "error", err)
		return
	}
	if !allowed {
		return
	}

	verified := exists && (hash == "" || auth.VerifyPassphrase(req.Passphrase, hash))
	s.submit(c, func() { s.completeSubscribe(c, registryID, hash, verified) })
}

// lookupSubscription reads, on the loop, whether c may subscribe at all and
// the registry's current hash. SUBSCRIBE outside AUTHENTICATED is dropped
// here so it never reaches bcrypt.
func (s *Server) lookupSubscription(c *Client, registryID uuid.UUID) (hash string, exists, allowed bool, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.loopWait)
	defer cancel()
	err = s.loop.Do(ctx, func() {
		if c.isClosed() || c.session.State() != session.StateAuthenticated {
			return
		}
		allowed = true
		if r := s.svc.Directory().Registry(registryID); r != nil {
			hash, exists = r.PassphraseHash(), true
		}
	})
	return hash, exists, allowed, err
}

// completeSubscribe runs on the loop. SUBSCRIBE is only honoured while
// AUTHENTICATED.
func (s *Server) completeSubscribe(c *Client, registryID uuid.UUID, hash string, verified bool) {
	if c.isClosed() || c.session.State() != session.StateAuthenticated {
		return
	}

	r := s.svc.Directory().Registry(registryID)
	switch {
	case r == nil:
		c.sendMessage(protocol.TypeSubscribe, protocol.SubscribeResponse{Subscribed: false, Message: MessageRegistryNotFound})
		return
	case !verified || r.PassphraseHash() != hash:
		c.sendMessage(protocol.TypeSubscribe, protocol.SubscribeResponse{Subscribed: false, Message: MessageInvalidPassphrase})
		return
	}

	s.hub.Subscribe(c, registryID)
	c.sendMessage(protocol.TypeSubscribe, protocol.SubscribeResponse{
		Subscribed: true,
		Message:    MessageSubscribed,
		RegistryID: registryID.String(),
	})
	c.sendMessage(protocol.TypeBlocks, protocol.BlocksFrom(r))
	c.sendMessage(protocol.TypeBlockGroups, protocol.GroupsFrom(r))
	//nolint:errcheck // State was checked above
	c.session.Subscribe(registryID)
	s.logger.Debug("websocket session subscribed", "socket_id", c.id, "registry_id", registryID)
}
