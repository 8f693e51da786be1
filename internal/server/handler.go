package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/remotphone/relay/internal/protocol"
	"github.com/remotphone/relay/internal/session"
)

// readLoop processes inbound frames for one connection until it closes.
// Events on a single connection are handled strictly in arrival order.
func (s *Server) readLoop(c *Conn) {
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if !c.closed.Load() && !websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("read error", "error", err)
			}
			s.closeConn(c, "transport")
			return
		}

		if messageType == websocket.BinaryMessage {
			s.relayBinary(c, data)
			continue
		}

		s.dispatch(c, data)
	}
}

// dispatch classifies one structured frame and either handles it locally
// or forwards it to the session peer.
func (s *Server) dispatch(c *Conn, data []byte) {
	msgType, err := protocol.ParseType(data)
	if err != nil {
		// Recoverable: tell the sender and keep the connection open.
		c.sendJSON(protocol.ErrorReply{
			Type:    protocol.TypeError,
			Message: "Invalid message format",
		})
		return
	}

	switch msgType {
	case protocol.TypeAgentRegister:
		s.handleAgentRegister(c, data)

	case protocol.TypeControllerConnect:
		s.handleControllerConnect(c, data)

	case protocol.TypePing:
		c.sendJSON(protocol.PongReply{
			Type:      protocol.TypePong,
			Timestamp: time.Now().UnixMilli(),
		})

	case protocol.TypePong:
		// Application-level pong counts as a liveness answer too.
		c.markAlive()

	default:
		s.relay(c, msgType, data)
	}
}

// handleAgentRegister creates a fresh session and binds the connection to
// it as the agent. Registration always succeeds for an unassigned
// connection; a repeat registration is ignored because roles are
// assigned exactly once.
func (s *Server) handleAgentRegister(c *Conn, data []byte) {
	if c.Role() != protocol.RoleUnassigned {
		c.logger.Debug("ignoring re-registration", "role", c.Role().String())
		return
	}

	var req protocol.RegisterRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendJSON(protocol.ErrorReply{
			Type:    protocol.TypeError,
			Message: "Invalid message format",
		})
		return
	}

	code, err := s.registry.Register(c, req.DeviceInfo)
	if err != nil {
		c.logger.Error("session registration failed", "error", err)
		c.sendJSON(protocol.ErrorReply{
			Type:    protocol.TypeError,
			Message: "Registration failed",
		})
		return
	}
	c.assign(protocol.RoleAgent, code)

	c.sendJSON(protocol.RegisteredReply{
		Type:    protocol.TypeRegistered,
		Code:    code,
		Message: "Pairing code: " + code,
	})

	c.logger.Info("agent registered", "code", code)
}

// handleControllerConnect attaches the connection to an existing session
// as its controller and notifies the agent.
func (s *Server) handleControllerConnect(c *Conn, data []byte) {
	if c.Role() != protocol.RoleUnassigned {
		c.logger.Debug("ignoring re-registration", "role", c.Role().String())
		return
	}

	var req protocol.ConnectRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendJSON(protocol.ErrorReply{
			Type:    protocol.TypeError,
			Message: "Invalid message format",
		})
		return
	}

	info, err := s.registry.AttachController(req.Code, c)
	switch {
	case errors.Is(err, session.ErrNoSuchSession):
		c.sendJSON(protocol.ErrorReply{
			Type:    protocol.TypeError,
			Message: "Invalid code",
		})
		return
	case errors.Is(err, session.ErrControllerAttached):
		c.sendJSON(protocol.ErrorReply{
			Type:    protocol.TypeError,
			Message: "Session already has a controller connected",
		})
		return
	case err != nil:
		c.logger.Error("controller attach failed", "code", req.Code, "error", err)
		return
	}
	c.assign(protocol.RoleController, req.Code)

	c.sendJSON(protocol.ConnectedReply{
		Type:       protocol.TypeConnected,
		DeviceInfo: info,
		Message:    "Connected to agent",
	})

	// Notify the agent, if it is still connected.
	if peer, ok := s.registry.Peer(req.Code, protocol.RoleController); ok {
		peer.sendJSON(protocol.PeerNotice{
			Type:    protocol.TypePCConnected,
			Message: "Controller connected",
		})
	}

	c.logger.Info("controller connected", "code", req.Code)
}

// relay forwards a structured frame to the session peer according to the
// routing table. Undeliverable frames are dropped without error; loss is
// an accepted property of the relay.
func (s *Server) relay(c *Conn, msgType string, data []byte) {
	code := c.SessionCode()
	if code == "" {
		return
	}

	class := protocol.Classify(msgType)
	if _, ok := protocol.Target(class, c.Role()); !ok {
		return
	}

	// The peer handle is fetched under the registry lock; the send
	// happens after release.
	peer, ok := s.registry.Peer(code, c.Role())
	if !ok {
		return
	}
	peer.sendRaw(data)
}

// relayBinary forwards a raw binary frame byte-for-byte. Binary frames
// flow agent -> controller only and are never parsed.
func (s *Server) relayBinary(c *Conn, data []byte) {
	if c.Role() != protocol.RoleAgent {
		return
	}
	code := c.SessionCode()
	if code == "" {
		return
	}

	peer, ok := s.registry.Peer(code, protocol.RoleAgent)
	if !ok {
		return
	}
	peer.sendBinary(data)
}

// closeConn tears down a connection and its session-side state. Safe to
// call from the read loop, the heartbeat loop, and shutdown concurrently;
// only the first caller performs cleanup.
func (s *Server) closeConn(c *Conn, reason string) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	s.connMu.Lock()
	delete(s.conns, c.id)
	s.connMu.Unlock()

	role := c.Role()
	code := c.SessionCode()

	if code != "" {
		if peer, ok := s.registry.Peer(code, role); ok {
			peer.sendJSON(protocol.PeerNotice{
				Type:    protocol.TypePeerDisconnected,
				Role:    role.String(),
				Message: role.String() + " disconnected",
			})
		}

		switch role {
		case protocol.RoleAgent:
			// The session dies with its agent.
			if sess, ok := s.registry.RemoveSession(code); ok {
				c.logger.Info("session removed", "code", code, "reason", reason)
				if sess.Controller != nil {
					s.closeConn(sess.Controller, "session closed")
				}
			}
		case protocol.RoleController:
			// The session survives and the code stays valid.
			s.registry.DetachController(code)
			c.logger.Info("controller detached", "code", code, "reason", reason)
		}
	}

	c.ws.Close()
	c.logger.Debug("connection closed", "reason", reason)
}
