package protocol

import (
	"encoding/json"
	"errors"
)

// Errors
var (
	ErrMissingType = errors.New("message has no type field")
)

// Role identifies which side of a session a connection belongs to.
type Role int

const (
	RoleUnassigned Role = iota
	RoleAgent
	RoleController
)

// String returns the wire name of the role.
func (r Role) String() string {
	switch r {
	case RoleAgent:
		return "agent"
	case RoleController:
		return "controller"
	default:
		return "unassigned"
	}
}

// Opposite returns the peer role within a session.
// Unassigned has no peer and maps to itself.
func (r Role) Opposite() Role {
	switch r {
	case RoleAgent:
		return RoleController
	case RoleController:
		return RoleAgent
	default:
		return RoleUnassigned
	}
}

// Control message types handled locally by the broker.
const (
	TypeAgentRegister     = "agent_register"
	TypeControllerConnect = "controller_connect"
	TypePing              = "ping"
	TypePong              = "pong"
)

// Broker-originated reply and notification types.
const (
	TypeRegistered       = "registered"
	TypeConnected        = "connected"
	TypeError            = "error"
	TypePCConnected      = "pc_connected"
	TypePeerDisconnected = "peer_disconnected"
)

// envelope is used for fast type extraction.
type envelope struct {
	Type string `json:"type"`
}

// ParseType extracts the mandatory "type" field from a structured frame.
// The rest of the payload is left untouched.
func ParseType(data []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", err
	}
	if env.Type == "" {
		return "", ErrMissingType
	}
	return env.Type, nil
}

// RegisterRequest is the payload of an agent_register frame.
type RegisterRequest struct {
	Type       string          `json:"type"`
	DeviceInfo json.RawMessage `json:"deviceInfo"`
}

// ConnectRequest is the payload of a controller_connect frame.
type ConnectRequest struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

// RegisteredReply confirms agent registration and carries the pairing code.
type RegisteredReply struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ConnectedReply confirms controller attachment and relays the agent's
// registration metadata.
type ConnectedReply struct {
	Type       string          `json:"type"`
	DeviceInfo json.RawMessage `json:"deviceInfo"`
	Message    string          `json:"message"`
}

// ErrorReply reports a protocol or pairing error to the sender.
type ErrorReply struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PeerNotice notifies one side of a session about the other side.
type PeerNotice struct {
	Type    string `json:"type"`
	Role    string `json:"role,omitempty"`
	Message string `json:"message"`
}

// PongReply answers an application-level ping.
type PongReply struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}
