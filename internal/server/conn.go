package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/remotphone/relay/internal/protocol"
)

// Conn is the broker-side state for one WebSocket connection.
//
// Role is assigned exactly once, on the first successful registration
// frame, and is immutable afterwards. The closed flag guarantees that
// racing close triggers (transport error, heartbeat timeout, shutdown)
// collapse into a single cleanup execution.
type Conn struct {
	id     uuid.UUID
	ws     *websocket.Conn
	logger *slog.Logger

	// Write serialization
	writeMu      sync.Mutex
	writeTimeout time.Duration

	// State
	mu          sync.Mutex
	role        protocol.Role
	sessionCode string
	alive       bool

	closed atomic.Bool
}

func newConn(ws *websocket.Conn, writeTimeout time.Duration, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.New()
	c := &Conn{
		id:           id,
		ws:           ws,
		logger:       logger.With("conn_id", id),
		writeTimeout: writeTimeout,
		alive:        true,
	}

	ws.SetPongHandler(func(string) error {
		c.markAlive()
		return nil
	})

	return c
}

// Role returns the connection's assigned role.
func (c *Conn) Role() protocol.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// SessionCode returns the pairing code this connection belongs to,
// or "" before registration.
func (c *Conn) SessionCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionCode
}

// assign binds the connection to a session with a role. It reports false
// if a role was already assigned.
func (c *Conn) assign(role protocol.Role, code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.role != protocol.RoleUnassigned {
		return false
	}
	c.role = role
	c.sessionCode = code
	return true
}

func (c *Conn) markAlive() {
	c.mu.Lock()
	c.alive = true
	c.mu.Unlock()
}

// expireLiveness clears the alive flag and reports whether the peer had
// answered a probe since the last call.
func (c *Conn) expireLiveness() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	was := c.alive
	c.alive = false
	return was
}

// sendJSON marshals and writes a control frame. Delivery is best-effort:
// failures are logged and otherwise ignored; the read loop surfaces any
// real transport failure.
func (c *Conn) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("marshal control frame", "error", err)
		return
	}
	c.sendRaw(data)
}

// sendRaw writes an already-encoded text frame byte-for-byte.
func (c *Conn) sendRaw(data []byte) {
	c.write(websocket.TextMessage, data)
}

// sendBinary writes a raw binary frame byte-for-byte.
func (c *Conn) sendBinary(data []byte) {
	c.write(websocket.BinaryMessage, data)
}

func (c *Conn) write(messageType int, data []byte) {
	if c.closed.Load() {
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.ws.WriteMessage(messageType, data); err != nil {
		c.logger.Debug("dropped outbound frame", "error", err)
	}
}

// ping sends a liveness probe control frame.
func (c *Conn) ping() {
	c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}
