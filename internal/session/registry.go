package session

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/remotphone/relay/internal/protocol"
)

// Pairing code range: 6 decimal digits, no leading zero.
const (
	codeMin  = 100000
	codeSpan = 900000
)

// Errors
var (
	ErrNoSuchSession      = errors.New("no such session")
	ErrControllerAttached = errors.New("session already has a controller")
	ErrDuplicateCode      = errors.New("code already in use")
)

// Session pairs one agent connection with at most one controller
// connection under a short numeric code.
type Session[C comparable] struct {
	Code       string
	Agent      C
	Controller C
	CreatedAt  time.Time

	// AgentInfo is the opaque metadata blob supplied at registration,
	// relayed to a controller when it attaches.
	AgentInfo json.RawMessage
}

// Registry maps live pairing codes to sessions.
// C is the connection handle type; the zero value means "no connection".
type Registry[C comparable] struct {
	mu       sync.Mutex
	sessions map[string]*Session[C]
}

// NewRegistry creates an empty registry.
func NewRegistry[C comparable]() *Registry[C] {
	return &Registry[C]{
		sessions: make(map[string]*Session[C]),
	}
}

// GenerateCode draws a uniformly random 6-digit code not currently in use.
func (r *Registry[C]) GenerateCode() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generateCodeLocked()
}

func (r *Registry[C]) generateCodeLocked() (string, error) {
	for {
		n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
		if err != nil {
			return "", fmt.Errorf("draw pairing code: %w", err)
		}
		code := fmt.Sprintf("%06d", codeMin+n.Int64())
		if _, taken := r.sessions[code]; !taken {
			return code, nil
		}
	}
}

// CreateSession stores a new session under an externally supplied code.
// The generation contract makes duplicates impossible, but the check stays.
func (r *Registry[C]) CreateSession(code string, agent C, info json.RawMessage) (Session[C], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.sessions[code]; taken {
		return Session[C]{}, ErrDuplicateCode
	}
	s := &Session[C]{
		Code:      code,
		Agent:     agent,
		CreatedAt: time.Now(),
		AgentInfo: info,
	}
	r.sessions[code] = s
	return *s, nil
}

// Register generates a fresh code and creates the session in one step,
// holding the lock across both so concurrent registrations can never
// collide on a code.
func (r *Registry[C]) Register(agent C, info json.RawMessage) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.generateCodeLocked()
	if err != nil {
		return "", err
	}
	r.sessions[code] = &Session[C]{
		Code:      code,
		Agent:     agent,
		CreatedAt: time.Now(),
		AgentInfo: info,
	}
	return code, nil
}

// Lookup returns a snapshot of the session for a code.
func (r *Registry[C]) Lookup(code string) (Session[C], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]
	if !ok {
		return Session[C]{}, false
	}
	return *s, true
}

// Peer returns the connection opposite the sender's role in the session,
// or false when the session or the counterpart slot is empty.
func (r *Registry[C]) Peer(code string, sender protocol.Role) (C, bool) {
	var zero C

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]
	if !ok {
		return zero, false
	}

	var peer C
	switch sender {
	case protocol.RoleAgent:
		peer = s.Controller
	case protocol.RoleController:
		peer = s.Agent
	default:
		return zero, false
	}
	if peer == zero {
		return zero, false
	}
	return peer, true
}

// AttachController fills the controller slot and returns the stored agent
// metadata for the caller to relay back to the new controller.
func (r *Registry[C]) AttachController(code string, controller C) (json.RawMessage, error) {
	var zero C

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]
	if !ok {
		return nil, ErrNoSuchSession
	}
	if s.Controller != zero {
		return nil, ErrControllerAttached
	}
	s.Controller = controller
	return s.AgentInfo, nil
}

// DetachController clears the controller slot if present. The session
// itself stays alive so the code can be reused by a later controller.
func (r *Registry[C]) DetachController(code string) {
	var zero C

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[code]; ok {
		s.Controller = zero
	}
}

// RemoveSession deletes the mapping entry and returns a snapshot of the
// removed session. The caller closes any still-open sockets it references.
func (r *Registry[C]) RemoveSession(code string) (Session[C], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]
	if !ok {
		return Session[C]{}, false
	}
	delete(r.sessions, code)
	return *s, true
}

// SweepExpired removes and returns every session older than ttl,
// regardless of activity.
func (r *Registry[C]) SweepExpired(now time.Time, ttl time.Duration) []Session[C] {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []Session[C]
	for code, s := range r.sessions {
		if now.Sub(s.CreatedAt) > ttl {
			removed = append(removed, *s)
			delete(r.sessions, code)
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (r *Registry[C]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
