package session

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/remotphone/relay/internal/protocol"
)

func TestGenerateCodeFormat(t *testing.T) {
	r := NewRegistry[int]()

	for i := 0; i < 100; i++ {
		code, err := r.GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode failed: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q has length %d, want 6", code, len(code))
		}
		if code[0] < '1' || code[0] > '9' {
			t.Errorf("code %q has a leading zero or non-digit", code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Errorf("code %q contains non-digit %q", code, c)
			}
		}
	}
}

func TestRegisterConcurrentCodesDistinct(t *testing.T) {
	r := NewRegistry[int]()

	const n = 200
	codes := make(chan string, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(conn int) {
			defer wg.Done()
			code, err := r.Register(conn, nil)
			if err != nil {
				t.Errorf("Register failed: %v", err)
				return
			}
			codes <- code
		}(i + 1)
	}
	wg.Wait()
	close(codes)

	seen := make(map[string]struct{})
	for code := range codes {
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code %q issued", code)
		}
		seen[code] = struct{}{}
	}
	if len(seen) != n {
		t.Errorf("issued %d distinct codes, want %d", len(seen), n)
	}
	if r.Len() != n {
		t.Errorf("Len() = %d, want %d", r.Len(), n)
	}
}

func TestCreateSessionDuplicateCode(t *testing.T) {
	r := NewRegistry[int]()

	if _, err := r.CreateSession("123456", 1, nil); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := r.CreateSession("123456", 2, nil); !errors.Is(err, ErrDuplicateCode) {
		t.Errorf("duplicate CreateSession error = %v, want ErrDuplicateCode", err)
	}
}

func TestAttachController(t *testing.T) {
	r := NewRegistry[int]()
	info := json.RawMessage(`{"model":"test-device"}`)

	code, err := r.Register(1, info)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := r.AttachController(code, 2)
	if err != nil {
		t.Fatalf("AttachController failed: %v", err)
	}
	if string(got) != string(info) {
		t.Errorf("AttachController info = %s, want %s", got, info)
	}

	// Second attach must fail and leave the first controller in place.
	if _, err := r.AttachController(code, 3); !errors.Is(err, ErrControllerAttached) {
		t.Errorf("second attach error = %v, want ErrControllerAttached", err)
	}
	s, ok := r.Lookup(code)
	if !ok {
		t.Fatal("session vanished")
	}
	if s.Controller != 2 {
		t.Errorf("Controller = %d, want 2", s.Controller)
	}
}

func TestAttachControllerUnknownCode(t *testing.T) {
	r := NewRegistry[int]()

	if _, err := r.AttachController("000000", 1); !errors.Is(err, ErrNoSuchSession) {
		t.Errorf("attach error = %v, want ErrNoSuchSession", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after failed attach, want 0", r.Len())
	}
}

func TestDetachController(t *testing.T) {
	r := NewRegistry[int]()

	code, _ := r.Register(1, nil)
	if _, err := r.AttachController(code, 2); err != nil {
		t.Fatalf("AttachController failed: %v", err)
	}

	r.DetachController(code)

	s, ok := r.Lookup(code)
	if !ok {
		t.Fatal("detach removed the session")
	}
	if s.Controller != 0 {
		t.Errorf("Controller = %d after detach, want 0", s.Controller)
	}

	// Slot is free again.
	if _, err := r.AttachController(code, 3); err != nil {
		t.Errorf("re-attach after detach failed: %v", err)
	}

	// Detach of an unknown code is a no-op.
	r.DetachController("999999")
}

func TestPeer(t *testing.T) {
	r := NewRegistry[int]()

	code, _ := r.Register(1, nil)

	if _, ok := r.Peer(code, protocol.RoleAgent); ok {
		t.Error("Peer for agent returned a controller before attach")
	}
	if peer, ok := r.Peer(code, protocol.RoleController); !ok || peer != 1 {
		t.Errorf("Peer for controller = %d, %v, want 1, true", peer, ok)
	}

	r.AttachController(code, 2)

	if peer, ok := r.Peer(code, protocol.RoleAgent); !ok || peer != 2 {
		t.Errorf("Peer for agent = %d, %v, want 2, true", peer, ok)
	}
	if _, ok := r.Peer(code, protocol.RoleUnassigned); ok {
		t.Error("Peer for unassigned role should not resolve")
	}
	if _, ok := r.Peer("999999", protocol.RoleAgent); ok {
		t.Error("Peer for unknown code should not resolve")
	}
}

func TestRemoveSession(t *testing.T) {
	r := NewRegistry[int]()

	code, _ := r.Register(1, nil)
	r.AttachController(code, 2)

	s, ok := r.RemoveSession(code)
	if !ok {
		t.Fatal("RemoveSession did not find the session")
	}
	if s.Agent != 1 || s.Controller != 2 {
		t.Errorf("removed session = {agent:%d controller:%d}, want {1 2}", s.Agent, s.Controller)
	}
	if _, ok := r.Lookup(code); ok {
		t.Error("session still present after removal")
	}
	if _, ok := r.RemoveSession(code); ok {
		t.Error("second removal found a session")
	}
}

func TestSweepExpired(t *testing.T) {
	r := NewRegistry[int]()

	oldCode, _ := r.Register(1, nil)
	newCode, _ := r.Register(2, nil)

	// Age the first session past the TTL.
	r.mu.Lock()
	r.sessions[oldCode].CreatedAt = time.Now().Add(-25 * time.Hour)
	r.mu.Unlock()

	removed := r.SweepExpired(time.Now(), 24*time.Hour)
	if len(removed) != 1 {
		t.Fatalf("SweepExpired removed %d sessions, want 1", len(removed))
	}
	if removed[0].Code != oldCode {
		t.Errorf("removed code = %q, want %q", removed[0].Code, oldCode)
	}
	if _, ok := r.Lookup(oldCode); ok {
		t.Error("expired session still present")
	}
	if _, ok := r.Lookup(newCode); !ok {
		t.Error("fresh session was swept")
	}
}

func TestSweepExpiredIgnoresActivity(t *testing.T) {
	r := NewRegistry[int]()

	code, _ := r.Register(1, nil)
	r.AttachController(code, 2)

	r.mu.Lock()
	r.sessions[code].CreatedAt = time.Now().Add(-2 * time.Minute)
	r.mu.Unlock()

	// Attached and recently mutated, but past the TTL: still reclaimed.
	removed := r.SweepExpired(time.Now(), time.Minute)
	if len(removed) != 1 {
		t.Fatalf("SweepExpired removed %d sessions, want 1", len(removed))
	}
	if removed[0].Controller != 2 {
		t.Errorf("removed session controller = %d, want 2", removed[0].Controller)
	}
}
