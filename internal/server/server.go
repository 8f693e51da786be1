package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/remotphone/relay/internal/session"
	"github.com/remotphone/relay/internal/version"
)

// Config configures the broker.
type Config struct {
	HeartbeatInterval time.Duration // Liveness probe period
	SweepInterval     time.Duration // Expired-session sweep period
	SessionTTL        time.Duration // Max session age, regardless of activity
	WriteTimeout      time.Duration // Write deadline for outbound frames
	ReadLimit         int64         // Max inbound frame size
	AllowedOrigins    []string      // Upgrade origin allowlist (empty = allow all)
}

// DefaultConfig returns the reference values from the deployment docs.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
		SweepInterval:     60 * time.Second,
		SessionTTL:        24 * time.Hour,
		WriteTimeout:      5 * time.Second,
		ReadLimit:         16 << 20,
	}
}

// Stats is a snapshot of broker state for the status endpoint.
type Stats struct {
	ActiveSessions   int     `json:"activeSessions"`
	ConnectedClients int     `json:"connectedClients"`
	UptimeSeconds    float64 `json:"uptimeSeconds"`
	Version          string  `json:"version"`
}

// Server is the pairing and relay broker.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	registry *session.Registry[*Conn]
	upgrader websocket.Upgrader

	connMu sync.Mutex
	conns  map[uuid.UUID]*Conn

	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewServer creates a broker with the given configuration.
func NewServer(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		registry: session.NewRegistry[*Conn](),
		conns:    make(map[uuid.UUID]*Conn),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Start launches the liveness monitor and the expiry reaper.
func (s *Server) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.startedAt = time.Now()

	s.wg.Add(2)
	go s.heartbeatLoop()
	go s.reapLoop()

	s.logger.Info("broker started",
		"heartbeat_interval", s.cfg.HeartbeatInterval,
		"sweep_interval", s.cfg.SweepInterval,
		"session_ttl", s.cfg.SessionTTL,
	)

	return nil
}

// Stop shuts down the background loops and closes every open connection.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping broker")

	if s.cancel != nil {
		s.cancel()
	}

	for _, c := range s.snapshotConns() {
		s.closeConn(c, "shutdown")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("broker stopped")
	case <-ctx.Done():
		s.logger.Warn("broker stop timed out")
	}

	return nil
}

// Handler returns the HTTP handler exposing the WebSocket endpoint and
// the read-only status API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/status", s.handleStatus)
	return mux
}

// Stats returns a snapshot of broker state.
func (s *Server) Stats() Stats {
	s.connMu.Lock()
	clients := len(s.conns)
	s.connMu.Unlock()

	return Stats{
		ActiveSessions:   s.registry.Len(),
		ConnectedClients: clients,
		UptimeSeconds:    time.Since(s.startedAt).Seconds(),
		Version:          version.Version,
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Stats())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	ws.SetReadLimit(s.cfg.ReadLimit)

	c := newConn(ws, s.cfg.WriteTimeout, s.logger)

	s.connMu.Lock()
	s.conns[c.id] = c
	s.connMu.Unlock()

	c.logger.Debug("connection accepted", "remote", r.RemoteAddr)

	s.readLoop(c)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (s *Server) snapshotConns() []*Conn {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	conns := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	return conns
}
