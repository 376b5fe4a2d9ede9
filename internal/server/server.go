package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lox/pokerd/internal/game"
	"github.com/lox/pokerd/internal/protocol"
)

// DefaultTableID names the single table every connecting client plays at.
const DefaultTableID = "main_table"

const (
	// Grace period for connection handlers to finish during shutdown.
	shutdownTimeout = 5 * time.Second

	// How often the table reconciles its stage with the seated players.
	stageRefreshInterval = 5 * time.Second
)

// Server ties the pieces together: it upgrades WebSocket connections,
// registers players, and hosts the single table. Run blocks until the
// context is cancelled.
type Server struct {
	cfg      *Config
	base     *log.Logger
	logger   *log.Logger
	clock    quartz.Clock
	upgrader websocket.Upgrader

	router   *Router
	registry *Registry
	game     *game.Game
	verifier *protocol.Verifier

	handlers   sync.WaitGroup
	connCtx    context.Context
	connCancel context.CancelFunc

	mu   sync.Mutex
	addr string
}

// Option customises a Server.
type Option func(*Server)

// WithClock substitutes the time source. Tests use a mock clock to step
// through token expiry and rate limits.
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// New assembles a server from config: router, registry, the main table,
// and optionally HMAC verification of client frames.
func New(cfg *Config, logger *log.Logger, opts ...Option) (*Server, error) {
	connCtx, connCancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:    cfg,
		base:   logger,
		logger: logger.WithPrefix("server"),
		clock:  quartz.NewReal(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// All origins accepted; deployments front this with
				// their own origin policy.
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connCtx:    connCtx,
		connCancel: connCancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = NewRouter(logger)
	s.registry = NewRegistry(cfg, s.router, s.clock, logger)
	s.game = game.New(DefaultTableID, cfg.Table.SmallBlind, cfg.Table.BigBlind, s.router,
		game.WithLogger(logger),
		game.WithMaxBetPerHand(cfg.Table.MaxBetPerHand),
	)
	s.registry.AddGame(s.game)

	if cfg.Server.EnableHMAC {
		key, err := loadHMACKey(cfg.Server.HMACKey)
		if err != nil {
			connCancel()
			return nil, err
		}
		s.verifier = protocol.NewVerifier(key, protocol.NewNonceCache(s.clock))
		s.logger.Info("message signing enabled", "key_fingerprint", key.Fingerprint())
	}

	return s, nil
}

// loadHMACKey decodes the configured hex key, or generates a fresh one
// when none is configured.
func loadHMACKey(hexKey string) (*protocol.HMACKey, error) {
	if hexKey != "" {
		key, err := protocol.HMACKeyFromHex(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid hmac key: %w", err)
		}
		return key, nil
	}
	return protocol.NewHMACKey()
}

// Addr returns the listener's address once Run has bound it. Useful when
// the config asked for port 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Run listens on the configured address and serves until ctx is
// cancelled, then shuts down: the listener closes, connections get the
// drain grace period, and the router stops last so the final frames
// still route.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Addr, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	go s.router.Run()

	refreshStop := make(chan struct{})
	go s.refreshLoop(refreshStop)

	httpSrv := &http.Server{Handler: s.routes()}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpSrv.Serve(ln)
	}()

	s.logger.Info("listening", "addr", s.Addr(), "table", DefaultTableID,
		"small_blind", s.cfg.Table.SmallBlind, "big_blind", s.cfg.Table.BigBlind)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		s.connCancel()
		close(refreshStop)
		s.router.Stop()
		return fmt.Errorf("serving: %w", err)
	}

	s.logger.Info("shutting down")
	_ = httpSrv.Close()
	s.connCancel()
	if !s.waitHandlers(shutdownTimeout) {
		s.logger.Warn("abandoning connection handlers", "timeout", shutdownTimeout)
	}
	close(refreshStop)
	s.router.Stop()
	return nil
}

// refreshLoop periodically lets the table notice it no longer has enough
// players to continue a hand.
func (s *Server) refreshLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(stageRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.game.RefreshStage()
		case <-stop:
			return
		}
	}
}

func (s *Server) waitHandlers(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// handleWebSocket admits a connection, auto-registers a player identity
// for it, and starts the read and write loops. Clients bring back an
// earlier identity with a Reconnect frame.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !s.registry.CanAccept(ip) {
		s.logger.Warn("connection rejected", "ip", ip)
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "ip", ip, "error", err)
		return
	}

	s.registry.Register(ip)
	id := uuid.NewString()
	s.registry.RegisterPlayer(id, "Player"+id[:8], s.cfg.Table.StartingChips)

	c := newConnection(conn, ip, id, s)
	if err := s.registry.ConnectPlayer(id, c.out); err != nil {
		s.logger.Error("connect failed", "player_id", id, "error", err)
		s.registry.Unregister(ip)
		_ = conn.Close()
		return
	}

	s.handlers.Add(1)
	go func() {
		<-c.done
		s.handlers.Done()
	}()

	s.logger.Info("client connected", "player_id", id, "ip", ip)
	c.start()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}

// clientIP extracts the peer address for per-IP connection limits.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
