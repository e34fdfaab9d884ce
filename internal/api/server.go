package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/webstone-core/internal/control"
	"github.com/nerrad567/webstone-core/internal/infrastructure/config"
	"github.com/nerrad567/webstone-core/internal/infrastructure/logging"
	"github.com/nerrad567/webstone-core/internal/loop"
)

// gracefulShutdownTimeout bounds Close.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the server.
type Deps struct {
	Server    config.ServerConfig
	WebSocket config.WebSocketConfig
	Security  config.SecurityConfig
	Logger    *logging.Logger
	Hub       *Hub
	Service   *control.Service
	Loop      *loop.Loop
	Version   string

	// LoopTimeout bounds how long a connection waits on the loop.
	// Zero means DefaultLoopTimeout.
	LoopTimeout time.Duration

	// Optional, reported by GET /metrics when set.
	MQTT     ConnectionReporter
	InfluxDB ConnectionReporter
	DB       StatsProvider
}

// Server is the HTTP listener for the WebSocket endpoint.
type Server struct {
	cfg      config.ServerConfig
	wsCfg    config.WebSocketConfig
	secCfg   config.SecurityConfig
	logger   *logging.Logger
	hub      *Hub
	svc      *control.Service
	loop     *loop.Loop
	version  string
	loopWait time.Duration

	mqtt      ConnectionReporter
	influx    ConnectionReporter
	db        StatsProvider
	startTime time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New validates deps and returns an unstarted server.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("hub is required")
	}
	if deps.Service == nil {
		return nil, fmt.Errorf("control service is required")
	}
	if deps.Loop == nil {
		return nil, fmt.Errorf("loop is required")
	}

	loopWait := deps.LoopTimeout
	if loopWait <= 0 {
		loopWait = DefaultLoopTimeout
	}

	return &Server{
		cfg:       deps.Server,
		wsCfg:     deps.WebSocket,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		hub:       deps.Hub,
		svc:       deps.Service,
		loop:      deps.Loop,
		version:   deps.Version,
		loopWait:  loopWait,
		mqtt:      deps.MQTT,
		influx:    deps.InfluxDB,
		db:        deps.DB,
		startTime: time.Now(),
	}, nil
}

// Start binds the listener and serves in the background. With TLS enabled
// the certificate is loaded first, so a bad key fails here rather than on
// the first handshake.
func (s *Server) Start(_ context.Context) error {
	var tlsCfg *tls.Config
	if s.cfg.TLS.Enabled {
		var err error
		if tlsCfg, err = loadTLSConfig(s.cfg.TLS); err != nil {
			return err
		}
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("websocket server listening",
		"address", ln.Addr().String(),
		"path", s.wsCfg.Path,
		"secure", tlsCfg != nil,
	)

	go func() {
		var err error
		if tlsCfg != nil {
			err = srv.ServeTLS(ln, "", "")
		} else {
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close disconnects every client and shuts the listener down.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Info("websocket server shutting down", "clients", s.hub.ClientCount())
	s.hub.closeAll()

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
