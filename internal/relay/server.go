package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/almostacms/almostacms/internal/log"
)

// Server runs the relay handler on a TCP listener.
type Server struct {
	server   *http.Server
	listener net.Listener
	port     int
}

// NewServer binds cfg.Addr and prepares the server. An address with port 0
// gets a free port; see Port.
func NewServer(cfg Config, opts ...Option) (*Server, error) {
	h := NewHandler(cfg, opts...)

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}
	port := 0
	if tcp, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}

	return &Server{
		listener: listener,
		port:     port,
		server: &http.Server{
			Handler:           h.Routes(),
			ReadTimeout:       h.cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
	}, nil
}

// Start serves until Stop is called. It returns nil after a clean stop.
func (s *Server) Start() error {
	log.Info(log.CatRelay, "OAuth relay listening", "addr", s.listener.Addr().String(), "port", s.port)
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	log.Info(log.CatRelay, "stopping OAuth relay")
	return s.server.Shutdown(ctx)
}

// Port is the bound port.
func (s *Server) Port() int { return s.port }

// Addr is the bound address.
func (s *Server) Addr() string { return s.listener.Addr().String() }
