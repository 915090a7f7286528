package server

import (
	"errors"
	"net/http"

	poolfactory "github.com/defistate/pool-factory-go/protocols/poolfactory"
	"github.com/ethereum/go-ethereum/rpc"
)

// Config holds the configuration for the server.
type Config struct {
	Registry Registry
	Logger   poolfactory.Logger
	// AllowedOrigins lists the browser origins allowed to open a WebSocket. When empty only
	// http://localhost and the local hostname are accepted. Requests without an Origin header
	// are always accepted.
	AllowedOrigins []string
}

func (c *Config) validate() error {
	if c.Registry == nil {
		return errors.New("config: Registry is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// Server exposes a Registry over JSON-RPC.
type Server struct {
	rpc     *rpc.Server
	origins []string
}

func NewServer(cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	srv := rpc.NewServer()
	api := &API{registry: cfg.Registry, logger: cfg.Logger}
	if err := srv.RegisterName(RpcNamespace, api); err != nil {
		return nil, err
	}

	return &Server{rpc: srv, origins: cfg.AllowedOrigins}, nil
}

// Handler serves WebSocket upgrades and plain HTTP JSON-RPC on the same endpoint.
// Subscriptions need the WebSocket transport.
func (s *Server) Handler() http.Handler {
	ws := s.rpc.WebsocketHandler(s.origins)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") == "websocket" {
			ws.ServeHTTP(w, r)
			return
		}
		s.rpc.ServeHTTP(w, r)
	})
}

// DialInProc attaches an in-process client.
func (s *Server) DialInProc() *rpc.Client {
	return rpc.DialInProc(s.rpc)
}

func (s *Server) Stop() {
	s.rpc.Stop()
}
