// Package server provides an HTTP REST service that compiles kernel source
// for authenticated clients and serves builds from a shared build cache.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/dekarrin/kernc"
	"github.com/dekarrin/kernc/internal/cache"
	"github.com/dekarrin/kernc/server/api"
	"github.com/dekarrin/kernc/server/kcs"
	"github.com/go-chi/chi/v5"
)

// server:
//   POST   /login         - accepts client ID and secret and returns a jwt.
//   POST   /tokens        - refreshes the token without requiring credentials (requires auth)
//   POST   /kernels       - compiles source, or returns the cached build (requires auth)
//   GET    /kernels       - lists cached builds (requires auth)
//   GET    /kernels/{id}  - gets a cached build (requires auth)
//   DELETE /kernels/{id}  - deletes a cached build (requires admin auth)
//   GET    /info          - gets version info and the available backends.

// Server is an HTTP REST server that compiles kernels. The zero-value of a
// Server should not be used directly; call New() to get one ready for use.
type Server struct {
	router chi.Router
	store  cache.Store
	api    api.API
}

// New creates a new Server from cfg. Defaults are filled in for unset values
// of cfg before it is validated.
func New(cfg Config) (*Server, error) {
	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	store, err := cfg.DB.Connect()
	if err != nil {
		return nil, fmt.Errorf("connect build cache: %w", err)
	}

	clients := make(map[string]kcs.Client, len(cfg.Clients))
	for _, c := range cfg.Clients {
		clients[c.ID] = c
	}

	s := &Server{
		store: store,
		api: api.API{
			Backend: kcs.Service{
				Builder: kernc.NewBuilder(store, cfg.Workers),
				Clients: clients,
			},
			UnauthDelay: cfg.UnauthDelay(),
			Secret:      cfg.TokenSecret,
		},
	}
	s.router = newRouter(s.api)

	return s, nil
}

// Handler returns the root handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeForever begins listening on the given address and port for HTTP REST
// client requests. If address is kept as "", it will default to "localhost". If
// port is less than 1, it will default to 8080. It only returns if the
// listener fails.
func (s *Server) ServeForever(address string, port int) error {
	if address == "" {
		address = "localhost"
	}
	if port < 1 {
		port = 8080
	}

	listenAddress := fmt.Sprintf("%s:%d", address, port)
	log.Printf("INFO  Listening on %s", listenAddress)
	return http.ListenAndServe(listenAddress, s.router)
}

// Close releases the build cache.
func (s *Server) Close() error {
	return s.store.Close()
}
