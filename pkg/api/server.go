package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cbodonnell/econempire/pkg/api/handlers"
	"github.com/cbodonnell/econempire/pkg/api/middleware"
	authproviders "github.com/cbodonnell/econempire/pkg/auth/providers"
	"github.com/cbodonnell/econempire/pkg/log"
	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
)

type APIServer struct {
	server *http.Server
	tls    *TLSConfig
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewAPIServerOptions struct {
	Port         int
	TLS          *TLSConfig
	AuthProvider authproviders.AuthProvider
	GameService  handlers.GameService
	AllowOrigin  string
}

// NewRouter builds the API routes behind CORS and gzip.
func NewRouter(opts NewAPIServerOptions) http.Handler {
	allowOrigin := opts.AllowOrigin
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	authMiddleware := middleware.NewAuthMiddleware(opts.AuthProvider)

	r := mux.NewRouter()
	r.Handle("/healthz", handlers.HandleHealth()).Methods(http.MethodGet)

	authed := r.NewRoute().Subrouter()
	authed.Use(authMiddleware)
	authed.Handle("/auth/login", handlers.HandleLogin()).Methods(http.MethodPost)
	authed.Handle("/games", handlers.HandleCreateGame(opts.GameService)).Methods(http.MethodPost)
	authed.Handle("/games/current", handlers.HandleCurrentGame(opts.GameService)).Methods(http.MethodGet)
	authed.Handle("/games/current/{action:start|advance|end}", handlers.HandleGameAction(opts.GameService)).Methods(http.MethodPost)
	authed.Handle("/games/{gameID}", handlers.HandleGetGame(opts.GameService)).Methods(http.MethodGet)

	return gzhttp.GzipHandler(middleware.NewCORSMiddleware(allowOrigin)(r))
}

// NewAPIServer creates a new http.Server for handling API requests
func NewAPIServer(opts NewAPIServerOptions) *APIServer {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: NewRouter(opts),
	}
	return &APIServer{
		server: server,
		tls:    opts.TLS,
	}
}

// Start serves the API until ctx is done.
func (s *APIServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		if err := s.Stop(context.Background()); err != nil {
			log.Error("failed to stop API server: %v", err)
		}
	}()

	var listenAndServe func() error
	if s.tls != nil {
		log.Info("API server listening on %s with TLS", s.server.Addr)
		listenAndServe = func() error {
			return s.server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("API server listening on %s", s.server.Addr)
		listenAndServe = s.server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("API server closed")
			return nil
		}
		return fmt.Errorf("API server error: %v", err)
	}
	return nil
}

// Stop stops the APIServer
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
