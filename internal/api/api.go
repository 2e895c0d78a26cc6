// Package api provides the HTTP handlers and server logic of the UniDesk REST
// backend.
//
// It exposes endpoints for authentication, applications, schedule, events, the
// chat classifier and staff analytics, sharing the store and auth services with
// the messenger bot.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/UniDesk/internal/auth"
	"github.com/BTreeMap/UniDesk/internal/config"
	"github.com/BTreeMap/UniDesk/internal/models"
	"github.com/BTreeMap/UniDesk/internal/store"
)

// Constants for API server configuration
const (
	// DefaultAddr is the default listen address
	DefaultAddr = ":3001"
	// DefaultShutdownTimeout bounds graceful shutdown on stop
	DefaultShutdownTimeout = 10 * time.Second
	// DefaultReadHeaderTimeout guards against slow-header clients
	DefaultReadHeaderTimeout = 10 * time.Second
)

// Server is the REST API server.
type Server struct {
	store store.Store
	auth  *auth.Service
	cfg   *config.Config
	addr  string
	http  *http.Server
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// NewServer creates the API server with its dependencies.
func NewServer(st store.Store, authSvc *auth.Service, cfg *config.Config, opts ...Option) *Server {
	var o Opts
	for _, opt := range opts {
		opt(&o)
	}
	if o.Addr == "" {
		o.Addr = DefaultAddr
	}
	return &Server{store: st, auth: authSvc, cfg: cfg, addr: o.Addr}
}

// routes builds the request multiplexer.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /api/health", s.healthHandler)

	mux.HandleFunc("POST /api/auth/register", s.registerHandler)
	mux.HandleFunc("POST /api/auth/login", s.loginHandler)
	mux.HandleFunc("GET /api/auth/me", s.authRequired(s.meHandler))
	mux.HandleFunc("POST /api/auth/link-max", s.authRequired(s.linkMaxHandler))

	mux.HandleFunc("GET /api/application-types", s.applicationTypesHandler)
	mux.HandleFunc("GET /api/applications/types", s.applicationTypesHandler)
	mux.HandleFunc("POST /api/applications", s.authOptional(s.createApplicationHandler))
	mux.HandleFunc("GET /api/applications", s.authRequired(s.listApplicationsHandler, models.RoleAdmin, models.RoleStaff, models.RoleTeacher))
	mux.HandleFunc("GET /api/applications/my", s.authRequired(s.myApplicationsHandler))
	mux.HandleFunc("GET /api/applications/student/{studentId}", s.authRequired(s.applicationsByStudentHandler, models.RoleAdmin, models.RoleStaff, models.RoleTeacher))
	mux.HandleFunc("GET /api/applications/{id}", s.getApplicationHandler)
	mux.HandleFunc("PATCH /api/applications/{id}/status", s.authRequired(s.updateApplicationStatusHandler, models.RoleAdmin, models.RoleStaff))

	mux.HandleFunc("GET /api/schedule", s.scheduleHandler)
	mux.HandleFunc("GET /api/schedule/groups", s.scheduleGroupsHandler)

	mux.HandleFunc("GET /api/events", s.listEventsHandler)
	mux.HandleFunc("GET /api/events/{id}", s.getEventHandler)

	mux.HandleFunc("POST /api/chat", s.chatHandler)
	mux.HandleFunc("GET /api/chat/info", s.chatInfoHandler)

	mux.HandleFunc("GET /api/users/me", s.authRequired(s.meHandler))
	mux.HandleFunc("POST /api/users", s.authRequired(s.createUserHandler, models.RoleAdmin, models.RoleStaff))
	mux.HandleFunc("GET /api/users", s.authRequired(s.listUsersHandler, models.RoleAdmin, models.RoleStaff))
	mux.HandleFunc("GET /api/students/me", s.authRequired(s.myProfileHandler))
	mux.HandleFunc("PATCH /api/students/me", s.authRequired(s.updateMyProfileHandler))
	mux.HandleFunc("GET /api/students", s.authRequired(s.listStudentsHandler, models.RoleAdmin, models.RoleStaff))
	mux.HandleFunc("GET /api/analytics/dashboard", s.authRequired(s.dashboardHandler, models.RoleAdmin, models.RoleStaff))

	return withLogging(mux)
}

// Run starts the HTTP server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API listening", "addr", s.addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API server shutdown failed: %w", err)
	}
	slog.Info("Server.Run: API stopped")
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}
